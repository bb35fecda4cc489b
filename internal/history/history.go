// Package history keeps the order in which entities were last viewed.
//
// The order is oldest first, most recent last. Visiting an id that is
// already tracked moves it to the tail, so every id appears at most once.
package history

import "iter"

type node struct {
	id         int64
	prev, next *node
}

// Tracker is a doubly linked list indexed by id. Visit, Remove and Contains
// are O(1). It is not safe for concurrent use.
type Tracker struct {
	head, tail *node
	index      map[int64]*node
}

// New returns an empty tracker.
func New() *Tracker {
	return &Tracker{index: make(map[int64]*node)}
}

// Visit records id as the most recent entry.
func (t *Tracker) Visit(id int64) {
	if n, ok := t.index[id]; ok {
		if n == t.tail {
			return
		}
		t.unlink(n)
		t.append(n)
		return
	}
	n := &node{id: id}
	t.index[id] = n
	t.append(n)
}

// Remove drops id from the history. Unknown ids are ignored.
func (t *Tracker) Remove(id int64) {
	n, ok := t.index[id]
	if !ok {
		return
	}
	t.unlink(n)
	delete(t.index, id)
}

// Contains reports whether id is tracked.
func (t *Tracker) Contains(id int64) bool {
	_, ok := t.index[id]
	return ok
}

// Len returns the number of tracked ids.
func (t *Tracker) Len() int {
	return len(t.index)
}

// Snapshot yields the tracked ids oldest first. Iterating does not change
// the order and the sequence may be ranged over any number of times.
func (t *Tracker) Snapshot() iter.Seq[int64] {
	return func(yield func(int64) bool) {
		for n := t.head; n != nil; n = n.next {
			if !yield(n.id) {
				return
			}
		}
	}
}

// IDs collects Snapshot into a slice.
func (t *Tracker) IDs() []int64 {
	ids := make([]int64, 0, len(t.index))
	for id := range t.Snapshot() {
		ids = append(ids, id)
	}
	return ids
}

func (t *Tracker) append(n *node) {
	n.prev = t.tail
	n.next = nil
	if t.tail != nil {
		t.tail.next = n
	} else {
		t.head = n
	}
	t.tail = n
}

func (t *Tracker) unlink(n *node) {
	if n.prev != nil {
		n.prev.next = n.next
	} else {
		t.head = n.next
	}
	if n.next != nil {
		n.next.prev = n.prev
	} else {
		t.tail = n.prev
	}
	n.prev, n.next = nil, nil
}
