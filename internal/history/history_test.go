package history

import (
	"reflect"
	"testing"
)

func TestVisitWithoutRepetitions(t *testing.T) {
	tr := New()
	for _, id := range []int64{1, 2, 3, 2, 1} {
		tr.Visit(id)
	}

	got := tr.IDs()
	want := []int64{3, 2, 1}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Expected %v, got %v", want, got)
	}
	if tr.Len() != 3 {
		t.Errorf("Expected length 3, got %d", tr.Len())
	}
}

func TestVisitTailIsNoop(t *testing.T) {
	tr := New()
	tr.Visit(1)
	tr.Visit(2)
	tr.Visit(2)

	if got, want := tr.IDs(), []int64{1, 2}; !reflect.DeepEqual(got, want) {
		t.Fatalf("Expected %v, got %v", want, got)
	}
}

func TestRemove(t *testing.T) {
	tests := []struct {
		name   string
		remove int64
		want   []int64
	}{
		{name: "first", remove: 1, want: []int64{2, 3}},
		{name: "middle", remove: 2, want: []int64{1, 3}},
		{name: "last", remove: 3, want: []int64{1, 2}},
		{name: "absent", remove: 42, want: []int64{1, 2, 3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := New()
			tr.Visit(1)
			tr.Visit(2)
			tr.Visit(3)

			tr.Remove(tt.remove)

			if got := tr.IDs(); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Expected %v, got %v", tt.want, got)
			}
			if tr.Len() != len(tt.want) {
				t.Errorf("Expected length %d, got %d", len(tt.want), tr.Len())
			}
		})
	}
}

func TestRemoveFromEmpty(t *testing.T) {
	tr := New()
	tr.Remove(1)

	if tr.Len() != 0 {
		t.Fatalf("Expected empty history, got %d entries", tr.Len())
	}
	if ids := tr.IDs(); len(ids) != 0 {
		t.Errorf("Expected no ids, got %v", ids)
	}
}

func TestRemoveThenVisitAgain(t *testing.T) {
	tr := New()
	tr.Visit(1)
	tr.Visit(2)
	tr.Remove(1)
	tr.Remove(2)
	tr.Visit(2)
	tr.Visit(1)

	if got, want := tr.IDs(), []int64{2, 1}; !reflect.DeepEqual(got, want) {
		t.Fatalf("Expected %v, got %v", want, got)
	}
	if !tr.Contains(1) || !tr.Contains(2) {
		t.Errorf("Expected both ids to be tracked")
	}
}

func TestSnapshotIsRestartable(t *testing.T) {
	tr := New()
	tr.Visit(5)
	tr.Visit(6)

	seq := tr.Snapshot()
	var first, second []int64
	for id := range seq {
		first = append(first, id)
	}
	for id := range seq {
		second = append(second, id)
	}

	if !reflect.DeepEqual(first, second) {
		t.Fatalf("Expected identical passes, got %v and %v", first, second)
	}

	for id := range seq {
		if id == 5 {
			break
		}
	}
	if got, want := tr.IDs(), []int64{5, 6}; !reflect.DeepEqual(got, want) {
		t.Errorf("Expected order unchanged %v, got %v", want, got)
	}
}
