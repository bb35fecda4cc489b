package models

import (
	"math"
	"time"
)

// Status is the lifecycle state shared by tasks, epics and subtasks.
type Status string

const (
	StatusNew        Status = "NEW"
	StatusInProgress Status = "IN_PROGRESS"
	StatusDone       Status = "DONE"
)

// ValidStatuses enumerates the statuses a caller may set.
var ValidStatuses = map[Status]struct{}{
	StatusNew:        {},
	StatusInProgress: {},
	StatusDone:       {},
}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	_, ok := ValidStatuses[s]
	return ok
}

// Type discriminates the three entity kinds.
type Type string

const (
	TypeTask    Type = "TASK"
	TypeEpic    Type = "EPIC"
	TypeSubtask Type = "SUBTASK"
)

// MaxDuration is the longest duration, in minutes, whose interval still
// fits in a time.Duration.
const MaxDuration = math.MaxInt64 / int64(time.Minute)

// Task is a standalone schedulable item.
type Task struct {
	ID          int64      `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Status      Status     `json:"status"`
	Duration    int64      `json:"duration"`
	StartTime   *time.Time `json:"start_time,omitempty"`
	EndTime     *time.Time `json:"end_time,omitempty"`
}

// Interval returns the half-open schedule [start, end). ok is false for
// unscheduled items.
func (t Task) Interval() (start, end time.Time, ok bool) {
	if t.StartTime == nil {
		return time.Time{}, time.Time{}, false
	}
	start = *t.StartTime
	return start, start.Add(time.Duration(t.Duration) * time.Minute), true
}

// Schedule normalizes StartTime to UTC and fills EndTime from it.
func (t *Task) Schedule() {
	start, end, ok := t.Interval()
	if !ok {
		t.EndTime = nil
		return
	}
	start, end = start.UTC(), end.UTC()
	t.StartTime = &start
	t.EndTime = &end
}

// Epic groups subtasks. Its status is derived from theirs.
type Epic struct {
	ID          int64   `json:"id"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Status      Status  `json:"status"`
	SubtaskIDs  []int64 `json:"subtask_ids"`
}

// Subtask is a schedulable item owned by an epic.
type Subtask struct {
	Task
	EpicID int64 `json:"epic_id"`
}

// Entry wraps any of the three kinds for mixed listings such as history.
type Entry struct {
	Type    Type     `json:"type"`
	Task    *Task    `json:"task,omitempty"`
	Epic    *Epic    `json:"epic,omitempty"`
	Subtask *Subtask `json:"subtask,omitempty"`
}

// ID returns the identifier of the wrapped entity.
func (e Entry) ID() int64 {
	switch {
	case e.Task != nil:
		return e.Task.ID
	case e.Epic != nil:
		return e.Epic.ID
	case e.Subtask != nil:
		return e.Subtask.ID
	}
	return 0
}
