package manager

import (
	"iter"
	"time"

	"tracker/internal/models"
)

// interval is a half-open time range [start, end).
type interval struct {
	start, end time.Time
}

func intervalOf(t models.Task) (interval, bool) {
	start, end, ok := t.Interval()
	return interval{start: start, end: end}, ok
}

// overlaps treats touching ranges (a.end == b.start) as disjoint.
func (a interval) overlaps(b interval) bool {
	return a.start.Before(b.end) && b.start.Before(a.end)
}

// findConflict returns the id of the first scheduled item, other than
// exclude, whose interval overlaps candidate. Unscheduled items are skipped.
func findConflict(candidate interval, exclude int64, items iter.Seq[models.Task]) (int64, bool) {
	for item := range items {
		if item.ID == exclude {
			continue
		}
		other, ok := intervalOf(item)
		if !ok {
			continue
		}
		if candidate.overlaps(other) {
			return item.ID, true
		}
	}
	return 0, false
}
