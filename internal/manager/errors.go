package manager

import "errors"

// Error kinds returned by the manager and the persistence layers. They are
// wrapped with context; test for them with errors.Is.
var (
	// ErrNotFound is returned when an identifier does not resolve.
	ErrNotFound = errors.New("not found")
	// ErrScheduleConflict is returned when an interval overlaps another item.
	ErrScheduleConflict = errors.New("schedule conflict")
	// ErrFormat is returned for malformed or unrepresentable persisted data.
	ErrFormat = errors.New("format error")
	// ErrIO is returned when the backing storage cannot be read or written.
	ErrIO = errors.New("storage i/o error")
	// ErrInvalid is returned for field values the model does not allow.
	ErrInvalid = errors.New("invalid value")
)
