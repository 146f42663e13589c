package repository

import "errors"

var (
	// ErrScheduleNotFound is returned when no schedule has been stored for a competition.
	ErrScheduleNotFound = errors.New("schedule not found")
	// ErrVersionConflict is returned when a save carries a stale expected version.
	ErrVersionConflict = errors.New("schedule version conflict")
)

// checkVersion enforces optimistic concurrency. Zero means last writer wins.
func checkVersion(current, expected int) error {
	if expected > 0 && expected != current {
		return ErrVersionConflict
	}
	return nil
}
