package dbmonitor

import "errors"

// Sentinel errors for the dbmonitor package.
var (
	// ErrNoSources is returned by Start when no pools have been attached.
	ErrNoSources = errors.New("dbmonitor: no stat sources attached")

	// ErrInvalidSchedule is returned by Start when the configured cron
	// expression cannot be parsed.
	ErrInvalidSchedule = errors.New("dbmonitor: invalid sampling schedule")
)
