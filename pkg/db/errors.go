package db

import "errors"

// Sentinel errors for the db package.
var (
	// ErrInvalidConfig is returned when the pool configuration fails validation.
	ErrInvalidConfig = errors.New("db: invalid pool configuration")

	// ErrFailedToParseConfig is returned when a connection string cannot be parsed.
	ErrFailedToParseConfig = errors.New("db: failed to parse connection string")

	// ErrFailedToOpenDBConnection is returned when pool construction exhausted
	// all probe attempts. The process should not proceed to serve traffic.
	ErrFailedToOpenDBConnection = errors.New("db: failed to open database connection")

	// ErrNotInitialized is returned by any accessor called before Initialize
	// or after Close. It indicates a programming error, never a transient one.
	ErrNotInitialized = errors.New("db: manager is not initialized")

	// ErrHealthcheckFailed is returned by the healthcheck closure when either
	// pool fails its probe query.
	ErrHealthcheckFailed = errors.New("db: healthcheck failed")
)
