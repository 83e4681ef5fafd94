package dbmonitor

import (
	"time"

	"github.com/google/uuid"
)

// AlertType identifies a pool alert condition. The set is closed so
// subscribers can switch over it exhaustively.
type AlertType string

const (
	// AlertHighUtilization fires when current utilization exceeds the
	// configured threshold.
	AlertHighUtilization AlertType = "HIGH_UTILIZATION"

	// AlertConnectionLeak fires when the recent history shows a sustained
	// near-full pool with almost no idle connections. It is a heuristic,
	// not proof of an unreleased connection.
	AlertConnectionLeak AlertType = "CONNECTION_LEAK"

	// AlertLongWaitTime fires whenever any caller is blocked waiting for a
	// connection. There is no magnitude threshold: a single waiter already
	// means the pool is saturating.
	AlertLongWaitTime AlertType = "LONG_WAIT_TIME"

	// AlertPoolExhaustion fires when the pool is at its configured size and
	// callers are still waiting.
	AlertPoolExhaustion AlertType = "POOL_EXHAUSTION"
)

// PoolStats is an instantaneous view of a pool's counters.
type PoolStats struct {
	Total   int32
	Idle    int32
	Waiting int32
	Max     int32
}

// Source provides pool counters to the monitor. Implemented by the db
// package's pool trackers; tests supply fakes.
type Source interface {
	Stats() PoolStats
}

// Sample is an immutable snapshot of one pool at one sampling tick.
type Sample struct {
	Timestamp   time.Time `json:"timestamp"`
	Total       int32     `json:"total"`
	Idle        int32     `json:"idle"`
	Waiting     int32     `json:"waiting"`
	PoolSize    int32     `json:"pool_size"`
	Utilization float64   `json:"utilization_percentage"`
}

// Alert describes a triggered pool condition.
type Alert struct {
	ID        uuid.UUID `json:"id"`
	Pool      string    `json:"pool"`
	Type      AlertType `json:"type"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	Metrics   Sample    `json:"metrics"`
}

// AlertHandler receives emitted alerts. Handlers are invoked synchronously
// from the sampling loop; panics are recovered so one broken subscriber
// cannot stop future samples.
type AlertHandler func(Alert)

// PoolErrorHandler receives operational pool errors forwarded by the db
// layer (failed acquisitions, probe failures).
type PoolErrorHandler func(pool string, err error)
