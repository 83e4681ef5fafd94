package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
)

// PoolStatus describes one pool at probe time.
type PoolStatus struct {
	Connected bool  `json:"connected"`
	Total     int32 `json:"total"`
	Idle      int32 `json:"idle"`
	Waiting   int32 `json:"waiting"`
}

// HealthStatus is the on-demand result of probing both pools. It is computed
// fresh on every call, never cached.
type HealthStatus struct {
	Healthy   bool       `json:"healthy"`
	WritePool PoolStatus `json:"write_pool"`
	ReadPool  PoolStatus `json:"read_pool"`
	LatencyMS int64      `json:"latency_ms"`
	Error     string     `json:"error,omitempty"`
}

// CheckHealth probes both pools with the trivial probe query and reports
// their counters. It never returns an error: failures are captured in the
// Error field with Healthy set to false. The probes run independently, so a
// failure on one pool does not abort the probe of the other.
func (m *Manager) CheckHealth(ctx context.Context) HealthStatus {
	start := time.Now()

	m.mu.RLock()
	write, read := m.write, m.read
	m.mu.RUnlock()

	var status HealthStatus
	if write == nil || read == nil {
		status.Error = ErrNotInitialized.Error()
		status.LatencyMS = time.Since(start).Milliseconds()
		return status
	}

	var (
		writeStatus, readStatus PoolStatus
		writeErr, readErr       error
	)
	g := new(errgroup.Group)
	g.Go(func() error {
		writeStatus, writeErr = probeTracker(ctx, write, m.cfg.ProbeTimeout)
		return nil
	})
	g.Go(func() error {
		readStatus, readErr = probeTracker(ctx, read, m.cfg.ProbeTimeout)
		return nil
	})
	_ = g.Wait()

	status.WritePool = writeStatus
	status.ReadPool = readStatus
	status.Healthy = writeErr == nil && readErr == nil
	status.LatencyMS = time.Since(start).Milliseconds()

	switch {
	case writeErr != nil && readErr != nil:
		status.Error = fmt.Sprintf("write pool: %v; read pool: %v", writeErr, readErr)
	case writeErr != nil:
		status.Error = fmt.Sprintf("write pool: %v", writeErr)
	case readErr != nil:
		status.Error = fmt.Sprintf("read pool: %v", readErr)
	}
	return status
}

// Healthcheck returns a closure compatible with the health package's
// CheckFunc signature.
func (m *Manager) Healthcheck() func(context.Context) error {
	return func(ctx context.Context) error {
		status := m.CheckHealth(ctx)
		if !status.Healthy {
			return errors.Join(ErrHealthcheckFailed, errors.New(status.Error))
		}
		return nil
	}
}

// probeTracker captures the pool's counters, then verifies connectivity by
// borrowing a connection and running the probe query. Counters are reported
// even when the probe fails.
func probeTracker(ctx context.Context, t *poolTracker, timeout time.Duration) (PoolStatus, error) {
	stats := t.Stats()
	status := PoolStatus{
		Total:   stats.Total,
		Idle:    stats.Idle,
		Waiting: stats.Waiting,
	}

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	conn, err := t.acquire(ctx, 0)
	if err != nil {
		return status, err
	}
	defer conn.Release()

	var one int
	if err := conn.QueryRow(ctx, probeQuery).Scan(&one); err != nil {
		t.recordError(err)
		return status, err
	}

	status.Connected = true
	return status, nil
}
