package db

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// probeQuery is the trivial statement used to verify connectivity. It proves
// the full path (acquire, round trip, release) without touching any table.
const probeQuery = "SELECT 1"

// connectPool builds a pool for one target and probes it until it answers or
// the attempt budget is exhausted. Pool construction itself does no network
// I/O; only the probe loop talks to the database. The builder does not
// distinguish transient from permanent failures: every failure is retried
// identically with backoff, and only exhaustion is fatal.
func connectPool(ctx context.Context, log *slog.Logger, cfg Config, connString, label string, maxConns int32) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, errors.Join(ErrFailedToParseConfig, err)
	}
	poolCfg.MaxConns = maxConns
	poolCfg.MinConns = cfg.minConnsFor(maxConns)
	poolCfg.MaxConnIdleTime = cfg.MaxConnIdleTime
	poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	poolCfg.HealthCheckPeriod = cfg.HealthCheckPeriod
	poolCfg.AfterConnect = func(ctx context.Context, _ *pgx.Conn) error {
		log.DebugContext(ctx, "database connection established", slog.String("pool", label))
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, errors.Join(ErrFailedToOpenDBConnection, err)
	}

	probe := func(ctx context.Context) error {
		return probePool(ctx, pool, cfg.ProbeTimeout)
	}
	if err := retryProbe(ctx, log, label, cfg.ConnectAttempts, cfg.ConnectBackoff, probe); err != nil {
		pool.Close()
		return nil, err
	}

	log.InfoContext(ctx, "database pool ready",
		slog.String("pool", label),
		slog.Int("max_conns", int(maxConns)),
		slog.Int("min_conns", int(poolCfg.MinConns)),
	)
	return pool, nil
}

// retryProbe runs probe up to attempts times with backoff sleeps between
// failures. Each attempt is logged so retries are observable without a
// debugger. The final error names the pool and the attempt count.
func retryProbe(ctx context.Context, log *slog.Logger, label string, attempts int, backoff Backoff, probe func(context.Context) error) error {
	attempts = max(attempts, 1)

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			if err := wait(ctx, backoff.Delay(uint(attempt-1))); err != nil {
				return errors.Join(ErrFailedToOpenDBConnection, err)
			}
		}

		if lastErr = probe(ctx); lastErr == nil {
			log.InfoContext(ctx, "database probe succeeded",
				slog.String("pool", label),
				slog.Int("attempt", attempt),
			)
			return nil
		}

		log.WarnContext(ctx, "database probe failed",
			slog.String("pool", label),
			slog.Int("attempt", attempt),
			slog.Int("max_attempts", attempts),
			slog.String("error", lastErr.Error()),
		)
	}

	return errors.Join(ErrFailedToOpenDBConnection,
		fmt.Errorf("%s pool unreachable after %d attempts: %w", label, attempts, lastErr))
}

// probePool borrows one connection, runs the probe query, and returns the
// connection to the pool.
func probePool(ctx context.Context, pool *pgxpool.Pool, timeout time.Duration) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	conn, err := pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	var one int
	return conn.QueryRow(ctx, probeQuery).Scan(&one)
}

// wait sleeps for d or returns early when the context is cancelled.
func wait(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
