package db

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Handle is a lightweight, query-capable wrapper bound to one pool. Every
// statement borrows a connection, runs, and returns it; a handle never holds
// a connection between calls. Handles are cheap to construct: repositories
// request a fresh one per unit of work.
type Handle struct {
	tracker        *poolTracker
	acquireTimeout time.Duration
	queryTimeout   time.Duration
}

func newHandle(t *poolTracker, acquireTimeout, queryTimeout time.Duration) *Handle {
	return &Handle{
		tracker:        t,
		acquireTimeout: acquireTimeout,
		queryTimeout:   queryTimeout,
	}
}

// Pool returns the name of the pool this handle is bound to.
func (h *Handle) Pool() string {
	return h.tracker.name
}

// Exec runs a single statement and returns its command tag.
func (h *Handle) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	ctx, cancel := h.statementContext(ctx)
	defer cancel()

	conn, err := h.tracker.acquire(ctx, h.acquireTimeout)
	if err != nil {
		return pgconn.CommandTag{}, err
	}
	defer conn.Release()

	return conn.Exec(ctx, sql, args...)
}

// Query runs a query and returns its rows. The borrowed connection is
// released when the returned rows are closed, so callers must always close
// them (the usual pgx contract).
func (h *Handle) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	ctx, cancel := h.statementContext(ctx)

	conn, err := h.tracker.acquire(ctx, h.acquireTimeout)
	if err != nil {
		cancel()
		return nil, err
	}

	rows, err := conn.Query(ctx, sql, args...)
	if err != nil {
		conn.Release()
		cancel()
		return nil, err
	}
	return &handleRows{Rows: rows, conn: conn, cancel: cancel}, nil
}

// QueryRow runs a query expected to return at most one row. The borrowed
// connection is released after Scan.
func (h *Handle) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	ctx, cancel := h.statementContext(ctx)

	conn, err := h.tracker.acquire(ctx, h.acquireTimeout)
	if err != nil {
		cancel()
		return errRow{err: err}
	}

	return &handleRow{row: conn.QueryRow(ctx, sql, args...), conn: conn, cancel: cancel}
}

// statementContext applies the per-statement query timeout when configured.
func (h *Handle) statementContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if h.queryTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, h.queryTimeout)
}

// handleRows returns the borrowed connection when the rows are closed.
type handleRows struct {
	pgx.Rows
	conn   *pgxpool.Conn
	cancel context.CancelFunc
}

func (r *handleRows) Close() {
	r.Rows.Close()
	if r.conn != nil {
		r.conn.Release()
		r.conn = nil
	}
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
}

// handleRow returns the borrowed connection after the row is scanned.
type handleRow struct {
	row    pgx.Row
	conn   *pgxpool.Conn
	cancel context.CancelFunc
}

func (r *handleRow) Scan(dest ...any) error {
	defer func() {
		if r.conn != nil {
			r.conn.Release()
			r.conn = nil
		}
		if r.cancel != nil {
			r.cancel()
			r.cancel = nil
		}
	}()
	return r.row.Scan(dest...)
}

// errRow defers an acquisition error to Scan, matching pgx conventions.
type errRow struct {
	err error
}

func (r errRow) Scan(...any) error {
	return r.err
}
