package db

import (
	"context"
	"errors"
	"log/slog"

	"github.com/jackc/pgx/v5"
)

// WithTx executes fn within a database transaction on a connection borrowed
// from the write pool.
// If fn returns an error, the transaction is rolled back and the original
// error is returned unchanged; a failure during rollback itself is logged
// but never masks the original error.
// If fn panics, the transaction is rolled back and the panic is re-raised.
// If fn succeeds, the transaction is committed.
//
// Nested calls each borrow their own connection; there is no reentrant
// transaction support. Do not call WithTx from within fn.
func (m *Manager) WithTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	t, err := m.writeTracker()
	if err != nil {
		return err
	}

	conn, err := t.acquire(ctx, m.cfg.AcquireTimeout)
	if err != nil {
		return err
	}
	defer conn.Release()

	return runTx(ctx, m.log, conn, fn)
}

// InTx is the value-returning form of [Manager.WithTx].
func InTx[T any](ctx context.Context, m *Manager, fn func(tx pgx.Tx) (T, error)) (T, error) {
	var out T
	err := m.WithTx(ctx, func(tx pgx.Tx) error {
		v, err := fn(tx)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return out, nil
}

// txBeginner abstracts transaction creation so the bracket logic can be
// exercised without a live connection.
type txBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

func runTx(ctx context.Context, log *slog.Logger, db txBeginner, fn func(pgx.Tx) error) error {
	tx, err := db.Begin(ctx)
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			rollbackTx(ctx, log, tx)
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		rollbackTx(ctx, log, tx)
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		rollbackTx(ctx, log, tx)
		return err
	}
	return nil
}

// rollbackTx rolls back best-effort. pgx reports ErrTxClosed when the
// transaction already ended (e.g. after a failed commit); that is not worth
// logging.
func rollbackTx(ctx context.Context, log *slog.Logger, tx pgx.Tx) {
	if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		log.ErrorContext(ctx, "transaction rollback failed", slog.String("error", err.Error()))
	}
}
