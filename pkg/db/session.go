package db

import (
	"context"

	"github.com/jackc/pgx/v5"
)

// Session wraps a transaction-bound connection in a higher-level query
// surface: struct scanning via pgx row collection plus plain passthroughs.
// A Session is only valid inside the WithSession callback that produced it.
type Session struct {
	tx pgx.Tx
}

// Tx exposes the underlying transaction for statements the convenience
// methods do not cover (batches, copy).
func (s *Session) Tx() pgx.Tx {
	return s.tx
}

// Exec runs a statement and returns the number of rows affected.
func (s *Session) Exec(ctx context.Context, sql string, args ...any) (int64, error) {
	tag, err := s.tx.Exec(ctx, sql, args...)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// Query runs a query inside the transaction.
func (s *Session) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return s.tx.Query(ctx, sql, args...)
}

// QueryRow runs a single-row query inside the transaction.
func (s *Session) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return s.tx.QueryRow(ctx, sql, args...)
}

// WithSession is the session-flavored form of [Manager.WithTx]: the same
// transaction bracket, but fn receives a Session instead of a raw pgx.Tx.
func (m *Manager) WithSession(ctx context.Context, fn func(s *Session) error) error {
	return m.WithTx(ctx, func(tx pgx.Tx) error {
		return fn(&Session{tx: tx})
	})
}

// One runs a query expected to return exactly one row and scans it into T
// by column name.
func One[T any](ctx context.Context, s *Session, sql string, args ...any) (T, error) {
	rows, err := s.tx.Query(ctx, sql, args...)
	if err != nil {
		var zero T
		return zero, err
	}
	return pgx.CollectOneRow(rows, pgx.RowToStructByName[T])
}

// All runs a query and scans every row into a slice of T by column name.
func All[T any](ctx context.Context, s *Session, sql string, args ...any) ([]T, error) {
	rows, err := s.tx.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowToStructByName[T])
}
