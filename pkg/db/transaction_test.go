package db

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"
)

// fakeTx implements just enough of pgx.Tx to observe the bracket logic; the
// embedded interface panics on anything else.
type fakeTx struct {
	pgx.Tx
	commitErr   error
	rollbackErr error

	committed  bool
	rolledBack bool
}

func (f *fakeTx) Commit(context.Context) error {
	f.committed = true
	return f.commitErr
}

func (f *fakeTx) Rollback(context.Context) error {
	f.rolledBack = true
	return f.rollbackErr
}

type fakeBeginner struct {
	tx       *fakeTx
	beginErr error
}

func (f *fakeBeginner) Begin(context.Context) (pgx.Tx, error) {
	if f.beginErr != nil {
		return nil, f.beginErr
	}
	return f.tx, nil
}

func TestRunTx(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("commits on success", func(t *testing.T) {
		t.Parallel()

		tx := &fakeTx{}
		err := runTx(ctx, discardLogger(), &fakeBeginner{tx: tx}, func(pgx.Tx) error {
			return nil
		})
		require.NoError(t, err)
		require.True(t, tx.committed)
		require.False(t, tx.rolledBack)
	})

	t.Run("rolls back on error", func(t *testing.T) {
		t.Parallel()

		fnErr := errors.New("constraint violation")
		tx := &fakeTx{}
		err := runTx(ctx, discardLogger(), &fakeBeginner{tx: tx}, func(pgx.Tx) error {
			return fnErr
		})
		require.True(t, errors.Is(err, fnErr))
		require.False(t, tx.committed)
		require.True(t, tx.rolledBack)
	})

	t.Run("rollback failure never masks the original error", func(t *testing.T) {
		t.Parallel()

		fnErr := errors.New("constraint violation")
		tx := &fakeTx{rollbackErr: errors.New("connection gone")}
		err := runTx(ctx, discardLogger(), &fakeBeginner{tx: tx}, func(pgx.Tx) error {
			return fnErr
		})
		require.True(t, errors.Is(err, fnErr))
		require.True(t, tx.rolledBack)
	})

	t.Run("rolls back on commit failure", func(t *testing.T) {
		t.Parallel()

		commitErr := errors.New("serialization failure")
		tx := &fakeTx{commitErr: commitErr}
		err := runTx(ctx, discardLogger(), &fakeBeginner{tx: tx}, func(pgx.Tx) error {
			return nil
		})
		require.True(t, errors.Is(err, commitErr))
		require.True(t, tx.rolledBack)
	})

	t.Run("ignores already-closed rollback after failed commit", func(t *testing.T) {
		t.Parallel()

		tx := &fakeTx{commitErr: errors.New("broken"), rollbackErr: pgx.ErrTxClosed}
		err := runTx(ctx, discardLogger(), &fakeBeginner{tx: tx}, func(pgx.Tx) error {
			return nil
		})
		require.Error(t, err)
		require.True(t, tx.rolledBack)
	})

	t.Run("rolls back and re-raises on panic", func(t *testing.T) {
		t.Parallel()

		tx := &fakeTx{}
		require.PanicsWithValue(t, "boom", func() {
			_ = runTx(ctx, discardLogger(), &fakeBeginner{tx: tx}, func(pgx.Tx) error {
				panic("boom")
			})
		})
		require.False(t, tx.committed)
		require.True(t, tx.rolledBack)
	})

	t.Run("surfaces begin failure", func(t *testing.T) {
		t.Parallel()

		beginErr := errors.New("no connection")
		err := runTx(ctx, discardLogger(), &fakeBeginner{beginErr: beginErr}, func(pgx.Tx) error {
			t.Fatal("fn must not run when begin fails")
			return nil
		})
		require.True(t, errors.Is(err, beginErr))
	})
}
