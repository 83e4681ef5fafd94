package db

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
)

// execTx extends fakeTx with a canned Exec result.
type execTx struct {
	fakeTx
	tag     pgconn.CommandTag
	execErr error

	gotSQL  string
	gotArgs []any
}

func (f *execTx) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.gotSQL = sql
	f.gotArgs = args
	return f.tag, f.execErr
}

func TestSessionExec(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("returns rows affected", func(t *testing.T) {
		t.Parallel()

		tx := &execTx{tag: pgconn.NewCommandTag("UPDATE 3")}
		s := &Session{tx: tx}

		affected, err := s.Exec(ctx, "UPDATE enrollments SET status = $1 WHERE course_id = $2", "active", 42)
		require.NoError(t, err)
		require.Equal(t, int64(3), affected)
		require.Equal(t, "UPDATE enrollments SET status = $1 WHERE course_id = $2", tx.gotSQL)
		require.Equal(t, []any{"active", 42}, tx.gotArgs)
	})

	t.Run("surfaces exec failure", func(t *testing.T) {
		t.Parallel()

		execErr := errors.New("relation does not exist")
		s := &Session{tx: &execTx{execErr: execErr}}

		affected, err := s.Exec(ctx, "UPDATE nope SET x = 1")
		require.True(t, errors.Is(err, execErr))
		require.Zero(t, affected)
	})
}

func TestWithSession(t *testing.T) {
	t.Parallel()

	t.Run("runs the callback inside the transaction bracket", func(t *testing.T) {
		t.Parallel()

		tx := &fakeTx{}
		var got pgx.Tx
		err := runTx(context.Background(), discardLogger(), &fakeBeginner{tx: tx}, func(inner pgx.Tx) error {
			s := &Session{tx: inner}
			got = s.Tx()
			return nil
		})
		require.NoError(t, err)
		require.Same(t, tx, got)
		require.True(t, tx.committed)
	})
}
