package db

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRetryProbe(t *testing.T) {
	t.Parallel()

	tinyBackoff := Backoff{Initial: time.Millisecond, Max: 2 * time.Millisecond, Multiplier: 2.0}

	t.Run("succeeds on first attempt", func(t *testing.T) {
		t.Parallel()

		calls := 0
		err := retryProbe(context.Background(), discardLogger(), "write", 5, tinyBackoff, func(context.Context) error {
			calls++
			return nil
		})
		require.NoError(t, err)
		require.Equal(t, 1, calls)
	})

	t.Run("retries until success", func(t *testing.T) {
		t.Parallel()

		calls := 0
		err := retryProbe(context.Background(), discardLogger(), "read", 5, tinyBackoff, func(context.Context) error {
			calls++
			if calls < 3 {
				return errors.New("connection refused")
			}
			return nil
		})
		require.NoError(t, err)
		require.Equal(t, 3, calls)
	})

	t.Run("exhausts the attempt budget", func(t *testing.T) {
		t.Parallel()

		probeErr := errors.New("connection refused")
		calls := 0
		err := retryProbe(context.Background(), discardLogger(), "write", 3, tinyBackoff, func(context.Context) error {
			calls++
			return probeErr
		})
		require.Error(t, err)
		require.Equal(t, 3, calls)
		require.True(t, errors.Is(err, ErrFailedToOpenDBConnection))
		require.True(t, errors.Is(err, probeErr))
		require.Contains(t, err.Error(), "write pool unreachable after 3 attempts")
	})

	t.Run("treats non-positive attempts as one", func(t *testing.T) {
		t.Parallel()

		calls := 0
		err := retryProbe(context.Background(), discardLogger(), "write", 0, tinyBackoff, func(context.Context) error {
			calls++
			return errors.New("boom")
		})
		require.Error(t, err)
		require.Equal(t, 1, calls)
	})

	t.Run("stops when the context is cancelled", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		calls := 0
		err := retryProbe(ctx, discardLogger(), "read", 10, Backoff{Initial: time.Hour, Max: time.Hour, Multiplier: 1.0}, func(context.Context) error {
			calls++
			cancel()
			return errors.New("connection refused")
		})
		require.Error(t, err)
		require.Equal(t, 1, calls)
		require.True(t, errors.Is(err, ErrFailedToOpenDBConnection))
		require.True(t, errors.Is(err, context.Canceled))
	})
}

func TestWait(t *testing.T) {
	t.Parallel()

	t.Run("returns after the delay", func(t *testing.T) {
		t.Parallel()

		require.NoError(t, wait(context.Background(), time.Millisecond))
	})

	t.Run("returns early on cancellation", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err := wait(ctx, time.Hour)
		require.True(t, errors.Is(err, context.Canceled))
	})
}
