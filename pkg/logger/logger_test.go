package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

type ctxKey string

func jsonLogger(buf *bytes.Buffer, extractors ...ContextExtractor) *slog.Logger {
	handler := slog.NewJSONHandler(buf, nil)
	return slog.New(NewContextHandler(handler, extractors...))
}

func lastEntry(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	return entry
}

func TestContextHandler(t *testing.T) {
	t.Parallel()

	t.Run("injects extracted attributes", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		log := jsonLogger(&buf, StringExtractor(ctxKey("request_id"), "request_id"))

		ctx := context.WithValue(context.Background(), ctxKey("request_id"), "req-123")
		log.InfoContext(ctx, "enrollment created")

		entry := lastEntry(t, &buf)
		require.Equal(t, "enrollment created", entry["msg"])
		require.Equal(t, "req-123", entry["request_id"])
	})

	t.Run("skips attributes missing from context", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		log := jsonLogger(&buf, StringExtractor(ctxKey("request_id"), "request_id"))

		log.InfoContext(context.Background(), "no request scope")

		entry := lastEntry(t, &buf)
		require.NotContains(t, entry, "request_id")
	})

	t.Run("filters nil extractors", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		log := jsonLogger(&buf, nil, StringExtractor(ctxKey("tenant"), "tenant"))

		ctx := context.WithValue(context.Background(), ctxKey("tenant"), "acme")
		log.InfoContext(ctx, "ok")

		entry := lastEntry(t, &buf)
		require.Equal(t, "acme", entry["tenant"])
	})

	t.Run("preserves attributes through WithAttrs and WithGroup", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		log := jsonLogger(&buf, StringExtractor(ctxKey("request_id"), "request_id"))
		log = log.With(slog.String("component", "db")).WithGroup("pool")

		ctx := context.WithValue(context.Background(), ctxKey("request_id"), "req-9")
		log.InfoContext(ctx, "acquired", slog.String("name", "write"))

		entry := lastEntry(t, &buf)
		require.Equal(t, "db", entry["component"])

		group, ok := entry["pool"].(map[string]any)
		require.True(t, ok)
		require.Equal(t, "write", group["name"])
		require.Equal(t, "req-9", group["request_id"])
	})
}

func TestNewNope(t *testing.T) {
	t.Parallel()

	log := NewNope()
	require.NotNil(t, log)
	log.Info("discarded")
}

func TestNewWithSentry(t *testing.T) {
	t.Parallel()

	t.Run("falls back to stdout without a DSN", func(t *testing.T) {
		t.Parallel()

		log := NewWithSentry(SentryConfig{})
		require.NotNil(t, log)
	})
}
