package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRunChecks(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("no checks is healthy", func(t *testing.T) {
		t.Parallel()

		resp := runChecks(ctx, nil, newConfig())
		require.Equal(t, StatusHealthy, resp.Status)
		require.Empty(t, resp.Checks)
	})

	t.Run("all passing", func(t *testing.T) {
		t.Parallel()

		checks := Checks{
			"database": func(context.Context) error { return nil },
			"monitor":  func(context.Context) error { return nil },
		}
		resp := runChecks(ctx, checks, newConfig())
		require.Equal(t, StatusHealthy, resp.Status)
		require.Len(t, resp.Checks, 2)
		require.Equal(t, StatusHealthy, resp.Checks["database"].Status)
	})

	t.Run("one failure marks the response unhealthy", func(t *testing.T) {
		t.Parallel()

		checks := Checks{
			"database": func(context.Context) error { return errors.New("write pool: connection refused") },
			"monitor":  func(context.Context) error { return nil },
		}
		resp := runChecks(ctx, checks, newConfig())
		require.Equal(t, StatusUnhealthy, resp.Status)
		require.Equal(t, StatusUnhealthy, resp.Checks["database"].Status)
		require.Equal(t, "write pool: connection refused", resp.Checks["database"].Error)
		require.Equal(t, StatusHealthy, resp.Checks["monitor"].Status)
	})

	t.Run("slow check observes the timeout", func(t *testing.T) {
		t.Parallel()

		checks := Checks{
			"slow": func(ctx context.Context) error {
				select {
				case <-ctx.Done():
					return ErrCheckTimeout
				case <-time.After(time.Second):
					return nil
				}
			},
		}
		resp := runChecks(ctx, checks, newConfig(WithTimeout(10*time.Millisecond)))
		require.Equal(t, StatusUnhealthy, resp.Status)
		require.Equal(t, ErrCheckTimeout.Error(), resp.Checks["slow"].Error)
	})
}

func TestLivenessHandler(t *testing.T) {
	t.Parallel()

	t.Run("plain text", func(t *testing.T) {
		t.Parallel()

		req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
		rec := httptest.NewRecorder()
		LivenessHandler()(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, "OK", rec.Body.String())
	})

	t.Run("json via accept header", func(t *testing.T) {
		t.Parallel()

		req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
		req.Header.Set("Accept", "application/json")
		rec := httptest.NewRecorder()
		LivenessHandler()(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, "application/json", rec.Header().Get("Content-Type"))

		var resp Response
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Equal(t, StatusHealthy, resp.Status)
	})
}

func TestReadinessHandler(t *testing.T) {
	t.Parallel()

	t.Run("healthy", func(t *testing.T) {
		t.Parallel()

		handler := ReadinessHandler(Checks{
			"database": func(context.Context) error { return nil },
		})
		req := httptest.NewRequest(http.MethodGet, "/health/ready", nil)
		rec := httptest.NewRecorder()
		handler(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, "OK", rec.Body.String())
	})

	t.Run("unhealthy returns 503", func(t *testing.T) {
		t.Parallel()

		handler := ReadinessHandler(Checks{
			"database": func(context.Context) error { return errors.New("pool exhausted") },
		})
		req := httptest.NewRequest(http.MethodGet, "/health/ready?format=json", nil)
		rec := httptest.NewRecorder()
		handler(rec, req)

		require.Equal(t, http.StatusServiceUnavailable, rec.Code)

		var resp Response
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Equal(t, StatusUnhealthy, resp.Status)
		require.Equal(t, "pool exhausted", resp.Checks["database"].Error)
	})
}

func TestStatusHandler(t *testing.T) {
	t.Parallel()

	type poolDoc struct {
		Healthy bool  `json:"healthy"`
		Total   int32 `json:"total"`
	}

	t.Run("serializes the status document", func(t *testing.T) {
		t.Parallel()

		handler := StatusHandler(func(context.Context) (any, bool) {
			return poolDoc{Healthy: true, Total: 12}, true
		})
		req := httptest.NewRequest(http.MethodGet, "/health/db", nil)
		rec := httptest.NewRecorder()
		handler(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)

		var doc poolDoc
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doc))
		require.True(t, doc.Healthy)
		require.Equal(t, int32(12), doc.Total)
	})

	t.Run("unhealthy reports 503", func(t *testing.T) {
		t.Parallel()

		handler := StatusHandler(func(context.Context) (any, bool) {
			return poolDoc{}, false
		})
		req := httptest.NewRequest(http.MethodGet, "/health/db", nil)
		rec := httptest.NewRecorder()
		handler(rec, req)

		require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
}
