// Package health provides HTTP handlers for health probes.
//
// This package implements liveness and readiness endpoints compatible with
// Docker, Kubernetes, and 3rd-party monitoring services. It integrates with
// the healthcheck closures exposed by the db manager and related packages.
//
// # Main Functions
//
// [LivenessHandler] provides a simple always-OK endpoint for process liveness.
// [ReadinessHandler] executes a set of [Checks] and returns service readiness.
// [StatusHandler] exposes a detailed status document, such as per-pool
// connection counters from the db manager.
//
// # Quick Start
//
// Register health endpoints on your router:
//
//	r.Get("/health/live", health.LivenessHandler())
//	r.Get("/health/ready", health.ReadinessHandler(health.Checks{
//	    "postgres": manager.Healthcheck(),
//	}))
//	r.Get("/health/db", health.StatusHandler(func(ctx context.Context) (any, bool) {
//	    s := manager.CheckHealth(ctx)
//	    return s, s.Healthy
//	}))
//
// # Response Formats
//
// By default, handlers respond with plain text for compatibility with probes.
// Request JSON by setting Accept: application/json header or ?format=json:
//
//	curl http://localhost:8080/health/ready?format=json
//
// Plain text responses:
//   - 200 OK: "OK"
//   - 503 Service Unavailable: "Service Unavailable"
//
// JSON response structure:
//
//	{
//	  "status": "healthy",
//	  "latency_ms": 4,
//	  "checks": {
//	    "postgres": {"status": "healthy"}
//	  }
//	}
//
// # Configuration Options
//
// Configure timeout and logging:
//
//	r.Get("/health/ready", health.ReadinessHandler(checks,
//	    health.WithTimeout(3*time.Second),
//	    health.WithLogger(logger),
//	))
//
// Checks run in parallel with a shared timeout; a failing check never aborts
// the others, and every sub-result is reported individually.
package health
