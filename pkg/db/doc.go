// Package db provides pooled PostgreSQL access with a read/write split,
// startup retry, transaction coordination, and health probing.
//
// This package wraps [github.com/jackc/pgx/v5/pgxpool] behind a Manager that
// owns exactly two pools: a write-oriented pool and a read-oriented pool,
// sized as fractions of one configured total capacity. Repositories consume
// the layer through four surfaces only: a read handle, a write handle, a
// transactional unit of work, and a health query.
//
// # Configuration
//
// All settings are loaded from environment variables or a YAML file:
//
//	DATABASE_WRITE_CONN_URL      - PostgreSQL URL for the write pool (required)
//	DATABASE_READ_CONN_URL       - URL for the read pool (default: write URL)
//	DATABASE_MAX_TOTAL_CONNS     - Capacity split across both pools (default: 20)
//	DATABASE_WRITE_FRACTION      - Write pool share of the total (default: 0.6)
//	DATABASE_MIN_CONNS           - Minimum connections per pool (default: 2)
//	DATABASE_MAX_CONN_IDLE_TIME  - Maximum connection idle time (default: 10m)
//	DATABASE_MAX_CONN_LIFETIME   - Maximum connection lifetime (default: 30m)
//	DATABASE_HEALTHCHECK_PERIOD  - pgx keep-alive interval (default: 1m)
//	DATABASE_ACQUIRE_TIMEOUT     - Write pool acquisition timeout (default: 5s)
//	DATABASE_READ_ACQUIRE_TIMEOUT- Read pool acquisition timeout (default: 8s)
//	DATABASE_QUERY_TIMEOUT       - Per-statement guard on handles (default: 30s)
//	DATABASE_PROBE_TIMEOUT       - Probe query timeout (default: 3s)
//	DATABASE_CONNECT_ATTEMPTS    - Startup probe attempts (default: 5)
//
// # Usage
//
//	cfg, err := db.LoadConfig("config.yaml")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	manager, err := db.NewManager(cfg,
//		db.WithLogger(logger),
//		db.WithMonitor(monitor),
//	)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	if err := manager.Initialize(ctx); err != nil {
//		log.Fatal(err) // pool construction exhausted all retries
//	}
//	defer manager.Close()
//
// During Initialize each pool is probed with a trivial query, retried with
// exponential backoff (1s doubled per attempt, capped at 30s) up to the
// configured attempt budget. Construction failures are fatal and loud; the
// process should not serve traffic without its pools.
//
// # Handles
//
// Repositories issue single statements through fresh, cheap handles:
//
//	h, err := manager.ReadHandle()
//	if err != nil {
//		return err // ErrNotInitialized: programming error
//	}
//	row := h.QueryRow(ctx, "SELECT title FROM courses WHERE id = $1", id)
//
// Every handle statement borrows a connection and returns it when the result
// is consumed. Acquisition is bounded by the configured timeout and is never
// retried by this layer; callers decide whether to retry at a higher level.
//
// # Transactions
//
// [Manager.WithTx] brackets a unit of work in begin/commit/rollback on a
// write pool connection:
//
//	err := manager.WithTx(ctx, func(tx pgx.Tx) error {
//		if _, err := tx.Exec(ctx, enrollStmt, courseID, userID); err != nil {
//			return err
//		}
//		_, err := tx.Exec(ctx, auditStmt, userID)
//		return err
//	})
//
// [InTx] returns a value, and [Manager.WithSession] exposes the same
// transaction through a convenience [Session] with struct scanning helpers
// ([One], [All]). No transaction state survives a single call; nested calls
// each borrow their own connection.
//
// # Health
//
// [Manager.CheckHealth] probes both pools independently and never fails:
// errors land in the result's Error field. [Manager.Healthcheck] adapts it
// to the func(context.Context) error shape used by health endpoints.
//
// # Monitoring
//
// Constructed with [WithMonitor], the manager registers both pools with a
// dbmonitor.Monitor during Initialize and stops it on Close. Acquisition and
// probe failures are forwarded to the monitor's pool-error subscribers.
//
// # Error Handling
//
// The package defines sentinel errors for common failure modes:
//
//   - [ErrInvalidConfig] - Configuration failed validation
//   - [ErrFailedToParseConfig] - Invalid connection string format
//   - [ErrFailedToOpenDBConnection] - Probe loop exhausted all attempts
//   - [ErrNotInitialized] - Accessor called before Initialize or after Close
//   - [ErrHealthcheckFailed] - A pool failed its probe query
//
// Errors are wrapped using [errors.Join] to preserve the original context.
package db
