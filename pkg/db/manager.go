package db

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"github.com/coursekit/dbcore/pkg/dbmonitor"
)

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithLogger sets the logger. Defaults to a discard logger.
func WithLogger(log *slog.Logger) ManagerOption {
	return func(m *Manager) {
		if log != nil {
			m.log = log
		}
	}
}

// WithMonitor attaches a connection monitor. The manager registers both
// pools with it during Initialize, starts its sampling loop, and stops it
// during Close.
func WithMonitor(monitor *dbmonitor.Monitor) ManagerOption {
	return func(m *Manager) {
		m.monitor = monitor
	}
}

// Manager owns exactly two connection pools: a write-oriented pool and a
// read-oriented pool, sized as fractions of the configured total capacity.
// All access is gated through explicit initialization; accessors fail with
// ErrNotInitialized before Initialize or after Close rather than handing out
// a nil pool silently.
//
// Construct one Manager at process start and pass it by reference to every
// consumer. There is no package-level instance.
type Manager struct {
	cfg     Config
	log     *slog.Logger
	monitor *dbmonitor.Monitor

	mu    sync.RWMutex
	write *poolTracker
	read  *poolTracker
}

// NewManager validates the configuration and returns an uninitialized
// manager. No network I/O happens until Initialize.
func NewManager(cfg Config, opts ...ManagerOption) (*Manager, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	m := &Manager{
		cfg: cfg,
		log: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Initialize builds both pools, probing each with retry and backoff, and
// starts the connection monitor when one is attached. Calling Initialize on
// an already initialized manager is a no-op.
func (m *Manager) Initialize(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.write != nil {
		m.log.DebugContext(ctx, "database manager already initialized")
		return nil
	}

	writeMax := m.cfg.writeMaxConns()
	readMax := m.cfg.readMaxConns()
	m.log.InfoContext(ctx, "initializing database pools",
		slog.Int("write_max_conns", int(writeMax)),
		slog.Int("read_max_conns", int(readMax)),
	)

	writePool, err := connectPool(ctx, m.log, m.cfg, m.cfg.WriteConnString, "write", writeMax)
	if err != nil {
		return err
	}

	readPool, err := connectPool(ctx, m.log, m.cfg, m.cfg.ReadConnString, "read", readMax)
	if err != nil {
		writePool.Close()
		return err
	}

	m.write = &poolTracker{name: "write", pool: writePool, monitor: m.monitor}
	m.read = &poolTracker{name: "read", pool: readPool, monitor: m.monitor}

	if m.monitor != nil {
		m.monitor.Attach("write", m.write)
		m.monitor.Attach("read", m.read)
		// The sampling loop must outlive the initialization context; it is
		// stopped explicitly by Close.
		if err := m.monitor.Start(context.WithoutCancel(ctx)); err != nil {
			m.closeLocked()
			return err
		}
	}

	return nil
}

// MustInitialize initializes the manager or exits the process. Use for
// simple applications where startup failure is fatal.
func (m *Manager) MustInitialize(ctx context.Context) {
	if err := m.Initialize(ctx); err != nil {
		m.log.ErrorContext(ctx, "failed to initialize database pools", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

// Close stops the monitor, closes both pools concurrently, and resets the
// manager to its uninitialized state so all accessors fail loudly again.
// Safe to call multiple times and after a partially failed Initialize.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closeLocked()
}

func (m *Manager) closeLocked() {
	if m.monitor != nil {
		m.monitor.Stop()
	}
	if m.write == nil && m.read == nil {
		return
	}

	// Close blocks until borrowed connections are returned; closing both
	// pools concurrently halves worst-case shutdown time.
	g := new(errgroup.Group)
	if t := m.write; t != nil {
		g.Go(func() error {
			t.pool.Close()
			return nil
		})
	}
	if t := m.read; t != nil {
		g.Go(func() error {
			t.pool.Close()
			return nil
		})
	}
	_ = g.Wait()

	m.write = nil
	m.read = nil
	m.log.Info("database pools closed")
}

// WritePool returns the live write pool or ErrNotInitialized.
func (m *Manager) WritePool() (*pgxpool.Pool, error) {
	t, err := m.writeTracker()
	if err != nil {
		return nil, err
	}
	return t.pool, nil
}

// ReadPool returns the live read pool or ErrNotInitialized.
func (m *Manager) ReadPool() (*pgxpool.Pool, error) {
	t, err := m.readTracker()
	if err != nil {
		return nil, err
	}
	return t.pool, nil
}

// WriteHandle returns a fresh query handle bound to the write pool. The
// handle is a cheap wrapper; the pool behind it is the expensive resource.
func (m *Manager) WriteHandle() (*Handle, error) {
	t, err := m.writeTracker()
	if err != nil {
		return nil, err
	}
	return newHandle(t, m.cfg.AcquireTimeout, m.cfg.QueryTimeout), nil
}

// ReadHandle returns a fresh query handle bound to the read pool.
func (m *Manager) ReadHandle() (*Handle, error) {
	t, err := m.readTracker()
	if err != nil {
		return nil, err
	}
	return newHandle(t, m.cfg.ReadAcquireTimeout, m.cfg.QueryTimeout), nil
}

func (m *Manager) writeTracker() (*poolTracker, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.write == nil {
		return nil, ErrNotInitialized
	}
	return m.write, nil
}

func (m *Manager) readTracker() (*poolTracker, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.read == nil {
		return nil, ErrNotInitialized
	}
	return m.read, nil
}

// poolTracker pairs a pool with the waiting-acquirer counter. pgxpool does
// not expose how many callers are currently blocked in Acquire, so the layer
// counts in-flight acquisitions at its own boundary; the monitor and health
// prober read it through Stats.
type poolTracker struct {
	name    string
	pool    *pgxpool.Pool
	monitor *dbmonitor.Monitor
	waiting atomic.Int32
}

// acquire borrows a connection, bounded by the acquisition timeout. Failures
// are forwarded to the monitor's pool-error subscribers and surfaced to the
// caller unmodified; operational acquisition is never retried.
func (t *poolTracker) acquire(ctx context.Context, timeout time.Duration) (*pgxpool.Conn, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	t.waiting.Add(1)
	conn, err := t.pool.Acquire(ctx)
	t.waiting.Add(-1)
	if err != nil {
		t.recordError(err)
		return nil, err
	}
	return conn, nil
}

func (t *poolTracker) recordError(err error) {
	if t.monitor != nil {
		t.monitor.RecordPoolError(t.name, err)
	}
}

// Stats implements dbmonitor.Source.
func (t *poolTracker) Stats() dbmonitor.PoolStats {
	stat := t.pool.Stat()
	return dbmonitor.PoolStats{
		Total:   stat.TotalConns(),
		Idle:    stat.IdleConns(),
		Waiting: t.waiting.Load(),
		Max:     stat.MaxConns(),
	}
}
