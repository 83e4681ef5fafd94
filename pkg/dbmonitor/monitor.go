package dbmonitor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/robfig/cron/v3"
)

// Default monitor tuning. Values are deliberately conservative: the monitor
// is diagnostic and must stay cheap relative to the pools it watches.
const (
	defaultInterval             = 30 * time.Second
	defaultHistoryWindow        = 10 * time.Minute
	defaultAlertCooldown        = 5 * time.Minute
	defaultUtilizationThreshold = 80.0
	defaultLeakUtilization      = 70.0
	defaultLeakIdleRatio        = 0.2
	defaultLeakSamples          = 5
	defaultLeakSizeRatio        = 0.8
)

// Option configures a Monitor.
type Option func(*Monitor)

// WithLogger sets the logger. Defaults to a discard logger.
func WithLogger(log *slog.Logger) Option {
	return func(m *Monitor) {
		if log != nil {
			m.log = log
		}
	}
}

// WithInterval sets the sampling interval.
// Default: 30 seconds
func WithInterval(d time.Duration) Option {
	return func(m *Monitor) {
		if d > 0 {
			m.interval = d
		}
	}
}

// WithHistoryWindow sets how far back per-pool samples are retained.
// Default: 10 minutes
func WithHistoryWindow(d time.Duration) Option {
	return func(m *Monitor) {
		if d > 0 {
			m.window = d
		}
	}
}

// WithAlertCooldown sets the minimum time between two emissions of the same
// alert type for the same pool.
// Default: 5 minutes
func WithAlertCooldown(d time.Duration) Option {
	return func(m *Monitor) {
		if d > 0 {
			m.cooldown = d
		}
	}
}

// WithUtilizationThreshold sets the HIGH_UTILIZATION threshold in percent.
// Default: 80
func WithUtilizationThreshold(pct float64) Option {
	return func(m *Monitor) {
		if pct > 0 {
			m.utilizationThreshold = pct
		}
	}
}

// WithCronSchedule replaces the fixed sampling interval with a cron
// expression (standard five-field format). Useful when sampling should align
// with an external scrape schedule.
func WithCronSchedule(expr string) Option {
	return func(m *Monitor) {
		m.scheduleExpr = expr
	}
}

// WithRegisterer sets the Prometheus registerer for pool gauges and alert
// counters. Defaults to the global registerer. Pass a fresh registry in
// tests to avoid duplicate registration.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(m *Monitor) {
		if reg != nil {
			m.registerer = reg
		}
	}
}

// Monitor periodically samples attached pools, keeps a bounded history per
// pool, and emits alerts when saturation patterns show up. All state is
// guarded by a single mutex; the sampling loop is the only writer of history
// and cooldown state.
type Monitor struct {
	log                  *slog.Logger
	interval             time.Duration
	window               time.Duration
	cooldown             time.Duration
	utilizationThreshold float64
	scheduleExpr         string
	registerer           prometheus.Registerer
	metrics              *metricsSet
	now                  func() time.Time

	mu            sync.Mutex
	sources       map[string]Source
	history       map[string][]Sample
	lastAlert     map[string]time.Time
	alertHandlers []AlertHandler
	errorHandlers []PoolErrorHandler
	running       bool
	cancel        context.CancelFunc
	done          chan struct{}
}

// NewMonitor creates a monitor with the given options. Pools are attached
// separately via [Monitor.Attach] before Start.
func NewMonitor(opts ...Option) *Monitor {
	m := &Monitor{
		log:                  slog.New(slog.NewTextHandler(io.Discard, nil)),
		interval:             defaultInterval,
		window:               defaultHistoryWindow,
		cooldown:             defaultAlertCooldown,
		utilizationThreshold: defaultUtilizationThreshold,
		registerer:           prometheus.DefaultRegisterer,
		now:                  time.Now,
		sources:              make(map[string]Source),
		history:              make(map[string][]Sample),
		lastAlert:            make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.metrics = newMetricsSet(m.registerer)
	return m
}

// Attach registers a named pool to be sampled. Attaching the same name again
// replaces the source but keeps its history.
func (m *Monitor) Attach(name string, src Source) {
	if src == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sources[name] = src
}

// OnAlert registers a handler for emitted alerts.
func (m *Monitor) OnAlert(h AlertHandler) {
	if h == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.alertHandlers = append(m.alertHandlers, h)
}

// OnPoolError registers a handler for operational pool errors forwarded via
// [Monitor.RecordPoolError].
func (m *Monitor) OnPoolError(h PoolErrorHandler) {
	if h == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errorHandlers = append(m.errorHandlers, h)
}

// Start launches the sampling loop. Calling Start while the monitor is
// already running logs a warning and does nothing. Start fails if no pools
// have been attached or the cron schedule cannot be parsed.
func (m *Monitor) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		m.log.Warn("connection monitor already running")
		return nil
	}
	if len(m.sources) == 0 {
		m.mu.Unlock()
		return ErrNoSources
	}

	var schedule cron.Schedule
	if m.scheduleExpr != "" {
		parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
		s, err := parser.Parse(m.scheduleExpr)
		if err != nil {
			m.mu.Unlock()
			return errors.Join(ErrInvalidSchedule, err)
		}
		schedule = s
	}

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	m.cancel = cancel
	m.done = done
	m.running = true
	m.mu.Unlock()

	m.log.Info("connection monitor started",
		slog.Duration("interval", m.interval),
		slog.Duration("history_window", m.window),
		slog.Duration("alert_cooldown", m.cooldown),
	)

	go m.run(runCtx, schedule, done)
	return nil
}

// Stop terminates the sampling loop and waits for it to exit. History and
// cooldown state are retained. Safe to call multiple times.
func (m *Monitor) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	cancel := m.cancel
	done := m.done
	m.running = false
	m.cancel = nil
	m.done = nil
	m.mu.Unlock()

	cancel()
	<-done
	m.log.Info("connection monitor stopped")
}

// Running reports whether the sampling loop is active.
func (m *Monitor) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// History returns a copy of the retained samples for a pool, oldest first.
func (m *Monitor) History(pool string) []Sample {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.history[pool])
}

// RecordPoolError forwards an operational pool error to subscribers. Used by
// the db layer when acquisitions or probes fail. Never blocks the caller on
// a misbehaving subscriber.
func (m *Monitor) RecordPoolError(pool string, err error) {
	if err == nil {
		return
	}
	m.mu.Lock()
	handlers := slices.Clone(m.errorHandlers)
	m.mu.Unlock()

	m.metrics.poolErrors.WithLabelValues(pool).Inc()
	m.log.Error("pool error",
		slog.String("pool", pool),
		slog.String("error", err.Error()),
	)
	for _, h := range handlers {
		m.safeNotifyError(h, pool, err)
	}
}

func (m *Monitor) run(ctx context.Context, schedule cron.Schedule, done chan struct{}) {
	defer close(done)

	if schedule == nil {
		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.sampleAll()
			}
		}
	}

	for {
		timer := time.NewTimer(time.Until(schedule.Next(m.now())))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			m.sampleAll()
		}
	}
}

// sampleAll takes one sample per attached pool, updates history and gauges,
// and evaluates alert conditions. Alerts are delivered outside the lock so a
// slow subscriber cannot stall state updates.
func (m *Monitor) sampleAll() {
	now := m.now()

	m.mu.Lock()
	names := make([]string, 0, len(m.sources))
	for name := range m.sources {
		names = append(names, name)
	}
	slices.Sort(names)

	var pending []Alert
	for _, name := range names {
		stats := m.sources[name].Stats()
		sample := newSample(now, stats)
		m.history[name] = evictOld(append(m.history[name], sample), now, m.window)
		m.metrics.observe(name, sample)
		pending = append(pending, m.evaluateLocked(name, sample, now)...)
	}
	handlers := slices.Clone(m.alertHandlers)
	m.mu.Unlock()

	for _, alert := range pending {
		for _, h := range handlers {
			m.safeNotify(h, alert)
		}
	}
}

func newSample(now time.Time, stats PoolStats) Sample {
	var utilization float64
	if stats.Max > 0 {
		utilization = float64(stats.Total) / float64(stats.Max) * 100
	}
	return Sample{
		Timestamp:   now,
		Total:       stats.Total,
		Idle:        stats.Idle,
		Waiting:     stats.Waiting,
		PoolSize:    stats.Max,
		Utilization: utilization,
	}
}

// evictOld drops samples older than the window. Samples are appended in
// time order, so eviction only trims the front.
func evictOld(history []Sample, now time.Time, window time.Duration) []Sample {
	cutoff := now.Add(-window)
	i := 0
	for i < len(history) && history[i].Timestamp.Before(cutoff) {
		i++
	}
	if i == 0 {
		return history
	}
	return slices.Clone(history[i:])
}

// evaluateLocked checks all alert conditions against the current sample and
// the recent history. Must be called with m.mu held. Returns the alerts that
// passed the cooldown gate.
func (m *Monitor) evaluateLocked(pool string, sample Sample, now time.Time) []Alert {
	var alerts []Alert

	emit := func(typ AlertType, msg string) {
		if a, ok := m.emitLocked(pool, typ, msg, sample, now); ok {
			alerts = append(alerts, a)
		}
	}

	if sample.Utilization > m.utilizationThreshold {
		emit(AlertHighUtilization, fmt.Sprintf(
			"%s pool utilization %.1f%% exceeds %.1f%% threshold",
			pool, sample.Utilization, m.utilizationThreshold))
	}

	if sample.Waiting > 0 {
		emit(AlertLongWaitTime, fmt.Sprintf(
			"%d client(s) waiting for a %s pool connection", sample.Waiting, pool))
	}

	if sample.PoolSize > 0 && sample.Total >= sample.PoolSize && sample.Waiting > 0 {
		emit(AlertPoolExhaustion, fmt.Sprintf(
			"%s pool exhausted: %d/%d connections in use with %d waiting",
			pool, sample.Total, sample.PoolSize, sample.Waiting))
	}

	if leak, avgUtil := m.suspectedLeakLocked(pool, sample); leak {
		emit(AlertConnectionLeak, fmt.Sprintf(
			"%s pool shows a sustained leak pattern: avg utilization %.1f%% with almost no idle connections",
			pool, avgUtil))
	}

	return alerts
}

// suspectedLeakLocked applies the leak heuristic: over the last few samples
// the pool stayed busy (high utilization, low idle ratio) and is currently
// close to its configured size. Requires m.mu held.
func (m *Monitor) suspectedLeakLocked(pool string, sample Sample) (bool, float64) {
	history := m.history[pool]
	if len(history) < defaultLeakSamples {
		return false, 0
	}

	recent := history[len(history)-defaultLeakSamples:]
	var utilSum, idleRatioSum float64
	for _, s := range recent {
		utilSum += s.Utilization
		if s.Total > 0 {
			idleRatioSum += float64(s.Idle) / float64(s.Total)
		} else {
			idleRatioSum += 1
		}
	}
	avgUtil := utilSum / float64(defaultLeakSamples)
	avgIdleRatio := idleRatioSum / float64(defaultLeakSamples)

	if avgUtil <= defaultLeakUtilization {
		return false, avgUtil
	}
	if avgIdleRatio >= defaultLeakIdleRatio {
		return false, avgUtil
	}
	if sample.PoolSize <= 0 || float64(sample.Total) <= defaultLeakSizeRatio*float64(sample.PoolSize) {
		return false, avgUtil
	}
	return true, avgUtil
}

// emitLocked applies the per-pool, per-type cooldown and constructs the
// alert. The cooldown timestamp is the only persisted alert state.
func (m *Monitor) emitLocked(pool string, typ AlertType, msg string, sample Sample, now time.Time) (Alert, bool) {
	key := pool + "/" + string(typ)
	if last, ok := m.lastAlert[key]; ok && now.Sub(last) < m.cooldown {
		return Alert{}, false
	}
	m.lastAlert[key] = now

	alert := Alert{
		ID:        uuid.New(),
		Pool:      pool,
		Type:      typ,
		Message:   msg,
		Timestamp: now,
		Metrics:   sample,
	}
	m.metrics.alerts.WithLabelValues(pool, string(typ)).Inc()
	m.log.Warn("pool alert",
		slog.String("pool", pool),
		slog.String("type", string(typ)),
		slog.String("message", msg),
	)
	return alert, true
}

func (m *Monitor) safeNotify(h AlertHandler, alert Alert) {
	defer func() {
		if r := recover(); r != nil {
			m.log.Error("alert handler panicked", slog.Any("panic", r))
		}
	}()
	h(alert)
}

func (m *Monitor) safeNotifyError(h PoolErrorHandler, pool string, err error) {
	defer func() {
		if r := recover(); r != nil {
			m.log.Error("pool error handler panicked", slog.Any("panic", r))
		}
	}()
	h(pool, err)
}
