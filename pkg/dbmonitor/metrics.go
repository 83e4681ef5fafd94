package dbmonitor

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// metricsSet holds the Prometheus collectors fed by the sampling loop.
// Gauges mirror the latest sample per pool; counters accumulate alerts and
// forwarded pool errors.
type metricsSet struct {
	totalConns  *prometheus.GaugeVec
	idleConns   *prometheus.GaugeVec
	waiting     *prometheus.GaugeVec
	poolSize    *prometheus.GaugeVec
	utilization *prometheus.GaugeVec
	alerts      *prometheus.CounterVec
	poolErrors  *prometheus.CounterVec
}

func newMetricsSet(reg prometheus.Registerer) *metricsSet {
	factory := promauto.With(reg)
	return &metricsSet{
		totalConns: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "dbcore",
			Subsystem: "pool",
			Name:      "total_connections",
			Help:      "Current total connections in the pool.",
		}, []string{"pool"}),
		idleConns: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "dbcore",
			Subsystem: "pool",
			Name:      "idle_connections",
			Help:      "Current idle connections in the pool.",
		}, []string{"pool"}),
		waiting: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "dbcore",
			Subsystem: "pool",
			Name:      "waiting_acquirers",
			Help:      "Callers currently blocked acquiring a connection.",
		}, []string{"pool"}),
		poolSize: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "dbcore",
			Subsystem: "pool",
			Name:      "max_connections",
			Help:      "Configured maximum connections for the pool.",
		}, []string{"pool"}),
		utilization: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "dbcore",
			Subsystem: "pool",
			Name:      "utilization_percent",
			Help:      "Total connections as a percentage of the configured maximum.",
		}, []string{"pool"}),
		alerts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dbcore",
			Subsystem: "pool",
			Name:      "alerts_total",
			Help:      "Pool alerts emitted, by type. Suppressed alerts are not counted.",
		}, []string{"pool", "type"}),
		poolErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dbcore",
			Subsystem: "pool",
			Name:      "errors_total",
			Help:      "Operational pool errors forwarded by the database layer.",
		}, []string{"pool"}),
	}
}

func (s *metricsSet) observe(pool string, sample Sample) {
	s.totalConns.WithLabelValues(pool).Set(float64(sample.Total))
	s.idleConns.WithLabelValues(pool).Set(float64(sample.Idle))
	s.waiting.WithLabelValues(pool).Set(float64(sample.Waiting))
	s.poolSize.WithLabelValues(pool).Set(float64(sample.PoolSize))
	s.utilization.WithLabelValues(pool).Set(sample.Utilization)
}
