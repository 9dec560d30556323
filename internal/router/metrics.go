package router

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes Prometheus collectors that report router activity.
type Metrics struct {
	stageDuration *prometheus.HistogramVec
	stageFailures *prometheus.CounterVec
	queriesActive prometheus.Gauge
}

var (
	defaultMetricsOnce sync.Once
	sharedMetrics      *Metrics
)

// defaultMetrics returns the package-level metrics instance registered with
// the global Prometheus registry. The collectors are created only once to
// avoid duplicate registration panics when the router is instantiated
// multiple times.
func defaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		sharedMetrics = MustNewMetrics(prometheus.DefaultRegisterer)
	})
	return sharedMetrics
}

// MustNewMetrics constructs a Metrics instance using the provided
// registerer. Supply a fresh registry when unique collectors are required,
// for example in tests. Registration errors panic, mirroring promauto.
func MustNewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	stageDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "conclave",
			Subsystem: "router",
			Name:      "stage_duration_seconds",
			Help:      "Duration spent in each router stage.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"stage", "status"},
	)
	stageFailures := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "conclave",
			Subsystem: "router",
			Name:      "stage_failures_total",
			Help:      "Total number of stage executions that failed.",
		},
		[]string{"stage", "reason"},
	)
	queriesActive := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "conclave",
			Subsystem: "router",
			Name:      "queries_active",
			Help:      "Number of queries currently traversing the router.",
		},
	)

	collectors := []prometheus.Collector{stageDuration, stageFailures, queriesActive}
	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			if already, ok := err.(prometheus.AlreadyRegisteredError); ok {
				switch collector.(type) {
				case *prometheus.HistogramVec:
					stageDuration = already.ExistingCollector.(*prometheus.HistogramVec)
				case *prometheus.CounterVec:
					stageFailures = already.ExistingCollector.(*prometheus.CounterVec)
				case prometheus.Gauge:
					queriesActive = already.ExistingCollector.(prometheus.Gauge)
				}
				continue
			}
			panic(err)
		}
	}

	return &Metrics{
		stageDuration: stageDuration,
		stageFailures: stageFailures,
		queriesActive: queriesActive,
	}
}

// ObserveStage records the time spent in a stage with the given status.
func (m *Metrics) ObserveStage(stage, status string, duration time.Duration) {
	if m == nil || m.stageDuration == nil {
		return
	}
	m.stageDuration.WithLabelValues(stage, status).Observe(duration.Seconds())
}

// IncStageFailure increments the failure counter for a stage.
func (m *Metrics) IncStageFailure(stage, reason string) {
	if m == nil || m.stageFailures == nil {
		return
	}
	m.stageFailures.WithLabelValues(stage, reason).Inc()
}

// IncActiveQueries marks a query as in flight.
func (m *Metrics) IncActiveQueries() {
	if m == nil || m.queriesActive == nil {
		return
	}
	m.queriesActive.Inc()
}

// DecActiveQueries marks a query as finished.
func (m *Metrics) DecActiveQueries() {
	if m == nil || m.queriesActive == nil {
		return
	}
	m.queriesActive.Dec()
}
