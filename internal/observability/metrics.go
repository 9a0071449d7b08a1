package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// forecast service.
type Metrics struct {
	ForecastRequests *prometheus.CounterVec // labels: outcome={ok,degraded,invalid}

	// Search path metrics.
	SearchDuration      prometheus.Histogram
	SearchAttempts      prometheus.Histogram
	SearchesDegraded    prometheus.Counter
	PoolAcquireTimeouts prometheus.Counter

	// Pool health.
	PoolSlotsHealthy prometheus.Gauge
	PoolSlotsBroken  prometheus.Gauge
	PoolLeasesActive prometheus.Gauge
	ServiceDegraded  prometheus.Gauge

	// Result publishing metrics.
	PublishRequests *prometheus.CounterVec // labels: outcome={ok,error}
	PublishEnabled  prometheus.Gauge
}

// NewMetrics creates and registers all service metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		ForecastRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "analog_forecast",
			Name:      "requests_total",
			Help:      "Forecast requests by outcome.",
		}, []string{"outcome"}),
		SearchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "analog_forecast",
			Name:      "search_duration_seconds",
			Help:      "Duration of the acquire-and-search sequence.",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
		SearchAttempts: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "analog_forecast",
			Name:      "search_attempts",
			Help:      "Backend query attempts per search, including the final one.",
			Buckets:   []float64{1, 2, 3, 4, 5},
		}),
		SearchesDegraded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "analog_forecast",
			Name:      "searches_degraded_total",
			Help:      "Searches answered from climatology instead of the index.",
		}),
		PoolAcquireTimeouts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "analog_forecast",
			Name:      "pool_acquire_timeouts_total",
			Help:      "Lease acquisitions that gave up waiting for a free slot.",
		}),
		PoolSlotsHealthy: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "analog_forecast",
			Name:      "pool_slots_healthy",
			Help:      "Backend slots that loaded successfully.",
		}),
		PoolSlotsBroken: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "analog_forecast",
			Name:      "pool_slots_broken",
			Help:      "Backend slots that failed to load and never entered rotation.",
		}),
		PoolLeasesActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "analog_forecast",
			Name:      "pool_leases_active",
			Help:      "Currently held backend leases.",
		}),
		ServiceDegraded: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "analog_forecast",
			Name:      "service_degraded",
			Help:      "1 when no healthy backend slots exist and all answers come from climatology.",
		}),
		PublishRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "analog_forecast",
			Name:      "publish_requests_total",
			Help:      "Forecast result publishes by outcome.",
		}, []string{"outcome"}),
		PublishEnabled: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "analog_forecast",
			Name:      "publish_enabled",
			Help:      "1 when result publishing is enabled, 0 otherwise.",
		}),
	}

	prometheus.MustRegister(
		m.ForecastRequests,
		m.SearchDuration,
		m.SearchAttempts,
		m.SearchesDegraded,
		m.PoolAcquireTimeouts,
		m.PoolSlotsHealthy,
		m.PoolSlotsBroken,
		m.PoolLeasesActive,
		m.ServiceDegraded,
		m.PublishRequests,
		m.PublishEnabled,
	)

	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		ForecastRequests:    prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "analog_forecast", Name: "requests_total"}, []string{"outcome"}),
		SearchDuration:      prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "analog_forecast", Name: "search_duration_seconds"}),
		SearchAttempts:      prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "analog_forecast", Name: "search_attempts"}),
		SearchesDegraded:    prometheus.NewCounter(prometheus.CounterOpts{Namespace: "analog_forecast", Name: "searches_degraded_total"}),
		PoolAcquireTimeouts: prometheus.NewCounter(prometheus.CounterOpts{Namespace: "analog_forecast", Name: "pool_acquire_timeouts_total"}),
		PoolSlotsHealthy:    prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "analog_forecast", Name: "pool_slots_healthy"}),
		PoolSlotsBroken:     prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "analog_forecast", Name: "pool_slots_broken"}),
		PoolLeasesActive:    prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "analog_forecast", Name: "pool_leases_active"}),
		ServiceDegraded:     prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "analog_forecast", Name: "service_degraded"}),
		PublishRequests:     prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "analog_forecast", Name: "publish_requests_total"}, []string{"outcome"}),
		PublishEnabled:      prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "analog_forecast", Name: "publish_enabled"}),
	}
}
