package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus instruments for time accounting.
type Metrics struct {
	Flushes        prometheus.Counter
	TrackedMillis  prometheus.Counter
	StoreErrors    prometheus.Counter
	TabEvents      *prometheus.CounterVec
	TrackingActive prometheus.Gauge
}

// New creates the instruments and registers them with reg. Pass
// prometheus.DefaultRegisterer in production and a fresh registry in tests.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Flushes: f.NewCounter(prometheus.CounterOpts{
			Name: "sitetime_flushes_total",
			Help: "Total number of intervals flushed into the store",
		}),
		TrackedMillis: f.NewCounter(prometheus.CounterOpts{
			Name: "sitetime_tracked_milliseconds_total",
			Help: "Total active-tab milliseconds attributed to domains",
		}),
		StoreErrors: f.NewCounter(prometheus.CounterOpts{
			Name: "sitetime_store_errors_total",
			Help: "Total number of failed store reads or writes during accounting",
		}),
		TabEvents: f.NewCounterVec(prometheus.CounterOpts{
			Name: "sitetime_tab_events_total",
			Help: "Tab lifecycle events received, by event type",
		}, []string{"event"}),
		TrackingActive: f.NewGauge(prometheus.GaugeOpts{
			Name: "sitetime_tracking_active",
			Help: "1 while a domain is accruing time, 0 otherwise",
		}),
	}
}

// ObserveFlush records one flushed interval of ms milliseconds.
func (m *Metrics) ObserveFlush(ms int64) {
	if m == nil {
		return
	}
	m.Flushes.Inc()
	m.TrackedMillis.Add(float64(ms))
}

// IncrementStoreErrors counts a failed store call.
func (m *Metrics) IncrementStoreErrors() {
	if m == nil {
		return
	}
	m.StoreErrors.Inc()
}

// IncrementTabEvent counts a tab event of the given type.
func (m *Metrics) IncrementTabEvent(event string) {
	if m == nil {
		return
	}
	m.TabEvents.WithLabelValues(event).Inc()
}

// SetTracking reports whether an interval is open.
func (m *Metrics) SetTracking(active bool) {
	if m == nil {
		return
	}
	if active {
		m.TrackingActive.Set(1)
		return
	}
	m.TrackingActive.Set(0)
}
