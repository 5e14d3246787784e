package tenant

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Resolution outcomes recorded by the middleware.
const (
	OutcomeResolved = "resolved"
	OutcomePublic   = "public"
	OutcomeDenied   = "denied"
)

// Metrics records tenant resolution results.
type Metrics struct {
	resolutions *prometheus.CounterVec
	faults      prometheus.Counter
	duration    prometheus.Histogram
}

// NewMetrics registers the resolution collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		resolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pillar",
			Subsystem: "tenant",
			Name:      "resolutions_total",
			Help:      "Tenant resolutions by outcome.",
		}, []string{"outcome"}),
		faults: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "pillar",
			Subsystem: "tenant",
			Name:      "resolution_faults_total",
			Help:      "Tenant resolutions that failed with an error.",
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "pillar",
			Subsystem: "tenant",
			Name:      "resolution_duration_seconds",
			Help:      "Time spent resolving the tenant of a request.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 12),
		}),
	}
	if reg != nil {
		reg.MustRegister(m.resolutions, m.faults, m.duration)
	}
	return m
}

func (m *Metrics) observe(outcome string, fault bool, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.resolutions.WithLabelValues(outcome).Inc()
	if fault {
		m.faults.Inc()
	}
	m.duration.Observe(elapsed.Seconds())
}
