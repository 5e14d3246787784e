package provision

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics records provisioning runs.
type Metrics struct {
	duration *prometheus.HistogramVec
}

// NewMetrics registers the provisioning collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "pillar",
			Subsystem: "provisioning",
			Name:      "duration_seconds",
			Help:      "Duration of tenant provisioning runs by result.",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}, []string{"result"}),
	}
	if reg != nil {
		reg.MustRegister(m.duration)
	}
	return m
}

func (m *Metrics) observe(err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "failure"
	}
	m.duration.WithLabelValues(result).Observe(elapsed.Seconds())
}
