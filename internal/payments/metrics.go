package payments

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	Calls *prometheus.HistogramVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Calls: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "checkout",
			Subsystem: "provider",
			Name:      "request_duration_seconds",
			Help:      "Payment provider call latency by operation and outcome.",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10},
		}, []string{"operation", "outcome"}),
	}
	reg.MustRegister(m.Calls)
	return m
}

func (m *Metrics) observe(op, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.Calls.WithLabelValues(op, outcome).Observe(d.Seconds())
}
