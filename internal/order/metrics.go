package order

import "github.com/prometheus/client_golang/prometheus"

const (
	reconcileLive     = "live"
	reconcileFallback = "fallback"
)

type Metrics struct {
	SessionsCreated prometheus.Counter
	OrdersCreated   prometheus.Counter
	Reconciliations *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		SessionsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "checkout",
			Name:      "sessions_created_total",
			Help:      "Payment sessions opened with the provider.",
		}),
		OrdersCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "checkout",
			Name:      "orders_created_total",
			Help:      "Orders created with the provider and cached locally.",
		}),
		Reconciliations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "checkout",
			Name:      "reconciliations_total",
			Help:      "Order reads by result: live overlay or cached fallback.",
		}, []string{"result"}),
	}
	reg.MustRegister(m.SessionsCreated, m.OrdersCreated, m.Reconciliations)
	return m
}

func (m *Metrics) sessionCreated() {
	if m != nil {
		m.SessionsCreated.Inc()
	}
}

func (m *Metrics) orderCreated() {
	if m != nil {
		m.OrdersCreated.Inc()
	}
}

func (m *Metrics) reconciled(result string) {
	if m != nil {
		m.Reconciliations.WithLabelValues(result).Inc()
	}
}
