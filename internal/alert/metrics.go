package alert

import (
	"github.com/prometheus/client_golang/prometheus"

	"basewatch/internal/types"
)

// Metrics exposes the monitoring pipeline's counters. A nil *Metrics is a
// no-op, so tests can run without a registry.
type Metrics struct {
	PriceCycles      prometheus.Counter
	WalletCycles     prometheus.Counter
	AlertsEvaluated  prometheus.Counter
	EvaluationErrors prometheus.Counter
	Notifications    *prometheus.CounterVec
	ActiveAlerts     prometheus.Gauge
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		PriceCycles: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "basewatch",
			Subsystem: "alerts",
			Name:      "price_cycles_total",
			Help:      "The total number of price monitoring cycles run",
		}),
		WalletCycles: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "basewatch",
			Subsystem: "alerts",
			Name:      "wallet_cycles_total",
			Help:      "The total number of wallet monitoring cycles run",
		}),
		AlertsEvaluated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "basewatch",
			Subsystem: "alerts",
			Name:      "evaluated_total",
			Help:      "The total number of alert evaluations",
		}),
		EvaluationErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "basewatch",
			Subsystem: "alerts",
			Name:      "evaluation_errors_total",
			Help:      "The total number of evaluations skipped on collaborator failure",
		}),
		Notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "basewatch",
			Subsystem: "alerts",
			Name:      "notifications_total",
			Help:      "The total number of notifications produced, by alert type",
		}, []string{"type"}),
		ActiveAlerts: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "basewatch",
			Subsystem: "alerts",
			Name:      "active",
			Help:      "The current number of active alerts",
		}),
	}

	reg.MustRegister(m.PriceCycles, m.WalletCycles, m.AlertsEvaluated,
		m.EvaluationErrors, m.Notifications, m.ActiveAlerts)
	return m
}

func (m *Metrics) incPriceCycles() {
	if m != nil {
		m.PriceCycles.Inc()
	}
}

func (m *Metrics) incWalletCycles() {
	if m != nil {
		m.WalletCycles.Inc()
	}
}

func (m *Metrics) incEvaluated() {
	if m != nil {
		m.AlertsEvaluated.Inc()
	}
}

func (m *Metrics) incErrors() {
	if m != nil {
		m.EvaluationErrors.Inc()
	}
}

func (m *Metrics) incNotifications(t types.AlertType) {
	if m != nil {
		m.Notifications.WithLabelValues(string(t)).Inc()
	}
}

func (m *Metrics) setActiveAlerts(n int) {
	if m != nil {
		m.ActiveAlerts.Set(float64(n))
	}
}
