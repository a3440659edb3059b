package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// ============================================================
// Calculator Metrics
// ============================================================

type Metrics struct {
	commands           *prometheus.CounterVec
	subtractRejections prometheus.Counter
	resets             *prometheus.CounterVec
	sessions           prometheus.Gauge
}

// New регистрирует коллекторы в reg. nil-*Metrics допустим и ничего не считает.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "refloor",
			Name:      "commands_total",
			Help:      "Calculator commands applied, by command.",
		}, []string{"command"}),
		subtractRejections: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "refloor",
			Name:      "subtract_rejections_total",
			Help:      "Subtract segment edits rejected because they exceeded the available area.",
		}),
		resets: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "refloor",
			Name:      "state_resets_total",
			Help:      "States reset to defaults, by reason.",
		}, []string{"reason"}),
		sessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "refloor",
			Name:      "sessions_active",
			Help:      "Calculator sessions held in memory.",
		}),
	}
	reg.MustRegister(m.commands, m.subtractRejections, m.resets, m.sessions)
	return m
}

func (m *Metrics) Command(name string) {
	if m == nil {
		return
	}
	m.commands.WithLabelValues(name).Inc()
}

func (m *Metrics) SubtractRejected() {
	if m == nil {
		return
	}
	m.subtractRejections.Inc()
}

func (m *Metrics) Reset(reason string) {
	if m == nil {
		return
	}
	m.resets.WithLabelValues(reason).Inc()
}

func (m *Metrics) SessionOpened() {
	if m == nil {
		return
	}
	m.sessions.Inc()
}

func (m *Metrics) SessionClosed() {
	if m == nil {
		return
	}
	m.sessions.Dec()
}
