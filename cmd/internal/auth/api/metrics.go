package api

import "github.com/prometheus/client_golang/prometheus"

// Metrics counts auth outcomes by event and result.
type Metrics struct {
	events *prometheus.CounterVec
}

// NewMetrics registers the auth collectors on reg. A nil reg yields unregistered collectors.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "moviescore",
			Subsystem: "auth",
			Name:      "events_total",
			Help:      "Auth operations by event and result.",
		}, []string{"event", "result"}),
	}
	if reg != nil {
		reg.MustRegister(m.events)
	}
	return m
}

func (m *Metrics) event(event, result string) {
	if m == nil {
		return
	}
	m.events.WithLabelValues(event, result).Inc()
}
