package odm

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the collectors updated by Document.Update.
type Metrics struct {
	// Updates counts update calls by result: applied, skipped or failed.
	Updates *prometheus.CounterVec
	// Directives counts the entries of applied update sets by kind.
	Directives *prometheus.CounterVec
}

func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		Updates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "document",
			Name:      "updates_total",
		}, []string{"result"}),
		Directives: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "document",
			Name:      "directives_total",
		}, []string{"kind"}),
	}
}

var DefaultMetrics = NewMetrics("odm")

// Register adds the collectors to a registry.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{m.Updates, m.Directives} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// RegisterMetrics registers DefaultMetrics.
func RegisterMetrics(reg prometheus.Registerer) error {
	return DefaultMetrics.Register(reg)
}

func (m *Metrics) observe(result string, updates Updates) {
	m.Updates.WithLabelValues(result).Inc()
	for _, value := range updates {
		m.Directives.WithLabelValues(directiveName(value)).Inc()
	}
}
