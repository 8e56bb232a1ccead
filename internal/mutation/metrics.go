package mutation

import "github.com/prometheus/client_golang/prometheus"

type Metrics struct {
	total    *prometheus.CounterVec
	inFlight *prometheus.GaugeVec
}

// NewMetrics builds the executor collectors and registers them on reg when
// reg is not nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		total: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "taskboard",
			Name:      "mutations_total",
			Help:      "Settled mutations by kind and outcome.",
		}, []string{"kind", "outcome"}),
		inFlight: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "taskboard",
			Name:      "mutations_in_flight",
			Help:      "Mutations issued but not yet settled.",
		}, []string{"kind"}),
	}
	if reg != nil {
		reg.MustRegister(m.total, m.inFlight)
	}
	return m
}

func (m *Metrics) started(kind Kind) {
	if m == nil {
		return
	}
	m.inFlight.WithLabelValues(string(kind)).Inc()
}

func (m *Metrics) settled(kind Kind, outcome string) {
	if m == nil {
		return
	}
	m.inFlight.WithLabelValues(string(kind)).Dec()
	m.total.WithLabelValues(string(kind), outcome).Inc()
}
