package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/nerrad567/gray-logic-rego6xx/internal/endpoint"
)

// EndpointGauges keeps the last value of every numeric and binary endpoint.
// Text endpoints only count updates.
type EndpointGauges struct {
	values  *prometheus.GaugeVec
	updates *prometheus.CounterVec
}

var _ endpoint.Publisher = (*EndpointGauges)(nil)

// NewEndpointGauges creates the gauges and registers them with reg.
func NewEndpointGauges(namespace string, reg prometheus.Registerer) *EndpointGauges {
	ns := namespaceOr(namespace)
	g := &EndpointGauges{
		values: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: ns,
			Name:      "endpoint_value",
			Help:      "Last value read from or written to an endpoint. Binary endpoints report 0 or 1.",
		}, []string{"id", "kind", "unit"}),
		updates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "endpoint_updates_total",
			Help:      "Values published per endpoint.",
		}, []string{"id"}),
	}
	reg.MustRegister(g.values, g.updates)
	return g
}

// Publish implements endpoint.Publisher.
func (g *EndpointGauges) Publish(d endpoint.Descriptor, v endpoint.Value) {
	g.updates.WithLabelValues(d.ID).Inc()

	switch v.Kind {
	case endpoint.KindTextSensor:
		return
	case endpoint.KindBinarySensor:
		b := 0.0
		if v.Bool {
			b = 1
		}
		g.values.WithLabelValues(d.ID, string(d.Kind), d.Unit).Set(b)
	default:
		g.values.WithLabelValues(d.ID, string(d.Kind), d.Unit).Set(v.Number)
	}
}
