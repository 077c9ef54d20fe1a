package inventory

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	resultReserved     = "reserved"
	resultInsufficient = "insufficient"
	resultError        = "error"
)

// Metrics are the service's Prometheus collectors.
type Metrics struct {
	ProcessedOrders prometheus.Counter
	MalformedEvents prometheus.Counter
	Reservations    *prometheus.CounterVec
}

// NewMetrics registers the collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ProcessedOrders: factory.NewCounter(prometheus.CounterOpts{
			Name: "orders_processed_total",
			Help: "Orders processed from the order_created queue",
		}),
		MalformedEvents: factory.NewCounter(prometheus.CounterOpts{
			Name: "orders_malformed_total",
			Help: "Order events dropped because their body could not be decoded",
		}),
		Reservations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "inventory_reservations_total",
			Help: "Reservation attempts by result",
		}, []string{"result"}),
	}
}
