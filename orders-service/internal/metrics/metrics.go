// Package metrics holds the Prometheus collectors of the orders service.
package metrics

import "github.com/prometheus/client_golang/prometheus"

type Metrics struct {
	OrdersCreated            prometheus.Counter
	Transitions              *prometheus.CounterVec
	NotificationsFailed      prometheus.Counter
	CustomerAggregateFailure prometheus.Counter
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		OrdersCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "orders_created_total",
			Help: "Orders persisted.",
		}),
		Transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "order_transitions_total",
			Help: "Effective order status transitions.",
		}, []string{"from", "to"}),
		NotificationsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "notifications_failed_total",
			Help: "Customer notifications that could not be dispatched.",
		}),
		CustomerAggregateFailure: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "customer_aggregate_failures_total",
			Help: "Orders whose customer aggregate update failed.",
		}),
	}
	reg.MustRegister(m.OrdersCreated, m.Transitions, m.NotificationsFailed, m.CustomerAggregateFailure)
	return m
}
