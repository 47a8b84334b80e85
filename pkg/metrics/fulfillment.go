package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// FulfillmentMetrics counts order-scoped write operations by outcome. The
// outcome label is "ok", the rejection reason, or "error".
type FulfillmentMetrics struct {
	operations *prometheus.CounterVec
}

// NewFulfillmentMetrics registers the fulfillment counters on the provided registerer.
func NewFulfillmentMetrics(reg prometheus.Registerer) *FulfillmentMetrics {
	if reg == nil {
		return &FulfillmentMetrics{}
	}
	operations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "fulfillment_operations_total",
		Help: "Order-scoped fulfillment writes by operation and outcome.",
	}, []string{"operation", "outcome"})
	reg.MustRegister(operations)
	return &FulfillmentMetrics{operations: operations}
}

// IncOperation increments the counter for operation/outcome.
func (f *FulfillmentMetrics) IncOperation(operation, outcome string) {
	if f == nil || f.operations == nil {
		return
	}
	if outcome == "" {
		outcome = "ok"
	}
	f.operations.WithLabelValues(normalizeLabel(operation), outcome).Inc()
}
