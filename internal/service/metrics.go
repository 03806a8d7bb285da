package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics 是业务计数器，nil 时所有方法都是空操作。
type Metrics struct {
	ordersPlaced     *prometheus.CounterVec
	orderRevenue     prometheus.Counter
	approvals        *prometheus.CounterVec
	statusChanges    *prometheus.CounterVec
	payments         *prometheus.CounterVec
	returnsRequested prometheus.Counter
}

// NewMetrics registers the business collectors on reg (prometheus.DefaultRegisterer when nil).
func NewMetrics(reg prometheus.Registerer, namespace string) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if namespace == "" {
		namespace = "vibemall"
	}
	factory := promauto.With(reg)
	return &Metrics{
		ordersPlaced: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "shop",
			Name:      "orders_placed_total",
			Help:      "Orders placed, by payment method and resell flag.",
		}, []string{"payment_method", "resell"}),
		orderRevenue: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "shop",
			Name:      "order_revenue_total",
			Help:      "Sum of placed order totals in the shop currency.",
		}),
		approvals: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "shop",
			Name:      "order_approvals_total",
			Help:      "Approval decisions by outcome.",
		}, []string{"outcome"}),
		statusChanges: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "shop",
			Name:      "order_status_changes_total",
			Help:      "Order status transitions by target status.",
		}, []string{"status"}),
		payments: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "shop",
			Name:      "payment_confirmations_total",
			Help:      "Gateway payment confirmations by result.",
		}, []string{"result"}),
		returnsRequested: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "shop",
			Name:      "returns_requested_total",
			Help:      "Return requests submitted.",
		}),
	}
}

func (m *Metrics) orderPlaced(method string, resell bool, total float64) {
	if m == nil {
		return
	}
	flag := "false"
	if resell {
		flag = "true"
	}
	m.ordersPlaced.WithLabelValues(method, flag).Inc()
	if total > 0 {
		m.orderRevenue.Add(total)
	}
}

func (m *Metrics) approval(outcome string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.approvals.WithLabelValues(outcome).Add(float64(n))
}

func (m *Metrics) statusChanged(status string) {
	if m == nil {
		return
	}
	m.statusChanges.WithLabelValues(status).Inc()
}

func (m *Metrics) payment(result string) {
	if m == nil {
		return
	}
	m.payments.WithLabelValues(result).Inc()
}

func (m *Metrics) returnRequested() {
	if m == nil {
		return
	}
	m.returnsRequested.Inc()
}
