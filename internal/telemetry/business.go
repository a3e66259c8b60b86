// Package telemetry exposes Prometheus metrics for business-level
// observability of the cart-to-order funnel.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// BusinessMetrics holds Prometheus metrics for cart and order activity.
type BusinessMetrics struct {
	// Cart
	CartItemsAdded   prometheus.Counter
	CartItemsRemoved prometheus.Counter
	CartCleared      prometheus.Counter

	// Orders
	OrdersCreated prometheus.Counter
	OrderValue    prometheus.Histogram

	// Notification dispatch
	NotificationsDispatched prometheus.Counter
	NotificationsDropped    prometheus.Counter
	NotificationsFailed     prometheus.Counter
}

// NewBusinessMetrics creates business metrics under the given namespace and
// registers them with reg. Pass prometheus.DefaultRegisterer in production;
// tests use their own registry so repeated construction cannot collide.
func NewBusinessMetrics(reg prometheus.Registerer, namespace string) *BusinessMetrics {
	if namespace == "" {
		namespace = "mercato"
	}
	factory := promauto.With(reg)

	return &BusinessMetrics{
		CartItemsAdded: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cart_items_added_total",
			Help:      "Total number of cart line additions or quantity updates",
		}),
		CartItemsRemoved: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cart_items_removed_total",
			Help:      "Total number of cart line removals",
		}),
		CartCleared: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cart_cleared_total",
			Help:      "Total number of carts cleared",
		}),
		OrdersCreated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_created_total",
			Help:      "Total number of orders created from carts",
		}),
		OrderValue: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "order_value",
			Help:      "Distribution of order totals in currency units",
			Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000},
		}),
		NotificationsDispatched: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_dispatched_total",
			Help:      "Total number of order notifications handed to the dispatcher",
		}),
		NotificationsDropped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_dropped_total",
			Help:      "Total number of order notifications dropped due to a full queue",
		}),
		NotificationsFailed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_failed_total",
			Help:      "Total number of order notifications whose publish failed",
		}),
	}
}
