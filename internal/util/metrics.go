package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CartMutationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_cart_mutations_total",
		Help: "Cart mutations by operation and result",
	}, []string{"op", "result"})

	CheckoutsStartedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "storefront_checkouts_started_total",
		Help: "Total number of checkouts that reached payment selection",
	})

	CheckoutsCancelledTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_checkouts_cancelled_total",
		Help: "Total number of cancelled checkouts",
	}, []string{"reason"})

	OrdersPlacedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_orders_placed_total",
		Help: "Total number of orders acknowledged by the order service",
	}, []string{"payment_method"})

	OrderSubmissionsFailedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "storefront_order_submissions_failed_total",
		Help: "Total number of order submissions that failed",
	})

	PaymentVerificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_payment_verifications_total",
		Help: "Gateway payment verifications by result",
	}, []string{"result"})

	BackendRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "storefront_backend_request_duration_seconds",
		Help:    "Latency of calls to the BasketBay backend",
		Buckets: prometheus.DefBuckets,
	}, []string{"call", "status"})

	NotificationsEvictedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "storefront_notifications_evicted_total",
		Help: "Pending notifications evicted because a queue was full",
	})

	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "storefront_active_sessions",
		Help: "Number of live shopper sessions",
	})

	StockEventsAppliedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "storefront_stock_events_applied_total",
		Help: "Stock adjustment events applied to session snapshots",
	})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
