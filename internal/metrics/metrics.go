package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sajhabus",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total HTTP requests processed",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "sajhabus",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency in seconds",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	}, []string{"method", "path"})

	// Booking metrics
	BookingsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "sajhabus",
		Subsystem: "booking",
		Name:      "groups_created_total",
		Help:      "Total booking groups created",
	})

	SeatConflicts = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "sajhabus",
		Subsystem: "booking",
		Name:      "seat_conflicts_total",
		Help:      "Total booking attempts rejected because a seat was already held",
	})

	HoldsExpired = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "sajhabus",
		Subsystem: "booking",
		Name:      "holds_expired_total",
		Help:      "Total booking groups cancelled by the hold expiry sweep",
	})

	// Payment metrics
	PaymentCallbacks = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sajhabus",
		Subsystem: "payment",
		Name:      "callbacks_total",
		Help:      "Total gateway callbacks processed",
	}, []string{"method", "outcome"})

	PaymentsInitiated = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sajhabus",
		Subsystem: "payment",
		Name:      "initiated_total",
		Help:      "Total payments initiated",
	}, []string{"method"})
)

// Middleware records request metrics per route pattern
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())
		httpRequestsTotal.WithLabelValues(c.Request.Method, path, status).Inc()
		httpRequestDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}

// Handler serves the Prometheus metrics endpoint
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
