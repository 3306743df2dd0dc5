package prometheus

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Counter metrics
var (
	// Member registration counter
	RegistrationCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "gym_registrations_total",
			Help: "Total number of member registration attempts",
		},
	)

	// Login counter by subject type
	LoginCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gym_logins_total",
			Help: "Total number of login attempts",
		},
		[]string{"subject"}, // "staff" or "member"
	)

	// Approval decision counter
	ApprovalCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gym_approvals_total",
			Help: "Total number of approve/reject decisions",
		},
		[]string{"action"},
	)

	// OTP counters
	OTPGeneratedCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "gym_otp_generated_total",
			Help: "Total number of one-time codes generated",
		},
	)

	OTPVerifiedCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "gym_otp_verified_total",
			Help: "Total number of one-time codes verified successfully",
		},
	)

	// HTTP request counter by endpoint and status
	HTTPRequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gym_http_requests_total",
			Help: "Total number of HTTP requests by endpoint and status",
		},
		[]string{"endpoint", "method", "status"},
	)

	// Error counters
	AuthErrorCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gym_auth_errors_total",
			Help: "Total number of authentication errors",
		},
		[]string{"type"}, // "member_not_found", "invalid_password", "membership_expired" etc.
	)
)

// Histogram metrics
var (
	// Request duration
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gym_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint", "method", "status"},
	)

	// Database operation duration
	DBOperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gym_db_operation_duration_seconds",
			Help:    "Duration of database operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"}, // "query", "insert", "update", "delete"
	)
)

// Gauge metrics
var (
	// Members awaiting staff review
	PendingMembersGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "gym_pending_members",
			Help: "Number of members currently awaiting approval",
		},
	)

	// System info
	InfoGauge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "gym_info",
			Help: "Information about the membership service",
		},
		[]string{"version"},
	)
)

func init() {
	// Register counters
	prometheus.MustRegister(RegistrationCounter)
	prometheus.MustRegister(LoginCounter)
	prometheus.MustRegister(ApprovalCounter)
	prometheus.MustRegister(OTPGeneratedCounter)
	prometheus.MustRegister(OTPVerifiedCounter)
	prometheus.MustRegister(HTTPRequestCounter)
	prometheus.MustRegister(AuthErrorCounter)

	// Register histograms
	prometheus.MustRegister(RequestDuration)
	prometheus.MustRegister(DBOperationDuration)

	// Register gauges
	prometheus.MustRegister(PendingMembersGauge)
	prometheus.MustRegister(InfoGauge)

	// Set initial service info
	InfoGauge.With(prometheus.Labels{"version": "1.0.0"}).Set(1)
}

// GetPrometheusHandler returns an HTTP handler for the Prometheus metrics
func GetPrometheusHandler() http.Handler {
	return promhttp.Handler()
}

// RecordAuthError increments the auth error counter for the given type
func RecordAuthError(errorType string) {
	AuthErrorCounter.With(prometheus.Labels{"type": errorType}).Inc()
}

// TrackDBOperation measures database operation durations
func TrackDBOperation(operation string) func(time.Time) {
	startTime := time.Now()
	return func(endTime time.Time) {
		duration := time.Since(startTime).Seconds()
		DBOperationDuration.With(prometheus.Labels{
			"operation": operation,
		}).Observe(duration)
	}
}

// MetricsMiddleware creates a middleware function that captures metrics for each request
func MetricsMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			// Execute the request handler
			err := next(c)

			// Record request duration
			duration := time.Since(start).Seconds()
			status := strconv.Itoa(c.Response().Status)

			RequestDuration.With(prometheus.Labels{
				"endpoint": c.Path(),
				"method":   c.Request().Method,
				"status":   status,
			}).Observe(duration)

			HTTPRequestCounter.With(prometheus.Labels{
				"endpoint": c.Path(),
				"method":   c.Request().Method,
				"status":   status,
			}).Inc()

			return err
		}
	}
}
