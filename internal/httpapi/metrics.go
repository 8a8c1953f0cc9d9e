package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "wromgpt",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"path", "method", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "wromgpt",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"path", "method", "status"},
	)

	httpInflight = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "wromgpt",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "In-flight HTTP requests",
		},
		[]string{"path"},
	)

	chatRejectedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "wromgpt",
			Subsystem: "http",
			Name:      "chat_rejected_total",
			Help:      "Chat requests that did not produce a response, by reason",
		},
		[]string{"reason"},
	)

	instructionUpdatesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "wromgpt",
			Subsystem: "http",
			Name:      "instruction_updates_total",
			Help:      "Total number of system instruction updates",
		},
	)
)

func init() {
	prometheus.MustRegister(httpRequestsTotal, httpRequestDuration, httpInflight, chatRejectedTotal, instructionUpdatesTotal)
}

// statusRecorder wraps http.ResponseWriter to capture status code
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}

// MetricsMiddleware instruments requests for Prometheus
func MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sr := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		inflightPath := r.URL.Path
		httpInflight.WithLabelValues(inflightPath).Inc()
		defer httpInflight.WithLabelValues(inflightPath).Dec()

		next.ServeHTTP(sr, r)

		// The route pattern is only known after routing.
		path := routePatternOrPath(r)
		statusLabel := strconv.Itoa(sr.status)
		httpRequestsTotal.WithLabelValues(path, r.Method, statusLabel).Inc()
		httpRequestDuration.WithLabelValues(path, r.Method, statusLabel).Observe(time.Since(start).Seconds())
	})
}

// routePatternOrPath returns the chi route pattern if available, otherwise
// falls back to URL path. This avoids high-cardinality label values.
func routePatternOrPath(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if p := rc.RoutePattern(); p != "" {
			return p
		}
	}
	return r.URL.Path
}

// incChatRejected counts a chat request that ended without a response.
func incChatRejected(reason string) {
	if reason == "" {
		reason = "unspecified"
	}
	chatRejectedTotal.WithLabelValues(reason).Inc()
}
