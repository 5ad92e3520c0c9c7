package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Metrics bundles the Prometheus collectors the challenge service
// records against. Register once at startup and share the instance.
type Metrics struct {
	SessionsCreated       *prometheus.CounterVec
	ChallengeOutcomes     *prometheus.CounterVec
	SafetyNetSuppressions *prometheus.CounterVec
	BackendDuration       *prometheus.HistogramVec

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	httpInFlight        prometheus.Gauge
}

// NewMetrics registers the service collectors on the default registry.
func NewMetrics() *Metrics {
	return &Metrics{
		SessionsCreated: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "challenge_sessions_created_total",
				Help: "Total number of payment challenge sessions created",
			},
			[]string{"challenge_type", "device_channel"},
		),
		ChallengeOutcomes: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "challenge_outcomes_total",
				Help: "Terminal challenge statuses by operation",
			},
			[]string{"operation", "status"},
		),
		SafetyNetSuppressions: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "safetynet_suppressed_failures_total",
				Help: "Backend failures suppressed by the safety net",
			},
			[]string{"operation"},
		),
		BackendDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "backend_request_duration_seconds",
				Help:    "Duration of downstream service calls in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"service", "operation"},
		),
		httpRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"path", "method", "status"},
		),
		httpRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"path", "method"},
		),
		httpInFlight: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed",
			},
		),
	}
}

// ObserveBackend records a downstream call duration.
func (m *Metrics) ObserveBackend(service, operation string, start time.Time) {
	m.BackendDuration.WithLabelValues(service, operation).Observe(time.Since(start).Seconds())
}

// statusRecorder captures the response status for the HTTP middleware.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// HTTPMiddleware returns middleware that records request metrics keyed
// by route pattern.
func (m *Metrics) HTTPMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		m.httpInFlight.Inc()
		defer m.httpInFlight.Dec()

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		path := r.Pattern
		if path == "" {
			path = r.URL.Path
		}
		m.httpRequestDuration.WithLabelValues(path, r.Method).Observe(time.Since(start).Seconds())
		m.httpRequestsTotal.WithLabelValues(path, r.Method, strconv.Itoa(rec.status)).Inc()
	})
}

// StartMetricsServer serves the Prometheus endpoint and health probes
// on a port separate from the session API, so probes keep answering
// while the API drains during shutdown. The returned server should be
// registered with the shutdown manager; it is not stopped here.
func StartMetricsServer(port string, healthChecker *HealthChecker, logger *zap.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	if healthChecker != nil {
		mux.HandleFunc("/health", healthChecker.HealthHandler())
	}
	// Liveness probe: the process is up. Dependency state is /health.
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ready"))
	})

	server := &http.Server{
		Addr:         ":" + port,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  15 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Metrics server exited", zap.Error(err))
		}
	}()

	return server
}
