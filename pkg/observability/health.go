package observability

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// HealthStatus is the payload served on the health endpoint.
type HealthStatus struct {
	Status    string            `json:"status"`
	Service   string            `json:"service"`
	Timestamp time.Time         `json:"timestamp"`
	Checks    map[string]string `json:"checks"`
}

// CheckFunc probes a single dependency. A nil error means healthy.
type CheckFunc func(ctx context.Context) error

// HealthChecker aggregates dependency probes for the service. The
// session store pool is always checked; additional probes can be
// registered before the server starts.
type HealthChecker struct {
	dbPool *pgxpool.Pool
	extra  map[string]CheckFunc
}

// NewHealthChecker creates a checker over the session store pool.
func NewHealthChecker(dbPool *pgxpool.Pool) *HealthChecker {
	return &HealthChecker{
		dbPool: dbPool,
		extra:  make(map[string]CheckFunc),
	}
}

// RegisterCheck adds a named dependency probe. Not safe to call after
// the health endpoint is serving.
func (h *HealthChecker) RegisterCheck(name string, fn CheckFunc) {
	h.extra[name] = fn
}

// Check runs all probes and reports the aggregate status.
func (h *HealthChecker) Check(ctx context.Context) HealthStatus {
	checks := make(map[string]string)
	overallStatus := "healthy"

	if h.dbPool != nil {
		dbCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()

		if err := h.dbPool.Ping(dbCtx); err != nil {
			checks["session_store"] = "unhealthy: " + err.Error()
			overallStatus = "unhealthy"
		} else {
			checks["session_store"] = "healthy"
		}
	} else {
		checks["session_store"] = "not configured"
	}

	for name, fn := range h.extra {
		if err := fn(ctx); err != nil {
			checks[name] = "unhealthy: " + err.Error()
			overallStatus = "unhealthy"
		} else {
			checks[name] = "healthy"
		}
	}

	return HealthStatus{
		Status:    overallStatus,
		Service:   "payment-challenge-service",
		Timestamp: time.Now(),
		Checks:    checks,
	}
}

// HealthHandler returns the HTTP handler for the health endpoint.
func (h *HealthChecker) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := h.Check(r.Context())

		w.Header().Set("Content-Type", "application/json")
		if status.Status != "healthy" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}

		json.NewEncoder(w).Encode(status)
	}
}
