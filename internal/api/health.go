package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/ashureev/assembly-coach/internal/store"
	"github.com/go-chi/chi/v5"
)

// HealthChecker is anything that can report its own health.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	repo     store.Repository
	detector HealthChecker
	timeout  time.Duration
}

// NewHealthHandler creates a new health handler. detector may be nil when
// the server runs with the in-process stub.
func NewHealthHandler(repo store.Repository, detector HealthChecker, timeout time.Duration) *HealthHandler {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HealthHandler{repo: repo, detector: detector, timeout: timeout}
}

// Health returns the health status of the API and its dependencies.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	checks := map[string]string{"api": "ok"}
	status := map[string]interface{}{
		"status": "healthy",
		"checks": checks,
	}
	statusCode := http.StatusOK

	if err := h.repo.Ping(ctx); err != nil {
		slog.Error("Health check failed", "dependency", "database", "error", err)
		status["status"] = "degraded"
		checks["database"] = "unreachable"
		statusCode = http.StatusServiceUnavailable
	} else {
		checks["database"] = "ok"
	}

	if h.detector == nil {
		checks["detector"] = "stub"
	} else if err := h.detector.Health(ctx); err != nil {
		slog.Warn("Health check failed", "dependency", "detector", "error", err)
		status["status"] = "degraded"
		checks["detector"] = "unreachable"
		statusCode = http.StatusServiceUnavailable
	} else {
		checks["detector"] = "ok"
	}

	JSON(w, statusCode, status)
}

// RegisterHealth registers the health check route.
func (h *HealthHandler) RegisterHealth(r chi.Router) {
	r.Get("/health", h.Health)
}
