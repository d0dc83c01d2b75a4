package handlers

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// HealthHandler handles health check requests
type HealthHandler struct {
	prober       HealthProber
	breakerState func() string
	version      string
	logger       *zap.Logger
}

// NewHealthHandler creates a new health handler. breakerState may be nil.
func NewHealthHandler(prober HealthProber, breakerState func() string, version string, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{
		prober:       prober,
		breakerState: breakerState,
		version:      version,
		logger:       logger,
	}
}

// HealthResponse represents a health check response
type HealthResponse struct {
	Status  string            `json:"status"`
	Version string            `json:"version"`
	Time    time.Time         `json:"time"`
	Checks  map[string]string `json:"checks,omitempty"`
}

// Health handles GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{
		Status:  "healthy",
		Version: h.version,
		Time:    time.Now(),
		Checks:  map[string]string{"widget": "ok"},
	}
	if h.breakerState != nil {
		response.Checks["circuit_breaker"] = h.breakerState()
	}

	writeJSON(w, http.StatusOK, response)
}

// Readiness handles GET /readiness. The widget is ready when the assistant
// backend answers its own health check; a missing graph database is
// reported but does not fail readiness.
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{
		Status:  "ready",
		Version: h.version,
		Time:    time.Now(),
		Checks:  make(map[string]string),
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	health, err := h.prober.Health(ctx)
	if err != nil || health.Status != "healthy" {
		response.Status = "not ready"
		response.Checks["backend"] = "failed"
		h.logger.Warn("Backend health check failed",
			zap.String("backend_status", health.Status),
			zap.Error(err),
		)
		writeJSON(w, http.StatusServiceUnavailable, response)
		return
	}

	response.Checks["backend"] = "ok"
	if health.Neo4jAvailable {
		response.Checks["graph"] = "ok"
	} else {
		response.Checks["graph"] = "unavailable"
	}
	writeJSON(w, http.StatusOK, response)
}
