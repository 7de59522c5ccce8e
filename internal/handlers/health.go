package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

type HealthResponse struct {
	Status     string         `json:"status"`
	Timestamp  time.Time      `json:"timestamp"`
	Service    string         `json:"service"`
	Components map[string]any `json:"components"`
}

// Pinger is a dependency whose reachability is reported by /health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Counter reports a size, e.g. cached environments or live sessions.
type Counter interface {
	Len() int
}

type HealthHandler struct {
	storage  Pinger // nil when snapshots are disabled
	cache    Counter
	sessions Counter
	logger   *slog.Logger
}

func NewHealthHandler(storage Pinger, cache, sessions Counter, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{
		storage:  storage,
		cache:    cache,
		sessions: sessions,
		logger:   logger,
	}
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.logger.Debug("Health check requested",
		"method", r.Method,
		"path", r.URL.Path,
		"remote_addr", r.RemoteAddr)

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	components := make(map[string]any)
	overallStatus := "healthy"

	if h.storage == nil {
		components["storage"] = "disabled"
	} else if err := h.storage.Ping(ctx); err != nil {
		h.logger.Warn("Storage health check failed", "error", err)
		components["storage"] = "unhealthy"
		overallStatus = "degraded"
	} else {
		components["storage"] = "healthy"
	}
	components["environment_entries"] = h.cache.Len()
	components["sessions"] = h.sessions.Len()

	response := HealthResponse{
		Status:     overallStatus,
		Timestamp:  time.Now(),
		Service:    "page-engine",
		Components: components,
	}

	statusCode := http.StatusOK
	if overallStatus != "healthy" {
		statusCode = http.StatusServiceUnavailable
	}
	writeJSON(w, h.logger, statusCode, response)
}
