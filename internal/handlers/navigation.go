package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/jwebster45206/page-engine/internal/logger"
	"github.com/jwebster45206/page-engine/pkg/environment"
	"github.com/jwebster45206/page-engine/pkg/navigation"
)

// SessionHeader carries the opaque session id in both directions.
const SessionHeader = "X-Session-ID"

const maxSessionIDLength = 128

type ActRequest struct {
	Label string `json:"label"`
}

type NavigationHandler struct {
	engine *navigation.Engine
	logger *slog.Logger
	now    func() time.Time
}

func NewNavigationHandler(engine *navigation.Engine, logger *slog.Logger) *NavigationHandler {
	return &NavigationHandler{
		engine: engine,
		logger: logger,
		now:    time.Now,
	}
}

// ServeHTTP handles navigation requests
// Routes:
// GET /v1/view       - Current location and environment
// POST /v1/act       - Take a labeled transition
// DELETE /v1/session - Forget the session
func (h *NavigationHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := h.sessionID(w, r)
	if !ok {
		return
	}
	log := logger.WithSessionID(h.logger, sessionID)

	switch {
	case r.URL.Path == "/v1/view" && r.Method == http.MethodGet:
		res, err := h.engine.View(r.Context(), sessionID, h.now())
		h.respond(w, log, res, err)

	case r.URL.Path == "/v1/act" && r.Method == http.MethodPost:
		var req ActRequest
		dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4096))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			log.Warn("Invalid act request body", "error", err)
			writeError(w, log, http.StatusBadRequest, "Invalid request body")
			return
		}
		if req.Label == "" {
			writeError(w, log, http.StatusBadRequest, "label is required")
			return
		}
		res, err := h.engine.Act(r.Context(), sessionID, req.Label, h.now())
		h.respond(w, log, res, err)

	case r.URL.Path == "/v1/session" && r.Method == http.MethodDelete:
		if err := h.engine.Forget(r.Context(), sessionID); err != nil {
			log.Error("Failed to forget session", "error", err)
			writeError(w, log, http.StatusInternalServerError, "Failed to delete session")
			return
		}
		w.WriteHeader(http.StatusNoContent)

	case r.URL.Path == "/v1/view" || r.URL.Path == "/v1/act" || r.URL.Path == "/v1/session":
		log.Warn("Method not allowed for navigation endpoint", "method", r.Method, "path", r.URL.Path)
		writeError(w, log, http.StatusMethodNotAllowed, "Method not allowed")

	default:
		writeError(w, log, http.StatusNotFound, "Not found")
	}
}

// sessionID reads the session header, issuing a new id when it is absent.
func (h *NavigationHandler) sessionID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := r.Header.Get(SessionHeader)
	if id == "" {
		id = uuid.NewString()
	}
	if len(id) > maxSessionIDLength {
		writeError(w, h.logger, http.StatusBadRequest, "Session id too long")
		return "", false
	}
	w.Header().Set(SessionHeader, id)
	return id, true
}

func (h *NavigationHandler) respond(w http.ResponseWriter, log *slog.Logger, res navigation.Result, err error) {
	if err != nil {
		var ce *environment.ComputationError
		if errors.As(err, &ce) {
			log.Warn("Environment unavailable", "error", err)
			w.Header().Set("Retry-After", "1")
			writeError(w, log, http.StatusServiceUnavailable, "Environment temporarily unavailable, please retry")
			return
		}
		logger.WithError(log, err).Error("Navigation failed")
		writeError(w, log, http.StatusInternalServerError, "Internal server error")
		return
	}
	if res.Notice != "" {
		log.Info("Session reset", "location", res.Location.ID)
	}
	writeJSON(w, log, http.StatusOK, res)
}
