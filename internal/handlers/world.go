package handlers

import (
	"log/slog"
	"net/http"

	"github.com/jwebster45206/page-engine/pkg/storage"
	"github.com/jwebster45206/page-engine/pkg/world"
)

type WorldResponse struct {
	Name      string          `json:"name,omitempty"`
	Start     string          `json:"start"`
	Locations []string        `json:"locations"`
	Warnings  []world.Warning `json:"warnings"`
}

type WorldHandler struct {
	graph  *world.Graph
	logger *slog.Logger
}

func NewWorldHandler(graph *world.Graph, logger *slog.Logger) *WorldHandler {
	return &WorldHandler{graph: graph, logger: logger}
}

// ServeHTTP handles GET /v1/world
func (h *WorldHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, h.logger, http.StatusMethodNotAllowed, "Method not allowed. Supported methods: GET")
		return
	}
	warnings := h.graph.Warnings()
	if warnings == nil {
		warnings = []world.Warning{}
	}
	writeJSON(w, h.logger, http.StatusOK, WorldResponse{
		Name:      h.graph.Name(),
		Start:     h.graph.Start(),
		Locations: h.graph.IDs(),
		Warnings:  warnings,
	})
}

type WorldListResponse struct {
	Active string                 `json:"active,omitempty"`
	Worlds []storage.WorldSummary `json:"worlds"`
}

type WorldListHandler struct {
	lister storage.WorldLister
	active string
	logger *slog.Logger
}

// NewWorldListHandler lists the worlds lister can see; active names the one
// being served.
func NewWorldListHandler(lister storage.WorldLister, active string, logger *slog.Logger) *WorldListHandler {
	return &WorldListHandler{lister: lister, active: active, logger: logger}
}

// ServeHTTP handles GET /v1/worlds
func (h *WorldListHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, h.logger, http.StatusMethodNotAllowed, "Method not allowed. Supported methods: GET")
		return
	}
	worlds, err := h.lister.ListWorlds(r.Context())
	if err != nil {
		h.logger.Error("Failed to list worlds", "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to list worlds")
		return
	}
	if worlds == nil {
		worlds = []storage.WorldSummary{}
	}
	writeJSON(w, h.logger, http.StatusOK, WorldListResponse{Active: h.active, Worlds: worlds})
}
