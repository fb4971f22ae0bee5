package handler

import (
	"net/http"

	"github.com/mcoot/teamprogress/internal/api/apierr"
	"github.com/mcoot/teamprogress/internal/api/request"
	"github.com/mcoot/teamprogress/internal/api/response"
	"github.com/mcoot/teamprogress/internal/services/gamegraph"
)

// GraphHandler exposes the loaded game graph and its admin upload
type GraphHandler struct {
	graphs *gamegraph.Cache
}

// NewGraphHandler creates a new graph handler
func NewGraphHandler(graphs *gamegraph.Cache) *GraphHandler {
	return &GraphHandler{graphs: graphs}
}

// Get handles GET /api/v1/graph
func (h *GraphHandler) Get(w http.ResponseWriter, r *http.Request) {
	g, err := h.graphs.Get(r.Context())
	if err != nil {
		apierr.WriteError(w, err)
		return
	}

	response.OK(w, g.Summary())
}

// Publish handles PUT /api/v1/admin/graph
func (h *GraphHandler) Publish(w http.ResponseWriter, r *http.Request) {
	var req request.GraphUploadRequest
	if err := decode(r, &req, false); err != nil {
		apierr.WriteError(w, err)
		return
	}
	if len(req.Tasks) == 0 || len(req.Hideout) == 0 {
		apierr.WriteError(w, apierr.NewInvalidRequestError("tasks and hideout documents are required"))
		return
	}

	g, err := h.graphs.Publish(r.Context(), req.Tasks, req.Hideout)
	if err != nil {
		apierr.WriteError(w, err)
		return
	}

	response.OK(w, g.Summary())
}

// Health handles GET /api/v1/health
func (h *GraphHandler) Health(w http.ResponseWriter, _ *http.Request) {
	response.OK(w, response.Health{Status: "ok", GraphLoaded: h.graphs.Loaded()})
}
