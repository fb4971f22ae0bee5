package handler

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/teamprogress/internal/api/apierr"
	"github.com/mcoot/teamprogress/internal/api/middleware"
	"github.com/mcoot/teamprogress/internal/api/request"
	"github.com/mcoot/teamprogress/internal/api/response"
	"github.com/mcoot/teamprogress/internal/model"
	"github.com/mcoot/teamprogress/internal/services/progress"
)

// ProgressHandler handles the caller's own progress record. Each
// mutation responds with the updated record.
type ProgressHandler struct {
	progress *progress.Service
}

// NewProgressHandler creates a new progress handler
func NewProgressHandler(progressService *progress.Service) *ProgressHandler {
	return &ProgressHandler{progress: progressService}
}

// Get handles GET /api/v1/progress
func (h *ProgressHandler) Get(w http.ResponseWriter, r *http.Request) {
	user := middleware.MustGetUser(r.Context())

	p, err := h.progress.Get(r.Context(), user.ID)
	if err != nil {
		apierr.WriteError(w, err)
		return
	}

	response.OK(w, p)
}

// SetTask handles POST /api/v1/progress/tasks/{id}
func (h *ProgressHandler) SetTask(w http.ResponseWriter, r *http.Request) {
	user := middleware.MustGetUser(r.Context())

	var req request.TaskStateRequest
	if err := decode(r, &req, false); err != nil {
		apierr.WriteError(w, err)
		return
	}

	p, err := h.progress.SetTaskState(r.Context(), user.ID, model.TaskID(mux.Vars(r)["id"]), req.State)
	h.write(w, p, err)
}

// SetObjective handles POST /api/v1/progress/objectives/{id}
func (h *ProgressHandler) SetObjective(w http.ResponseWriter, r *http.Request) {
	user := middleware.MustGetUser(r.Context())

	var req request.CompleteRequest
	if err := decode(r, &req, false); err != nil {
		apierr.WriteError(w, err)
		return
	}

	p, err := h.progress.SetObjective(r.Context(), user.ID, model.ObjectiveID(mux.Vars(r)["id"]), req.Complete)
	h.write(w, p, err)
}

// SetHideout handles POST /api/v1/progress/hideout/{id}
func (h *ProgressHandler) SetHideout(w http.ResponseWriter, r *http.Request) {
	user := middleware.MustGetUser(r.Context())

	var req request.CompleteRequest
	if err := decode(r, &req, false); err != nil {
		apierr.WriteError(w, err)
		return
	}

	p, err := h.progress.SetHideoutModule(r.Context(), user.ID, model.HideoutLevelID(mux.Vars(r)["id"]), req.Complete)
	h.write(w, p, err)
}

// UpdateProfile handles PATCH /api/v1/progress/profile
func (h *ProgressHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	user := middleware.MustGetUser(r.Context())

	var req request.ProfileRequest
	if err := decode(r, &req, false); err != nil {
		apierr.WriteError(w, err)
		return
	}

	p, err := h.progress.UpdateProfile(r.Context(), user.ID, req)
	h.write(w, p, err)
}

func (h *ProgressHandler) write(w http.ResponseWriter, p *model.ProgressRecord, err error) {
	if err != nil {
		apierr.WriteError(w, err)
		return
	}
	response.OK(w, p)
}
