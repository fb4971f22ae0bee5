package handler

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/mcoot/teamprogress/internal/api/apierr"
	"github.com/mcoot/teamprogress/internal/api/middleware"
	"github.com/mcoot/teamprogress/internal/api/request"
	"github.com/mcoot/teamprogress/internal/api/response"
	"github.com/mcoot/teamprogress/internal/model"
	"github.com/mcoot/teamprogress/internal/services/aggregate"
	"github.com/mcoot/teamprogress/internal/services/team"
)

// TeamHandler handles team membership and team progress endpoints
type TeamHandler struct {
	teams      *team.Service
	aggregator *aggregate.Aggregator
}

// NewTeamHandler creates a new team handler
func NewTeamHandler(teams *team.Service, aggregator *aggregate.Aggregator) *TeamHandler {
	return &TeamHandler{
		teams:      teams,
		aggregator: aggregator,
	}
}

// Create handles POST /api/v1/team/create
func (h *TeamHandler) Create(w http.ResponseWriter, r *http.Request) {
	user := middleware.MustGetUser(r.Context())

	id, err := h.teams.CreateTeam(r.Context(), user.ID)
	if err != nil {
		apierr.WriteError(w, err)
		return
	}

	response.Created(w, response.CreateTeamResponse{Team: string(id)})
}

// Join handles POST /api/v1/team/join
func (h *TeamHandler) Join(w http.ResponseWriter, r *http.Request) {
	user := middleware.MustGetUser(r.Context())

	var req request.JoinTeamRequest
	if err := decode(r, &req, false); err != nil {
		apierr.WriteError(w, err)
		return
	}

	if err := h.teams.JoinTeam(r.Context(), user.ID, model.TeamID(req.ID), req.Password); err != nil {
		apierr.WriteError(w, err)
		return
	}

	response.OK(w, response.JoinResponse{Joined: true})
}

// Leave handles POST /api/v1/team/leave
func (h *TeamHandler) Leave(w http.ResponseWriter, r *http.Request) {
	user := middleware.MustGetUser(r.Context())

	disbanded, err := h.teams.LeaveTeam(r.Context(), user.ID)
	if err != nil {
		apierr.WriteError(w, err)
		return
	}

	response.OK(w, response.LeaveResponse{Left: true, Disbanded: disbanded})
}

// Kick handles POST /api/v1/team/kick
func (h *TeamHandler) Kick(w http.ResponseWriter, r *http.Request) {
	user := middleware.MustGetUser(r.Context())

	var req request.KickRequest
	if err := decode(r, &req, false); err != nil {
		apierr.WriteError(w, err)
		return
	}

	if err := h.teams.KickMember(r.Context(), user.ID, model.UserID(req.Kicked)); err != nil {
		apierr.WriteError(w, err)
		return
	}

	response.OK(w, response.KickResponse{Kicked: true})
}

// Get handles GET /api/v1/team. With ?streamer=true the secret and
// invite link are left out.
func (h *TeamHandler) Get(w http.ResponseWriter, r *http.Request) {
	user := middleware.MustGetUser(r.Context())

	streamer, _ := strconv.ParseBool(r.URL.Query().Get("streamer"))

	view, err := h.teams.GetTeam(r.Context(), user.ID)
	if err != nil {
		apierr.WriteError(w, err)
		return
	}

	response.OK(w, response.TeamFromView(view, streamer))
}

// Progress handles GET /api/v1/team/progress?hide=a,b
func (h *TeamHandler) Progress(w http.ResponseWriter, r *http.Request) {
	user := middleware.MustGetUser(r.Context())

	vis := aggregate.NewVisibility(user.ID, aggregate.ParseHidden(r.URL.Query().Get("hide"))...)

	out, err := h.aggregator.TeamProgress(r.Context(), vis)
	if err != nil {
		apierr.WriteError(w, err)
		return
	}

	response.OK(w, out)
}

// SetQuota handles PUT /api/v1/admin/users/{id}/team-quota
func (h *TeamHandler) SetQuota(w http.ResponseWriter, r *http.Request) {
	id := model.UserID(mux.Vars(r)["id"])

	var req request.TeamQuotaRequest
	if err := decode(r, &req, false); err != nil {
		apierr.WriteError(w, err)
		return
	}

	if err := h.teams.SetTeamQuota(r.Context(), id, req.Max); err != nil {
		apierr.WriteError(w, err)
		return
	}

	response.NoContent(w)
}
