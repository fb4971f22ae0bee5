package handler

import (
	"net/http"

	"github.com/mcoot/teamprogress/internal/api/apierr"
	"github.com/mcoot/teamprogress/internal/api/middleware"
	"github.com/mcoot/teamprogress/internal/api/request"
	"github.com/mcoot/teamprogress/internal/api/response"
	"github.com/mcoot/teamprogress/internal/model"
	"github.com/mcoot/teamprogress/internal/services/auth"
)

// PlayerHandler handles user and session endpoints
type PlayerHandler struct {
	authService *auth.Service
}

// NewPlayerHandler creates a new player handler
func NewPlayerHandler(authService *auth.Service) *PlayerHandler {
	return &PlayerHandler{
		authService: authService,
	}
}

func displayName(raw string) (string, error) {
	name, err := model.CleanDisplayName(raw)
	switch {
	case err != nil:
		return "", apierr.NewInvalidRequestError("display_name is too long")
	case name == "":
		return "", apierr.NewInvalidRequestError("display_name is required")
	}
	return name, nil
}

// CreateGuest handles POST /api/v1/players/guest
func (h *PlayerHandler) CreateGuest(w http.ResponseWriter, r *http.Request) {
	var req request.CreateGuestRequest
	if err := decode(r, &req, false); err != nil {
		apierr.WriteError(w, err)
		return
	}

	name, err := displayName(req.DisplayName)
	if err != nil {
		apierr.WriteError(w, err)
		return
	}

	session, err := h.authService.CreateGuest(r.Context(), name)
	if err != nil {
		apierr.WriteError(w, err)
		return
	}

	response.Created(w, response.AuthResponseFromSession(session))
}

// Register handles POST /api/v1/players/register
func (h *PlayerHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req request.RegisterRequest
	if err := decode(r, &req, false); err != nil {
		apierr.WriteError(w, err)
		return
	}

	name, err := displayName(req.DisplayName)
	if err != nil {
		apierr.WriteError(w, err)
		return
	}

	session, err := h.authService.Register(r.Context(), req.Username, req.Password, name)
	if err != nil {
		apierr.WriteError(w, err)
		return
	}

	response.Created(w, response.AuthResponseFromSession(session))
}

// Login handles POST /api/v1/players/login
func (h *PlayerHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req request.LoginRequest
	if err := decode(r, &req, false); err != nil {
		apierr.WriteError(w, err)
		return
	}

	session, err := h.authService.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		apierr.WriteError(w, err)
		return
	}

	response.OK(w, response.AuthResponseFromSession(session))
}

// GetMe handles GET /api/v1/players/me
func (h *PlayerHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	user := middleware.MustGetUser(r.Context())
	response.OK(w, response.UserFromModel(user))
}

// Logout handles POST /api/v1/players/logout
func (h *PlayerHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.authService.Logout(middleware.SessionToken(r.Context()))
	response.NoContent(w)
}
