package api

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/teamprogress/internal/api/handler"
	"github.com/mcoot/teamprogress/internal/api/middleware"
	httplog "github.com/mcoot/teamprogress/internal/middleware"
	"github.com/mcoot/teamprogress/internal/services/aggregate"
	"github.com/mcoot/teamprogress/internal/services/auth"
	"github.com/mcoot/teamprogress/internal/services/gamegraph"
	"github.com/mcoot/teamprogress/internal/services/progress"
	"github.com/mcoot/teamprogress/internal/services/team"
)

// RouterConfig holds configuration for the API router
type RouterConfig struct {
	Logger          *slog.Logger
	AuthService     *auth.Service
	ProgressService *progress.Service
	TeamService     *team.Service
	Graphs          *gamegraph.Cache
	Aggregator      *aggregate.Aggregator
	// AdminToken guards /admin routes; empty disables them
	AdminToken string
}

// NewRouter creates a new API router with all routes configured
func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()

	playerHandler := handler.NewPlayerHandler(cfg.AuthService)
	teamHandler := handler.NewTeamHandler(cfg.TeamService, cfg.Aggregator)
	progressHandler := handler.NewProgressHandler(cfg.ProgressService)
	graphHandler := handler.NewGraphHandler(cfg.Graphs)

	authMiddleware := middleware.Auth(cfg.AuthService)

	api := r.PathPrefix("/api/v1").Subrouter()
	// logging wraps recovery so a recovered panic is logged with its request id and 500
	api.Use(httplog.Logging(cfg.Logger))
	api.Use(middleware.Recovery(cfg.Logger))

	// Player routes (no auth required for creating users/logging in)
	api.HandleFunc("/players/guest", playerHandler.CreateGuest).Methods(http.MethodPost)
	api.HandleFunc("/players/register", playerHandler.Register).Methods(http.MethodPost)
	api.HandleFunc("/players/login", playerHandler.Login).Methods(http.MethodPost)

	playerProtected := api.PathPrefix("/players").Subrouter()
	playerProtected.Use(authMiddleware)
	playerProtected.HandleFunc("/me", playerHandler.GetMe).Methods(http.MethodGet)
	playerProtected.HandleFunc("/logout", playerHandler.Logout).Methods(http.MethodPost)

	teams := api.PathPrefix("/team").Subrouter()
	teams.Use(authMiddleware)
	teams.HandleFunc("", teamHandler.Get).Methods(http.MethodGet)
	teams.HandleFunc("/create", teamHandler.Create).Methods(http.MethodPost)
	teams.HandleFunc("/join", teamHandler.Join).Methods(http.MethodPost)
	teams.HandleFunc("/leave", teamHandler.Leave).Methods(http.MethodPost)
	teams.HandleFunc("/kick", teamHandler.Kick).Methods(http.MethodPost)
	teams.HandleFunc("/progress", teamHandler.Progress).Methods(http.MethodGet)

	prog := api.PathPrefix("/progress").Subrouter()
	prog.Use(authMiddleware)
	prog.HandleFunc("", progressHandler.Get).Methods(http.MethodGet)
	prog.HandleFunc("/tasks/{id}", progressHandler.SetTask).Methods(http.MethodPost)
	prog.HandleFunc("/objectives/{id}", progressHandler.SetObjective).Methods(http.MethodPost)
	prog.HandleFunc("/hideout/{id}", progressHandler.SetHideout).Methods(http.MethodPost)
	prog.HandleFunc("/profile", progressHandler.UpdateProfile).Methods(http.MethodPatch)

	api.HandleFunc("/graph", graphHandler.Get).Methods(http.MethodGet)

	admin := api.PathPrefix("/admin").Subrouter()
	admin.Use(middleware.Admin(cfg.AdminToken))
	admin.HandleFunc("/graph", graphHandler.Publish).Methods(http.MethodPut)
	admin.HandleFunc("/users/{id}/team-quota", teamHandler.SetQuota).Methods(http.MethodPut)

	api.HandleFunc("/health", graphHandler.Health).Methods(http.MethodGet)

	return r
}
