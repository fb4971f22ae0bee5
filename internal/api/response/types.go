package response

import (
	"time"

	"github.com/mcoot/teamprogress/internal/model"
	"github.com/mcoot/teamprogress/internal/services/auth"
	"github.com/mcoot/teamprogress/internal/services/team"
)

// User represents a user in API responses
type User struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	IsGuest     bool   `json:"is_guest"`
}

// UserFromModel converts a model.User to a response User
func UserFromModel(u *model.User) User {
	return User{
		ID:          string(u.ID),
		DisplayName: u.DisplayName,
		IsGuest:     u.IsGuest,
	}
}

// AuthResponse is the response for authentication endpoints
type AuthResponse struct {
	User         User      `json:"user"`
	SessionToken string    `json:"session_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// AuthResponseFromSession creates an AuthResponse from a session
func AuthResponseFromSession(s *auth.Session) AuthResponse {
	return AuthResponse{
		User:         UserFromModel(&s.User),
		SessionToken: s.Token,
		ExpiresAt:    s.ExpiresAt,
	}
}

// CreateTeamResponse is returned by team creation
type CreateTeamResponse struct {
	Team string `json:"team"`
}

// JoinResponse is returned by a successful join
type JoinResponse struct {
	Joined bool `json:"joined"`
}

// LeaveResponse is returned by a successful leave
type LeaveResponse struct {
	Left      bool `json:"left"`
	Disbanded bool `json:"disbanded,omitempty"`
}

// KickResponse is returned by a successful kick
type KickResponse struct {
	Kicked bool `json:"kicked"`
}

// Team is the requester's team. Password and InviteLink are omitted in
// streamer mode.
type Team struct {
	ID             string    `json:"id"`
	Owner          string    `json:"owner"`
	IsOwner        bool      `json:"is_owner"`
	Members        []string  `json:"members"`
	MaximumMembers int       `json:"maximum_members"`
	Password       string    `json:"password,omitempty"`
	InviteLink     string    `json:"invite_link,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// TeamFromView converts a team view; streamer drops the secret
func TeamFromView(v *team.View, streamer bool) Team {
	members := make([]string, len(v.Team.Members))
	for i, m := range v.Team.Members {
		members[i] = string(m)
	}
	t := Team{
		ID:             string(v.Team.ID),
		Owner:          string(v.Team.Owner),
		IsOwner:        v.IsOwner,
		Members:        members,
		MaximumMembers: v.Team.MaximumMembers,
		CreatedAt:      v.Team.CreatedAt,
	}
	if !streamer {
		t.Password = v.Team.Password
		t.InviteLink = v.InviteLink
	}
	return t
}

// Health is the health check body
type Health struct {
	Status      string `json:"status"`
	GraphLoaded bool   `json:"graph_loaded"`
}
