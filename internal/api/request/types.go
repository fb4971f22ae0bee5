package request

import (
	"encoding/json"

	"github.com/mcoot/teamprogress/internal/services/progress"
)

// CreateGuestRequest is the request body for creating a guest user
type CreateGuestRequest struct {
	DisplayName string `json:"display_name"`
}

// RegisterRequest is the request body for registering a user
type RegisterRequest struct {
	Username    string `json:"username"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
}

// LoginRequest is the request body for logging in
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// JoinTeamRequest is the request body for joining a team
type JoinTeamRequest struct {
	ID       string `json:"id"`
	Password string `json:"password"`
}

// KickRequest is the request body for kicking a member
type KickRequest struct {
	Kicked string `json:"kicked"`
}

// TaskStateRequest sets a task's state
type TaskStateRequest struct {
	State progress.TaskState `json:"state"`
}

// CompleteRequest marks an objective or hideout module
type CompleteRequest struct {
	Complete bool `json:"complete"`
}

// ProfileRequest updates the profile fields that are present
type ProfileRequest = progress.ProfileUpdate

// GraphUploadRequest replaces both game data documents
type GraphUploadRequest struct {
	Tasks   json.RawMessage `json:"tasks"`
	Hideout json.RawMessage `json:"hideout"`
}

// TeamQuotaRequest sets a user's team capacity
type TeamQuotaRequest struct {
	Max int `json:"max"`
}
