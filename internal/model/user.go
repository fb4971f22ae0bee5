package model

import "time"

// UserID uniquely identifies a user across the system
type UserID string

// User represents an authenticated participant
type User struct {
	ID          UserID    `json:"id"`
	DisplayName string    `json:"displayName"`
	IsGuest     bool      `json:"isGuest"` // true for users without credentials
	CreatedAt   time.Time `json:"createdAt"`
}

// RegisteredUser extends User with authentication data
// Stored separately so the hash never travels with a session
type RegisteredUser struct {
	UserID       UserID    `json:"userId"`
	Username     string    `json:"username"`     // login username (immutable)
	PasswordHash string    `json:"passwordHash"` // bcrypt hash
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}
