package model

import (
	"fmt"
	"slices"
	"time"
)

// TeamID identifies a team. Owned teams share the owner's user id.
type TeamID string

// TeamIDFor returns the id of the team owned by the given user
func TeamIDFor(owner UserID) TeamID {
	return TeamID(owner)
}

// DefaultTeamMax is the capacity of a team when the owner has no quota
const DefaultTeamMax = 10

// Team is a roster of users sharing progress visibility
type Team struct {
	ID             TeamID    `json:"id"`
	Owner          UserID    `json:"owner"`
	Password       string    `json:"password"` // invite secret, never logged
	Members        []UserID  `json:"members"`
	MaximumMembers int       `json:"maximumMembers"`
	Version        int64     `json:"version"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// HasMember reports whether the user is on the roster
func (t *Team) HasMember(id UserID) bool {
	return slices.Contains(t.Members, id)
}

// IsFull reports whether another member can join
func (t *Team) IsFull() bool {
	return len(t.Members) >= t.MaximumMembers
}

// AddMember appends the user if not already present
func (t *Team) AddMember(id UserID) {
	if !t.HasMember(id) {
		t.Members = append(t.Members, id)
	}
}

// RemoveMember drops the user from the roster
func (t *Team) RemoveMember(id UserID) {
	t.Members = slices.DeleteFunc(t.Members, func(m UserID) bool { return m == id })
}

// Clone returns a deep copy
func (t *Team) Clone() *Team {
	c := *t
	c.Members = slices.Clone(t.Members)
	return &c
}

// Validate checks the roster invariants
func (t *Team) Validate() error {
	if t.ID == "" || t.Owner == "" {
		return fmt.Errorf("%w: team without id or owner", ErrCorruptDocument)
	}
	if !t.HasMember(t.Owner) {
		return fmt.Errorf("%w: owner %s missing from team %s", ErrCorruptDocument, t.Owner, t.ID)
	}
	if len(t.Members) > t.MaximumMembers {
		return fmt.Errorf("%w: team %s has %d members, maximum %d", ErrCorruptDocument, t.ID, len(t.Members), t.MaximumMembers)
	}
	seen := make(map[UserID]struct{}, len(t.Members))
	for _, m := range t.Members {
		if _, dup := seen[m]; dup {
			return fmt.Errorf("%w: duplicate member %s in team %s", ErrCorruptDocument, m, t.ID)
		}
		seen[m] = struct{}{}
	}
	return nil
}

// SystemPointer is the per-user record joining a user to at most one team
type SystemPointer struct {
	UserID       UserID     `json:"userId"`
	Team         *TeamID    `json:"team"`
	TeamMax      int        `json:"teamMax,omitempty"` // capacity override for teams this user owns
	LastLeftTeam *time.Time `json:"lastLeftTeam,omitempty"`
}

// NewSystemPointer returns an empty pointer for the user
func NewSystemPointer(id UserID) *SystemPointer {
	return &SystemPointer{UserID: id}
}

// InTeam reports whether the pointer names a team
func (s *SystemPointer) InTeam() bool {
	return s.Team != nil && *s.Team != ""
}

// TeamID returns the named team, or "" when not in one
func (s *SystemPointer) TeamID() TeamID {
	if s.Team == nil {
		return ""
	}
	return *s.Team
}

// SetTeam points the user at a team
func (s *SystemPointer) SetTeam(id TeamID) {
	s.Team = &id
}

// ClearTeam removes the team link and stamps the departure time
func (s *SystemPointer) ClearTeam(now time.Time) {
	s.Team = nil
	s.LastLeftTeam = &now
}

// Capacity returns the team size this user may own
func (s *SystemPointer) Capacity(defaultMax int) int {
	if s.TeamMax > 0 {
		return s.TeamMax
	}
	return defaultMax
}

// Clone returns a deep copy
func (s *SystemPointer) Clone() *SystemPointer {
	c := *s
	if s.Team != nil {
		t := *s.Team
		c.Team = &t
	}
	if s.LastLeftTeam != nil {
		l := *s.LastLeftTeam
		c.LastLeftTeam = &l
	}
	return &c
}
