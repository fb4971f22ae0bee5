package model

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// GameEdition is the purchased edition of the game, which grants a
// reputation bonus and a starting stash tier
type GameEdition int

const (
	EditionStandard GameEdition = iota + 1
	EditionLeftBehind
	EditionPrepareForEscape
	EditionEdgeOfDarkness
	EditionUnheard
)

// EditionInfo describes what an edition grants
type EditionInfo struct {
	Title             string
	ReputationBonus   float64
	DefaultStashLevel int
}

var editions = map[GameEdition]EditionInfo{
	EditionStandard:         {Title: "Standard", ReputationBonus: 0, DefaultStashLevel: 1},
	EditionLeftBehind:       {Title: "Left Behind", ReputationBonus: 0, DefaultStashLevel: 2},
	EditionPrepareForEscape: {Title: "Prepare for Escape", ReputationBonus: 0, DefaultStashLevel: 3},
	EditionEdgeOfDarkness:   {Title: "Edge of Darkness", ReputationBonus: 0.2, DefaultStashLevel: 4},
	EditionUnheard:          {Title: "Unheard", ReputationBonus: 0.2, DefaultStashLevel: 4},
}

// Valid reports whether e is a known edition
func (e GameEdition) Valid() bool {
	_, ok := editions[e]
	return ok
}

// Info returns the edition's table entry; unknown editions get the
// Standard entry
func (e GameEdition) Info() EditionInfo {
	if info, ok := editions[e]; ok {
		return info
	}
	return editions[EditionStandard]
}

// ReputationBonus is the flat trader reputation granted by the edition
func (e GameEdition) ReputationBonus() float64 {
	return e.Info().ReputationBonus
}

// DefaultStashLevel is the stash tier granted by the edition
func (e GameEdition) DefaultStashLevel() int {
	return e.Info().DefaultStashLevel
}

// Faction is a player-chosen side. Tasks may be restricted to one.
type Faction string

const (
	FactionAny  Faction = "Any"
	FactionUSEC Faction = "USEC"
	FactionBEAR Faction = "BEAR"
)

// ValidPlayerFaction reports whether f can be chosen by a player
func (f Faction) ValidPlayerFaction() bool {
	return f == FactionUSEC || f == FactionBEAR
}

const (
	MinPlayerLevel = 1
	MaxPlayerLevel = 79

	// DisplayNameFallbackLength is how much of the user id is shown when
	// a user has not chosen a display name
	DisplayNameFallbackLength = 6

	// MaxDisplayNameLength is counted in runes
	MaxDisplayNameLength = 32
)

// CleanDisplayName trims surrounding space from a chosen display name.
// An empty result means no name is set.
func CleanDisplayName(raw string) (string, error) {
	name := strings.TrimSpace(raw)
	if utf8.RuneCountInString(name) > MaxDisplayNameLength {
		return "", ErrDisplayNameTooLong
	}
	return name, nil
}

// TaskCompletion records that a task was resolved. A failed task is also
// marked complete, so Complete alone means "no longer actionable".
type TaskCompletion struct {
	Complete  bool      `json:"complete"`
	Failed    bool      `json:"failed,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// ModuleState records completion of one hideout station level
type ModuleState struct {
	Complete  bool      `json:"complete"`
	Timestamp time.Time `json:"timestamp"`
}

// ProgressRecord is one user's raw progress. Only its owner mutates it.
type ProgressRecord struct {
	UserID         UserID                         `json:"userId"`
	DisplayName    string                         `json:"displayName,omitempty"`
	PlayerLevel    int                            `json:"playerLevel"`
	GameEdition    GameEdition                    `json:"gameEdition"`
	Faction        Faction                        `json:"pmcFaction"`
	Tasks          map[TaskID]TaskCompletion      `json:"taskCompletions"`
	Objectives     map[ObjectiveID]bool           `json:"taskObjectives"`
	HideoutModules map[HideoutLevelID]ModuleState `json:"hideoutModules"`
	Version        int64                          `json:"version"`
	UpdatedAt      time.Time                      `json:"updatedAt"`
}

// NewProgressRecord returns the default record created on first access
func NewProgressRecord(id UserID, now time.Time) *ProgressRecord {
	return &ProgressRecord{
		UserID:         id,
		PlayerLevel:    MinPlayerLevel,
		GameEdition:    EditionStandard,
		Faction:        FactionUSEC,
		Tasks:          make(map[TaskID]TaskCompletion),
		Objectives:     make(map[ObjectiveID]bool),
		HideoutModules: make(map[HideoutLevelID]ModuleState),
		UpdatedAt:      now,
	}
}

// Normalize fills maps left nil by older documents
func (p *ProgressRecord) Normalize() {
	if p.Tasks == nil {
		p.Tasks = make(map[TaskID]TaskCompletion)
	}
	if p.Objectives == nil {
		p.Objectives = make(map[ObjectiveID]bool)
	}
	if p.HideoutModules == nil {
		p.HideoutModules = make(map[HideoutLevelID]ModuleState)
	}
}

// Validate checks a decoded record before it is handed out
func (p *ProgressRecord) Validate() error {
	if p.UserID == "" {
		return fmt.Errorf("%w: progress record has no user id", ErrCorruptDocument)
	}
	if p.PlayerLevel < MinPlayerLevel || p.PlayerLevel > MaxPlayerLevel {
		return fmt.Errorf("%w: player level %d", ErrCorruptDocument, p.PlayerLevel)
	}
	if !p.GameEdition.Valid() {
		return fmt.Errorf("%w: game edition %d", ErrCorruptDocument, p.GameEdition)
	}
	if !p.Faction.ValidPlayerFaction() {
		return fmt.Errorf("%w: faction %q", ErrCorruptDocument, p.Faction)
	}
	return nil
}

// Name returns the display name, falling back to a truncated user id
func (p *ProgressRecord) Name() string {
	if p.DisplayName != "" {
		return p.DisplayName
	}
	id := string(p.UserID)
	if len(id) > DisplayNameFallbackLength {
		return id[:DisplayNameFallbackLength]
	}
	return id
}

// IsTaskResolved reports whether the task was completed or failed
func (p *ProgressRecord) IsTaskResolved(id TaskID) bool {
	return p.Tasks[id].Complete
}

// IsTaskComplete reports whether the task was completed successfully
func (p *ProgressRecord) IsTaskComplete(id TaskID) bool {
	c := p.Tasks[id]
	return c.Complete && !c.Failed
}

// IsTaskFailed reports whether the task was failed
func (p *ProgressRecord) IsTaskFailed(id TaskID) bool {
	return p.Tasks[id].Failed
}

// IsObjectiveComplete reports whether the objective was completed
func (p *ProgressRecord) IsObjectiveComplete(id ObjectiveID) bool {
	return p.Objectives[id]
}

// IsModuleComplete reports whether the hideout station level was built
func (p *ProgressRecord) IsModuleComplete(id HideoutLevelID) bool {
	return p.HideoutModules[id].Complete
}

// Clone returns a deep copy
func (p *ProgressRecord) Clone() *ProgressRecord {
	c := *p
	c.Tasks = make(map[TaskID]TaskCompletion, len(p.Tasks))
	for k, v := range p.Tasks {
		c.Tasks[k] = v
	}
	c.Objectives = make(map[ObjectiveID]bool, len(p.Objectives))
	for k, v := range p.Objectives {
		c.Objectives[k] = v
	}
	c.HideoutModules = make(map[HideoutLevelID]ModuleState, len(p.HideoutModules))
	for k, v := range p.HideoutModules {
		c.HideoutModules[k] = v
	}
	return &c
}
