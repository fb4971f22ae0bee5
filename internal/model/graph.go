package model

// Identifiers used by the static game graph
type (
	TaskID         string
	ObjectiveID    string
	TraderID       string
	MapID          string
	StationID      string
	HideoutLevelID string
	ItemID         string
)

// RequiredStatus is the state a prerequisite task must reach
type RequiredStatus string

const (
	RequireCompleted RequiredStatus = "completed"
	RequireFailed    RequiredStatus = "failed"
	RequireAny       RequiredStatus = "any" // completed or failed
)

// TaskRequirement gates a task on another task's outcome
type TaskRequirement struct {
	TaskID TaskID         `json:"taskId" yaml:"taskId"`
	Status RequiredStatus `json:"status,omitempty" yaml:"status,omitempty"`
}

// TraderRequirement gates a task on a trader loyalty level
type TraderRequirement struct {
	TraderID TraderID `json:"traderId" yaml:"traderId"`
	Level    int      `json:"level" yaml:"level"`
}

// StandingReward is a reputation change granted on task completion
type StandingReward struct {
	TraderID TraderID `json:"traderId" yaml:"traderId"`
	Standing float64  `json:"standing" yaml:"standing"`
}

// Objective is one step of a task
type Objective struct {
	ID       ObjectiveID `json:"id" yaml:"id"`
	TaskID   TaskID      `json:"taskId,omitempty" yaml:"taskId,omitempty"`
	Type     string      `json:"type" yaml:"type"`
	Optional bool        `json:"optional,omitempty" yaml:"optional,omitempty"`
}

// Task is a completable objective offered by a trader
type Task struct {
	ID                 TaskID              `json:"id" yaml:"id"`
	Name               string              `json:"name,omitempty" yaml:"name,omitempty"`
	TraderID           TraderID            `json:"traderId" yaml:"traderId"`
	MapID              MapID               `json:"mapId,omitempty" yaml:"mapId,omitempty"`
	Experience         int                 `json:"experience,omitempty" yaml:"experience,omitempty"`
	MinPlayerLevel     int                 `json:"minPlayerLevel,omitempty" yaml:"minPlayerLevel,omitempty"`
	TaskRequirements   []TaskRequirement   `json:"taskRequirements,omitempty" yaml:"taskRequirements,omitempty"`
	TraderRequirements []TraderRequirement `json:"traderLevelRequirements,omitempty" yaml:"traderLevelRequirements,omitempty"`
	Faction            Faction             `json:"factionName,omitempty" yaml:"factionName,omitempty"`
	Objectives         []Objective         `json:"objectives,omitempty" yaml:"objectives,omitempty"`
	Alternatives       []TaskID            `json:"alternatives,omitempty" yaml:"alternatives,omitempty"`
	StandingRewards    []StandingReward    `json:"standingRewards,omitempty" yaml:"standingRewards,omitempty"`
}

// TraderLevel is one loyalty tier and what it takes to reach it
type TraderLevel struct {
	Level               int     `json:"level" yaml:"level"`
	RequiredReputation  float64 `json:"requiredReputation" yaml:"requiredReputation"`
	RequiredPlayerLevel int     `json:"requiredPlayerLevel" yaml:"requiredPlayerLevel"`
}

// Trader sells goods and hands out tasks
type Trader struct {
	ID     TraderID      `json:"id" yaml:"id"`
	Name   string        `json:"name,omitempty" yaml:"name,omitempty"`
	Levels []TraderLevel `json:"levels" yaml:"levels"`
}

// ItemRequirement is an item cost of a hideout level
type ItemRequirement struct {
	ItemID ItemID `json:"itemId" yaml:"itemId"`
	Count  int    `json:"count" yaml:"count"`
}

// StationLevelRequirement requires another station to be built to a level
type StationLevelRequirement struct {
	StationID StationID `json:"stationId" yaml:"stationId"`
	Level     int       `json:"level" yaml:"level"`
}

// HideoutLevel is one buildable tier of a station
type HideoutLevel struct {
	ID                       HideoutLevelID            `json:"id" yaml:"id"`
	Level                    int                       `json:"level" yaml:"level"`
	ItemRequirements         []ItemRequirement         `json:"itemRequirements,omitempty" yaml:"itemRequirements,omitempty"`
	StationLevelRequirements []StationLevelRequirement `json:"stationLevelRequirements,omitempty" yaml:"stationLevelRequirements,omitempty"`
}

// StashStationName is the normalized name of the station whose tier
// comes from the game edition rather than from building it
const StashStationName = "stash"

// HideoutStation is an upgradeable base module
type HideoutStation struct {
	ID             StationID      `json:"id" yaml:"id"`
	Name           string         `json:"name,omitempty" yaml:"name,omitempty"`
	NormalizedName string         `json:"normalizedName" yaml:"normalizedName"`
	Levels         []HideoutLevel `json:"levels" yaml:"levels"`
}

// IsStash reports whether this is the edition-granted stash station
func (s *HideoutStation) IsStash() bool {
	return s.NormalizedName == StashStationName
}

// TasksDocument is the stored shape of the "tasks" document
type TasksDocument struct {
	Tasks   []Task   `json:"tasks" yaml:"tasks"`
	Traders []Trader `json:"traders" yaml:"traders"`
}

// HideoutDocument is the stored shape of the "hideout" document
type HideoutDocument struct {
	HideoutStations []HideoutStation `json:"hideoutStations" yaml:"hideoutStations"`
}

// Names of the stored game graph documents
const (
	TasksDocumentName   = "tasks"
	HideoutDocumentName = "hideout"
)
