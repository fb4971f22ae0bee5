package progression

import (
	"github.com/mcoot/teamprogress/internal/model"
	"github.com/mcoot/teamprogress/internal/services/gamegraph"
)

// HideoutLevel counts the station levels the member has built. The stash
// is the exception: its level comes from the game edition and completion
// flags are ignored.
func HideoutLevel(station *model.HideoutStation, p *model.ProgressRecord) int {
	if station.IsStash() {
		return p.GameEdition.DefaultStashLevel()
	}
	n := 0
	for _, lvl := range station.Levels {
		if p.IsModuleComplete(lvl.ID) {
			n++
		}
	}
	return n
}

// HideoutLevels computes the member's level for every station
func HideoutLevels(g *gamegraph.Graph, p *model.ProgressRecord) map[model.StationID]int {
	levels := make(map[model.StationID]int, len(g.Stations()))
	for i := range g.Stations() {
		st := &g.Stations()[i]
		levels[st.ID] = HideoutLevel(st, p)
	}
	return levels
}

// HideoutLevelBuilt reports whether the member has the given level
func HideoutLevelBuilt(station *model.HideoutStation, level *model.HideoutLevel, p *model.ProgressRecord) bool {
	if station.IsStash() {
		return level.Level <= HideoutLevel(station, p)
	}
	return p.IsModuleComplete(level.ID)
}

// HideoutLevelBuildable reports whether the member could build the level
// now: not yet built, the previous level of the station built, and every
// cross-station requirement met. Unknown levels are never buildable.
func HideoutLevelBuildable(g *gamegraph.Graph, p *model.ProgressRecord, id model.HideoutLevelID) bool {
	station, level, ok := g.Level(id)
	if !ok || HideoutLevelBuilt(station, level, p) {
		return false
	}

	for i := range station.Levels {
		prev := &station.Levels[i]
		if prev.Level == level.Level-1 && !HideoutLevelBuilt(station, prev, p) {
			return false
		}
	}

	for _, req := range level.StationLevelRequirements {
		other, ok := g.Station(req.StationID)
		if !ok || HideoutLevel(other, p) < req.Level {
			return false
		}
	}
	return true
}
