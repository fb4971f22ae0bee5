package progression

import (
	"github.com/mcoot/teamprogress/internal/model"
	"github.com/mcoot/teamprogress/internal/services/gamegraph"
)

// DefaultTraderLevel is the loyalty level every member starts at
const DefaultTraderLevel = 1

// TraderReputation is the edition bonus plus the standing rewards of every
// task the member completed successfully for any trader
func TraderReputation(g *gamegraph.Graph, p *model.ProgressRecord, trader model.TraderID) float64 {
	rep := p.GameEdition.ReputationBonus()
	for i := range g.Tasks() {
		task := &g.Tasks()[i]
		if !p.IsTaskComplete(task.ID) {
			continue
		}
		for _, reward := range task.StandingRewards {
			if reward.TraderID == trader {
				rep += reward.Standing
			}
		}
	}
	return rep
}

// TraderReputations computes reputation with every trader in one pass
func TraderReputations(g *gamegraph.Graph, p *model.ProgressRecord) map[model.TraderID]float64 {
	bonus := p.GameEdition.ReputationBonus()
	reps := make(map[model.TraderID]float64, len(g.Traders()))
	for _, tr := range g.Traders() {
		reps[tr.ID] = bonus
	}
	for i := range g.Tasks() {
		task := &g.Tasks()[i]
		if !p.IsTaskComplete(task.ID) {
			continue
		}
		for _, reward := range task.StandingRewards {
			if _, ok := reps[reward.TraderID]; !ok {
				reps[reward.TraderID] = bonus
			}
			reps[reward.TraderID] += reward.Standing
		}
	}
	return reps
}

// TraderLevel is the highest level whose player level and reputation
// thresholds are both met. Levels are compared by number, not position.
func TraderLevel(trader *model.Trader, playerLevel int, reputation float64) int {
	level := DefaultTraderLevel
	if trader == nil {
		return level
	}
	for _, l := range trader.Levels {
		if playerLevel >= l.RequiredPlayerLevel && reputation >= l.RequiredReputation && l.Level > level {
			level = l.Level
		}
	}
	return level
}

// TraderLevels computes the member's loyalty level with every trader
func TraderLevels(g *gamegraph.Graph, p *model.ProgressRecord) map[model.TraderID]int {
	reps := TraderReputations(g, p)
	levels := make(map[model.TraderID]int, len(g.Traders()))
	for i := range g.Traders() {
		tr := &g.Traders()[i]
		levels[tr.ID] = TraderLevel(tr, p.PlayerLevel, reps[tr.ID])
	}
	return levels
}

// LevelWithTrader computes the member's loyalty level with one trader.
// Unknown traders are at the default level.
func LevelWithTrader(g *gamegraph.Graph, p *model.ProgressRecord, id model.TraderID) int {
	tr, ok := g.Trader(id)
	if !ok {
		return DefaultTraderLevel
	}
	return TraderLevel(tr, p.PlayerLevel, TraderReputation(g, p, id))
}
