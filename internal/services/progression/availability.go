package progression

import (
	"github.com/mcoot/teamprogress/internal/model"
	"github.com/mcoot/teamprogress/internal/services/gamegraph"
)

// TaskAvailable reports whether the member can take the task right now.
// Checks run in a fixed order and the first failing one decides:
//
//  1. the task is already completed or failed
//  2. a prerequisite that must be completed (or resolved either way) is not
//  3. a prerequisite that must be failed was not failed
//  4. the member is below the task's minimum player level
//  5. a required trader loyalty level is not reached
//  6. the task belongs to the other faction
//
// Alternative tasks are not suppressed here.
func TaskAvailable(g *gamegraph.Graph, p *model.ProgressRecord, task *model.Task) bool {
	return available(task, p, func(id model.TraderID) int {
		return LevelWithTrader(g, p, id)
	})
}

// Availability evaluates every task in the graph for one member
func Availability(g *gamegraph.Graph, p *model.ProgressRecord) map[model.TaskID]bool {
	return availabilityWith(g, p, TraderLevels(g, p))
}

func availabilityWith(g *gamegraph.Graph, p *model.ProgressRecord, traderLevels map[model.TraderID]int) map[model.TaskID]bool {
	levelOf := func(id model.TraderID) int {
		if l, ok := traderLevels[id]; ok {
			return l
		}
		return DefaultTraderLevel
	}

	out := make(map[model.TaskID]bool, len(g.Tasks()))
	for i := range g.Tasks() {
		task := &g.Tasks()[i]
		out[task.ID] = available(task, p, levelOf)
	}
	return out
}

// TeamAvailability evaluates every task for every member, keyed task then
// member
func TeamAvailability(g *gamegraph.Graph, members map[model.UserID]*model.ProgressRecord) map[model.TaskID]map[model.UserID]bool {
	out := make(map[model.TaskID]map[model.UserID]bool, len(g.Tasks()))
	for _, task := range g.Tasks() {
		out[task.ID] = make(map[model.UserID]bool, len(members))
	}
	for key, p := range members {
		for id, ok := range Availability(g, p) {
			out[id][key] = ok
		}
	}
	return out
}

func available(task *model.Task, p *model.ProgressRecord, traderLevel func(model.TraderID) int) bool {
	if p.IsTaskResolved(task.ID) {
		return false
	}

	for _, req := range task.TaskRequirements {
		switch req.Status {
		case model.RequireAny:
			if !p.IsTaskResolved(req.TaskID) {
				return false
			}
		case model.RequireFailed:
		default:
			if !p.IsTaskComplete(req.TaskID) {
				return false
			}
		}
	}

	for _, req := range task.TaskRequirements {
		if req.Status == model.RequireFailed && !p.IsTaskFailed(req.TaskID) {
			return false
		}
	}

	if task.MinPlayerLevel > 0 && p.PlayerLevel < task.MinPlayerLevel {
		return false
	}

	for _, req := range task.TraderRequirements {
		if traderLevel(req.TraderID) < req.Level {
			return false
		}
	}

	if task.Faction != "" && task.Faction != model.FactionAny && task.Faction != p.Faction {
		return false
	}

	return true
}

// ObjectiveProgress counts the member's completed required objectives
// for the task. Optional objectives are not counted.
func ObjectiveProgress(task *model.Task, p *model.ProgressRecord) (done, total int) {
	for _, obj := range task.Objectives {
		if obj.Optional {
			continue
		}
		total++
		if p.IsObjectiveComplete(obj.ID) {
			done++
		}
	}
	return done, total
}
