package aggregate

import (
	"context"
	"errors"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/mcoot/teamprogress/internal/model"
	"github.com/mcoot/teamprogress/internal/services/gamegraph"
	"github.com/mcoot/teamprogress/internal/services/progression"
	"github.com/mcoot/teamprogress/internal/storage"
)

// SelfKey is the fixed key of the viewer's own entry
const SelfKey model.UserID = "self"

// fetchConcurrency bounds parallel progress reads per request
const fetchConcurrency = 8

// ProgressReader reads progress without creating it
type ProgressReader interface {
	Lookup(ctx context.Context, id model.UserID) (*model.ProgressRecord, error)
}

// GraphSource provides the current game graph
type GraphSource interface {
	Get(ctx context.Context) (*gamegraph.Graph, error)
}

// MemberProgress is one member's raw record plus what is derived from it
type MemberProgress struct {
	UserID      model.UserID          `json:"userId"`
	DisplayName string                `json:"displayName"`
	IsOwner     bool                  `json:"isOwner"`
	Progress    *model.ProgressRecord `json:"progress"`
	Derived     *progression.View     `json:"derived,omitempty"`
}

// TeamProgress is a viewer's read-only view of their team
type TeamProgress struct {
	TeamID        model.TeamID                           `json:"teamId,omitempty"`
	RosterVersion int64                                  `json:"rosterVersion"`
	Members       map[model.UserID]*MemberProgress       `json:"members"`
	Hidden        []model.UserID                         `json:"hidden"`
	GraphVersion  string                                 `json:"graphVersion,omitempty"`
	Availability  map[model.TaskID]map[model.UserID]bool `json:"availability,omitempty"`
}

// Aggregator collects the progress of every visible team member
type Aggregator struct {
	storage  storage.Storage
	progress ProgressReader
	graphs   GraphSource
	memo     *progression.Memo
	logger   *slog.Logger
}

// New creates an Aggregator. memo may be nil to derive views uncached.
func New(storage storage.Storage, progress ProgressReader, graphs GraphSource, memo *progression.Memo, logger *slog.Logger) *Aggregator {
	return &Aggregator{
		storage:  storage,
		progress: progress,
		graphs:   graphs,
		memo:     memo,
		logger:   logger,
	}
}

// TeamProgress returns the viewer's record under SelfKey and every other
// visible member's record under their user id. A viewer without a team
// sees only themselves. Derived views are included once a graph is loaded.
func (a *Aggregator) TeamProgress(ctx context.Context, vis Visibility) (*TeamProgress, error) {
	if vis.Viewer == "" {
		return nil, model.ErrUnauthenticated
	}

	team, err := a.teamOf(ctx, vis.Viewer)
	if err != nil {
		return nil, a.fail(vis.Viewer, err)
	}

	out := &TeamProgress{
		Members: make(map[model.UserID]*MemberProgress),
		Hidden:  vis.Hidden(),
	}
	others := []model.UserID{}
	if team != nil {
		out.TeamID = team.ID
		out.RosterVersion = team.Version
		for _, id := range vis.Filter(team.Members) {
			if id != vis.Viewer {
				others = append(others, id)
			}
		}
	}

	ids := append([]model.UserID{vis.Viewer}, others...)
	records := make([]*model.ProgressRecord, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fetchConcurrency)
	for i, id := range ids {
		g.Go(func() error {
			p, err := a.progress.Lookup(gctx, id)
			if err != nil {
				return err
			}
			records[i] = p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, a.fail(vis.Viewer, err)
	}

	for i, id := range ids {
		key := id
		if id == vis.Viewer {
			key = SelfKey
		}
		out.Members[key] = &MemberProgress{
			UserID:      id,
			DisplayName: records[i].Name(),
			IsOwner:     team != nil && team.Owner == id,
			Progress:    records[i],
		}
	}

	graph, err := a.graphs.Get(ctx)
	if errors.Is(err, model.ErrGraphNotLoaded) {
		return out, nil
	}
	if err != nil {
		return nil, a.fail(vis.Viewer, err)
	}
	a.derive(graph, out)
	return out, nil
}

func (a *Aggregator) derive(graph *gamegraph.Graph, out *TeamProgress) {
	out.GraphVersion = graph.Version()

	if a.memo == nil {
		byKey := make(map[model.UserID]*model.ProgressRecord, len(out.Members))
		for key, m := range out.Members {
			m.Derived = progression.Derive(graph, m.Progress)
			byKey[key] = m.Progress
		}
		out.Availability = progression.TeamAvailability(graph, byKey)
		return
	}

	out.Availability = make(map[model.TaskID]map[model.UserID]bool, len(graph.Tasks()))
	for _, task := range graph.Tasks() {
		out.Availability[task.ID] = make(map[model.UserID]bool, len(out.Members))
	}
	for key, m := range out.Members {
		m.Derived = a.memo.View(graph, m.Progress)
		for id, ok := range m.Derived.Tasks {
			out.Availability[id][key] = ok
		}
	}
}

// teamOf returns the viewer's team, or nil when they are not on one
func (a *Aggregator) teamOf(ctx context.Context, viewer model.UserID) (*model.Team, error) {
	sys, err := a.storage.GetSystem(ctx, viewer)
	if errors.Is(err, model.ErrSystemNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if !sys.InTeam() {
		return nil, nil
	}

	team, err := a.storage.GetTeam(ctx, sys.TeamID())
	if errors.Is(err, model.ErrTeamNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if !team.HasMember(viewer) {
		return nil, nil
	}
	return team, nil
}

func (a *Aggregator) fail(viewer model.UserID, err error) error {
	if model.IsUnexpected(err) {
		a.logger.Error("team progress aggregation failed", "viewer", viewer, "error", err)
	}
	return model.Public(err)
}
