package progress

import (
	"context"
	"errors"
	"log/slog"

	"github.com/mcoot/teamprogress/internal/dependencies/clock"
	"github.com/mcoot/teamprogress/internal/model"
	"github.com/mcoot/teamprogress/internal/storage"
)

// TaskState is the state a user reports for a task
type TaskState string

const (
	TaskComplete    TaskState = "complete"
	TaskFailed      TaskState = "failed"
	TaskUncompleted TaskState = "uncompleted"
)

// ProfileUpdate carries the profile fields to change; nil fields are kept
type ProfileUpdate struct {
	PlayerLevel *int               `json:"playerLevel,omitempty"`
	GameEdition *model.GameEdition `json:"gameEdition,omitempty"`
	Faction     *model.Faction     `json:"pmcFaction,omitempty"`
	DisplayName *string            `json:"displayName,omitempty"`
}

// Service is the per-user progress store. Every mutation is an optimistic
// read-modify-write on the owner's record only.
type Service struct {
	storage storage.Storage
	clock   clock.Clock
	logger  *slog.Logger
	limits  storage.Limits
}

// New creates a progress Service
func New(storage storage.Storage, clock clock.Clock, logger *slog.Logger, limits storage.Limits) *Service {
	return &Service{
		storage: storage,
		clock:   clock,
		logger:  logger,
		limits:  limits,
	}
}

// Get returns the user's record, creating it with defaults on first access
func (s *Service) Get(ctx context.Context, user model.UserID) (*model.ProgressRecord, error) {
	p, err := s.storage.GetProgress(ctx, user)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, model.ErrProgressNotFound) {
		return nil, s.internal("get", user, err)
	}

	created, err := s.storage.CreateProgress(ctx, model.NewProgressRecord(user, s.clock.Now()))
	if err != nil {
		return nil, s.internal("create", user, err)
	}
	if created {
		s.logger.Info("progress record created", "user_id", user)
	}

	// Re-read so a concurrent first access converges on one record
	p, err = s.storage.GetProgress(ctx, user)
	if err != nil {
		return nil, s.internal("get", user, err)
	}
	return p, nil
}

// Lookup returns the stored record, or an unsaved default when the user
// has none. It never writes.
func (s *Service) Lookup(ctx context.Context, user model.UserID) (*model.ProgressRecord, error) {
	p, err := s.storage.GetProgress(ctx, user)
	if errors.Is(err, model.ErrProgressNotFound) {
		return model.NewProgressRecord(user, s.clock.Now()), nil
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// SetTaskState marks a task complete, failed, or clears it
func (s *Service) SetTaskState(ctx context.Context, user model.UserID, task model.TaskID, state TaskState) (*model.ProgressRecord, error) {
	if task == "" {
		return nil, model.ErrMissingID
	}
	switch state {
	case TaskComplete, TaskFailed, TaskUncompleted:
	default:
		return nil, model.ErrInvalidTaskState
	}

	return s.mutate(ctx, user, "set_task", func(p *model.ProgressRecord) error {
		switch state {
		case TaskUncompleted:
			delete(p.Tasks, task)
		case TaskComplete:
			p.Tasks[task] = model.TaskCompletion{Complete: true, Timestamp: s.clock.Now()}
		case TaskFailed:
			p.Tasks[task] = model.TaskCompletion{Complete: true, Failed: true, Timestamp: s.clock.Now()}
		}
		return nil
	})
}

// SetObjective marks an objective complete or incomplete
func (s *Service) SetObjective(ctx context.Context, user model.UserID, objective model.ObjectiveID, complete bool) (*model.ProgressRecord, error) {
	if objective == "" {
		return nil, model.ErrMissingID
	}
	return s.mutate(ctx, user, "set_objective", func(p *model.ProgressRecord) error {
		if complete {
			p.Objectives[objective] = true
		} else {
			delete(p.Objectives, objective)
		}
		return nil
	})
}

// SetHideoutModule marks a hideout station level built or not built
func (s *Service) SetHideoutModule(ctx context.Context, user model.UserID, level model.HideoutLevelID, complete bool) (*model.ProgressRecord, error) {
	if level == "" {
		return nil, model.ErrMissingID
	}
	return s.mutate(ctx, user, "set_hideout", func(p *model.ProgressRecord) error {
		if complete {
			p.HideoutModules[level] = model.ModuleState{Complete: true, Timestamp: s.clock.Now()}
		} else {
			delete(p.HideoutModules, level)
		}
		return nil
	})
}

// UpdateProfile changes level, edition, faction or display name
// A blank display name clears it.
func (s *Service) UpdateProfile(ctx context.Context, user model.UserID, update ProfileUpdate) (*model.ProgressRecord, error) {
	if err := update.Validate(); err != nil {
		return nil, err
	}
	var name string
	if update.DisplayName != nil {
		name, _ = model.CleanDisplayName(*update.DisplayName)
	}
	return s.mutate(ctx, user, "update_profile", func(p *model.ProgressRecord) error {
		if update.PlayerLevel != nil {
			p.PlayerLevel = *update.PlayerLevel
		}
		if update.GameEdition != nil {
			p.GameEdition = *update.GameEdition
		}
		if update.Faction != nil {
			p.Faction = *update.Faction
		}
		if update.DisplayName != nil {
			p.DisplayName = name
		}
		return nil
	})
}

// Validate checks the fields that are set
func (u ProfileUpdate) Validate() error {
	if u.PlayerLevel != nil && (*u.PlayerLevel < model.MinPlayerLevel || *u.PlayerLevel > model.MaxPlayerLevel) {
		return model.ErrInvalidLevel
	}
	if u.GameEdition != nil && !u.GameEdition.Valid() {
		return model.ErrInvalidEdition
	}
	if u.Faction != nil && !u.Faction.ValidPlayerFaction() {
		return model.ErrInvalidFaction
	}
	if u.DisplayName != nil {
		if _, err := model.CleanDisplayName(*u.DisplayName); err != nil {
			return err
		}
	}
	return nil
}

// DisplayNameOf returns the user's display name or the truncated id
func (s *Service) DisplayNameOf(ctx context.Context, user model.UserID) (string, error) {
	p, err := s.Lookup(ctx, user)
	if err != nil {
		return "", err
	}
	return p.Name(), nil
}

func (s *Service) mutate(ctx context.Context, user model.UserID, op string, apply func(p *model.ProgressRecord) error) (*model.ProgressRecord, error) {
	if _, err := s.Get(ctx, user); err != nil {
		return nil, err
	}

	var updated *model.ProgressRecord
	err := storage.RunBounded(ctx, s.limits, func(ctx context.Context) error {
		p, err := s.storage.UpdateProgress(ctx, user, func(p *model.ProgressRecord) error {
			if err := apply(p); err != nil {
				return err
			}
			p.Version++
			p.UpdatedAt = s.clock.Now()
			return nil
		})
		if err != nil {
			return err
		}
		updated = p
		return nil
	})
	if err != nil {
		return nil, s.internal(op, user, err)
	}

	s.logger.Debug("progress updated", "user_id", user, "operation", op, "version", updated.Version)
	return updated, nil
}

// internal logs unexpected failures and hides their detail from callers
func (s *Service) internal(op string, user model.UserID, err error) error {
	if model.IsUnexpected(err) {
		s.logger.Error("progress operation failed", "operation", op, "user_id", user, "error", err)
	}
	return model.Public(err)
}
