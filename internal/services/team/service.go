package team

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/mcoot/teamprogress/internal/dependencies/clock"
	"github.com/mcoot/teamprogress/internal/dependencies/random"
	"github.com/mcoot/teamprogress/internal/model"
	"github.com/mcoot/teamprogress/internal/storage"
)

const (
	// HardMemberLimit caps every team's capacity. It also bounds the number
	// of pointer writes a disband puts into one transaction.
	HardMemberLimit = 50

	// SecretBytes is the entropy of a generated invite secret
	SecretBytes = 24
)

// Config holds configuration for the team service
type Config struct {
	DefaultTeamMax int
	// CreateCooldown is how long after leaving a team a user must wait
	// before creating one. Zero disables the check.
	CreateCooldown time.Duration
	Limits         storage.Limits
	// PublicURL is the base of invite links
	PublicURL string
}

// DefaultConfig returns default team configuration
func DefaultConfig() Config {
	return Config{
		DefaultTeamMax: model.DefaultTeamMax,
		CreateCooldown: 5 * time.Minute,
		Limits:         storage.DefaultLimits(),
		PublicURL:      "http://localhost:8080/team",
	}
}

// View is a team as seen by one of its members
type View struct {
	Team       *model.Team
	IsOwner    bool
	InviteLink string
}

// Service manages team membership. Every mutation is one transaction over
// the team record and the system pointers it touches, retried on conflict.
type Service struct {
	storage storage.Storage
	clock   clock.Clock
	random  random.Random
	logger  *slog.Logger
	cfg     Config
}

// New creates a team Service
func New(storage storage.Storage, clock clock.Clock, random random.Random, logger *slog.Logger, cfg Config) *Service {
	if cfg.DefaultTeamMax <= 0 {
		cfg.DefaultTeamMax = model.DefaultTeamMax
	}
	cfg.DefaultTeamMax = clampCapacity(cfg.DefaultTeamMax)
	return &Service{
		storage: storage,
		clock:   clock,
		random:  random,
		logger:  logger,
		cfg:     cfg,
	}
}

// CreateTeam creates a team owned by the requester and returns its id
func (s *Service) CreateTeam(ctx context.Context, requester model.UserID) (model.TeamID, error) {
	if requester == "" {
		return "", model.ErrUnauthenticated
	}
	teamID := model.TeamIDFor(requester)

	err := s.run(ctx, "create_team", requester, string(teamID), func(ctx context.Context, tx storage.Tx) error {
		sys, err := pointerOrNew(ctx, tx, requester)
		if err != nil {
			return err
		}
		if sys.InTeam() {
			return model.ErrAlreadyInTeam
		}

		if clock.Within(s.clock, sys.LastLeftTeam, s.cfg.CreateCooldown) {
			return model.ErrCreateCooldown
		}
		now := s.clock.Now()

		if _, err := tx.GetTeam(ctx, teamID); err == nil {
			return model.ErrTeamExists
		} else if !errors.Is(err, model.ErrTeamNotFound) {
			return err
		}

		tx.PutTeam(&model.Team{
			ID:             teamID,
			Owner:          requester,
			Password:       s.random.Token(SecretBytes),
			Members:        []model.UserID{requester},
			MaximumMembers: clampCapacity(sys.Capacity(s.cfg.DefaultTeamMax)),
			Version:        1,
			CreatedAt:      now,
			UpdatedAt:      now,
		})
		sys.SetTeam(teamID)
		tx.PutSystem(sys)
		return nil
	})
	if err != nil {
		return "", err
	}
	return teamID, nil
}

// JoinTeam adds the requester to a team after checking its secret
func (s *Service) JoinTeam(ctx context.Context, requester model.UserID, teamID model.TeamID, secret string) error {
	if requester == "" {
		return model.ErrUnauthenticated
	}

	return s.run(ctx, "join_team", requester, string(teamID), func(ctx context.Context, tx storage.Tx) error {
		sys, err := pointerOrNew(ctx, tx, requester)
		if err != nil {
			return err
		}
		if sys.InTeam() {
			return model.ErrAlreadyInTeam
		}
		if teamID == "" || secret == "" {
			return model.ErrMissingTeamID
		}

		team, err := tx.GetTeam(ctx, teamID)
		if err != nil {
			return err
		}
		if subtle.ConstantTimeCompare([]byte(team.Password), []byte(secret)) != 1 {
			return model.ErrWrongPassword
		}
		if team.IsFull() {
			return model.ErrTeamFull
		}

		team.AddMember(requester)
		s.touch(team)
		tx.PutTeam(team)

		sys.SetTeam(teamID)
		tx.PutSystem(sys)
		return nil
	})
}

// LeaveTeam removes the requester from their team. When the owner leaves
// the team is disbanded and every member is released in the same
// transaction. Reports whether the team was disbanded.
func (s *Service) LeaveTeam(ctx context.Context, requester model.UserID) (bool, error) {
	if requester == "" {
		return false, model.ErrUnauthenticated
	}

	var disbanded bool
	var teamID model.TeamID
	err := s.run(ctx, "leave_team", requester, "", func(ctx context.Context, tx storage.Tx) error {
		disbanded = false

		sys, err := pointerOrNew(ctx, tx, requester)
		if err != nil {
			return err
		}
		if !sys.InTeam() {
			return model.ErrNotInTeam
		}
		teamID = sys.TeamID()
		now := s.clock.Now()

		team, err := tx.GetTeam(ctx, teamID)
		if errors.Is(err, model.ErrTeamNotFound) {
			// dangling pointer: release it so the user is not stuck
			sys.ClearTeam(now)
			tx.PutSystem(sys)
			return nil
		}
		if err != nil {
			return err
		}

		if team.Owner != requester {
			team.RemoveMember(requester)
			s.touch(team)
			tx.PutTeam(team)
			sys.ClearTeam(now)
			tx.PutSystem(sys)
			return nil
		}

		if len(team.Members) > HardMemberLimit {
			return fmt.Errorf("%w: team %s has %d members", model.ErrCorruptDocument, team.ID, len(team.Members))
		}
		for _, member := range team.Members {
			if member == requester {
				continue
			}
			msys, err := pointerOrNew(ctx, tx, member)
			if err != nil {
				return err
			}
			if msys.TeamID() == team.ID {
				msys.ClearTeam(now)
				tx.PutSystem(msys)
			}
		}
		sys.ClearTeam(now)
		tx.PutSystem(sys)
		tx.DeleteTeam(team.ID)
		disbanded = true
		return nil
	})
	if err != nil {
		return false, err
	}
	if disbanded {
		s.logger.Info("team disbanded", "actor", requester, "team_id", teamID)
	}
	return disbanded, nil
}

// KickMember removes a member from the requester's team
func (s *Service) KickMember(ctx context.Context, requester, target model.UserID) error {
	if requester == "" {
		return model.ErrUnauthenticated
	}
	if target == "" {
		return model.ErrMissingKickedID
	}

	return s.run(ctx, "kick_member", requester, string(target), func(ctx context.Context, tx storage.Tx) error {
		sys, err := pointerOrNew(ctx, tx, requester)
		if err != nil {
			return err
		}
		if !sys.InTeam() {
			return model.ErrNotTeamOwner
		}

		team, err := tx.GetTeam(ctx, sys.TeamID())
		if err != nil {
			return err
		}
		if team.Owner != requester {
			return model.ErrNotTeamOwner
		}
		if target == requester {
			return model.ErrCannotKickSelf
		}

		tsys, err := tx.GetSystem(ctx, target)
		if err != nil {
			return err
		}
		if !team.HasMember(target) {
			return model.ErrNotTeamMember
		}

		team.RemoveMember(target)
		s.touch(team)
		tx.PutTeam(team)

		if tsys.TeamID() == team.ID {
			tsys.ClearTeam(s.clock.Now())
			tx.PutSystem(tsys)
		}
		return nil
	})
}

// GetTeam returns the requester's current team
func (s *Service) GetTeam(ctx context.Context, requester model.UserID) (*View, error) {
	if requester == "" {
		return nil, model.ErrUnauthenticated
	}

	sys, err := s.storage.GetSystem(ctx, requester)
	if errors.Is(err, model.ErrSystemNotFound) {
		return nil, model.ErrNotInTeam
	}
	if err != nil {
		return nil, s.fail("get_team", requester, "", err)
	}
	if !sys.InTeam() {
		return nil, model.ErrNotInTeam
	}

	team, err := s.storage.GetTeam(ctx, sys.TeamID())
	if errors.Is(err, model.ErrTeamNotFound) {
		return nil, model.ErrNotInTeam
	}
	if err != nil {
		return nil, s.fail("get_team", requester, string(sys.TeamID()), err)
	}

	return &View{
		Team:       team,
		IsOwner:    team.Owner == requester,
		InviteLink: s.InviteLink(team),
	}, nil
}

// SetTeamQuota sets the capacity of teams the user owns. A team the user
// currently owns is resized too.
func (s *Service) SetTeamQuota(ctx context.Context, user model.UserID, limit int) error {
	if user == "" {
		return model.ErrMissingID
	}
	if limit < 1 || limit > HardMemberLimit {
		return model.ErrInvalidQuota
	}

	return s.run(ctx, "set_team_quota", user, "", func(ctx context.Context, tx storage.Tx) error {
		sys, err := pointerOrNew(ctx, tx, user)
		if err != nil {
			return err
		}

		team, err := tx.GetTeam(ctx, model.TeamIDFor(user))
		switch {
		case err == nil:
			if limit < len(team.Members) {
				return model.ErrInvalidQuota
			}
			team.MaximumMembers = limit
			s.touch(team)
			tx.PutTeam(team)
		case !errors.Is(err, model.ErrTeamNotFound):
			return err
		}

		sys.TeamMax = limit
		tx.PutSystem(sys)
		return nil
	})
}

// InviteLink builds the shareable join link for a team. It embeds the
// secret, so it must never be logged.
func (s *Service) InviteLink(team *model.Team) string {
	base := strings.TrimRight(s.cfg.PublicURL, "?")
	sep := "?"
	if strings.Contains(base, "?") {
		sep = "&"
	}
	return base + sep + "team=" + url.QueryEscape(string(team.ID)) + "&code=" + url.QueryEscape(team.Password)
}

// run executes fn as a bounded, retried transaction and logs the outcome
func (s *Service) run(ctx context.Context, op string, actor model.UserID, target string, fn storage.TxFunc) error {
	err := storage.RunBounded(ctx, s.cfg.Limits, func(ctx context.Context) error {
		return s.storage.RunTx(ctx, fn)
	})
	if err != nil {
		if model.IsUnexpected(err) {
			return s.fail(op, actor, target, err)
		}
		s.logger.Debug("team operation rejected", "operation", op, "actor", actor, "target", target, "code", model.CodeOf(err).String())
		return model.Public(err)
	}
	s.logger.Info("team operation succeeded", "operation", op, "actor", actor, "target", target)
	return nil
}

func (s *Service) fail(op string, actor model.UserID, target string, err error) error {
	s.logger.Error("team operation failed", "operation", op, "actor", actor, "target", target, "error", err)
	return model.Public(err)
}

func (s *Service) touch(team *model.Team) {
	team.Version++
	team.UpdatedAt = s.clock.Now()
}

// pointerOrNew reads a user's pointer, treating a missing one as empty
func pointerOrNew(ctx context.Context, tx storage.Tx, id model.UserID) (*model.SystemPointer, error) {
	sys, err := tx.GetSystem(ctx, id)
	if errors.Is(err, model.ErrSystemNotFound) {
		return model.NewSystemPointer(id), nil
	}
	return sys, err
}

func clampCapacity(n int) int {
	if n < 1 {
		return 1
	}
	if n > HardMemberLimit {
		return HardMemberLimit
	}
	return n
}
