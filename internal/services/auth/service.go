package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/crypto/bcrypt"
	"google.golang.org/grpc/codes"

	"github.com/mcoot/teamprogress/internal/dependencies/clock"
	"github.com/mcoot/teamprogress/internal/dependencies/random"
	"github.com/mcoot/teamprogress/internal/model"
	"github.com/mcoot/teamprogress/internal/storage"
)

// Errors
var (
	ErrInvalidCredentials = model.NewError(codes.Unauthenticated, "invalid credentials")
	ErrInvalidSession     = model.NewError(codes.Unauthenticated, "invalid or expired session")
	ErrUsernameExists     = model.ErrUsernameTaken
	ErrMissingCredentials = model.NewError(codes.InvalidArgument, "username and password are required")
)

// Session is an authenticated bearer session. Token is only populated on
// the value returned at creation.
type Session struct {
	Token     string
	UserID    model.UserID
	User      model.User
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Service handles authentication and session management
type Service struct {
	storage storage.Storage
	clock   clock.Clock
	random  random.Random
	logger  *slog.Logger

	sessions        *sessionStore
	sessionDuration time.Duration
}

// Config holds configuration for the auth service
type Config struct {
	SessionDuration time.Duration
}

// DefaultConfig returns default auth configuration
func DefaultConfig() Config {
	return Config{
		SessionDuration: 24 * time.Hour,
	}
}

// New creates a new auth Service
func New(storage storage.Storage, clock clock.Clock, random random.Random, logger *slog.Logger, cfg Config) *Service {
	if cfg.SessionDuration == 0 {
		cfg.SessionDuration = DefaultConfig().SessionDuration
	}
	return &Service{
		storage:         storage,
		clock:           clock,
		random:          random,
		logger:          logger,
		sessions:        newSessionStore(),
		sessionDuration: cfg.SessionDuration,
	}
}

// CreateGuest creates an anonymous user and session
func (s *Service) CreateGuest(ctx context.Context, displayName string) (*Session, error) {
	user := &model.User{
		ID:          s.newUserID(),
		DisplayName: displayName,
		IsGuest:     true,
		CreatedAt:   s.clock.Now(),
	}

	if err := s.storage.SaveUser(ctx, user); err != nil {
		s.logger.Error("failed to save guest user", "user_id", user.ID, "error", err)
		return nil, err
	}

	s.logger.Info("guest user created", "user_id", user.ID)
	return s.createSession(user), nil
}

// Register creates a registered user account and session
func (s *Service) Register(ctx context.Context, username, password, displayName string) (*Session, error) {
	if username == "" || password == "" {
		return nil, ErrMissingCredentials
	}

	// Check if username exists
	_, err := s.storage.GetRegisteredUserByUsername(ctx, username)
	if err == nil {
		return nil, ErrUsernameExists
	}
	if !errors.Is(err, model.ErrUserNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	user := &model.User{
		ID:          s.newUserID(),
		DisplayName: displayName,
		CreatedAt:   now,
	}
	registered := &model.RegisteredUser{
		UserID:       user.ID,
		Username:     username,
		PasswordHash: string(hash),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	// claiming the username settles concurrent registrations
	if err := s.storage.SaveRegisteredUser(ctx, registered); err != nil {
		return nil, err
	}
	if err := s.storage.SaveUser(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("user registered", "user_id", user.ID, "username", username)
	return s.createSession(user), nil
}

// Login authenticates a registered user and creates a session
func (s *Service) Login(ctx context.Context, username, password string) (*Session, error) {
	ru, err := s.storage.GetRegisteredUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, model.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(ru.PasswordHash), []byte(password)); err != nil {
		s.logger.Warn("login failed", "username", username)
		return nil, ErrInvalidCredentials
	}

	user, err := s.storage.GetUser(ctx, ru.UserID)
	if err != nil {
		return nil, err
	}

	return s.createSession(user), nil
}

// ValidateSession resolves a bearer token to its live session
func (s *Service) ValidateSession(token string) (*Session, error) {
	if token == "" {
		return nil, ErrInvalidSession
	}
	sess, ok := s.sessions.lookup(token, s.clock.Now())
	if !ok {
		return nil, ErrInvalidSession
	}
	return &sess, nil
}

// Logout ends the session for token. Logging out an unknown or expired
// session is not an error.
func (s *Service) Logout(token string) {
	if s.sessions.remove(digest(token)) {
		s.logger.Info("session ended")
	}
}

// CleanExpiredSessions drops every expired session and reports how many
// were removed
func (s *Service) CleanExpiredSessions() int {
	return s.sessions.sweep(s.clock.Now())
}

// ActiveSessions reports the number of sessions held, expired or not
func (s *Service) ActiveSessions() int {
	return s.sessions.len()
}

func (s *Service) createSession(user *model.User) *Session {
	now := s.clock.Now()
	sess := Session{
		Token:     "sess_" + s.random.Token(32),
		UserID:    user.ID,
		User:      *user,
		CreatedAt: now,
		ExpiresAt: now.Add(s.sessionDuration),
	}
	s.sessions.put(sess.Token, sess)
	return &sess
}

func (s *Service) newUserID() model.UserID {
	return model.UserID("u_" + s.random.Token(16))
}
