package auth

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/teamprogress/internal/dependencies/mocks"
	"github.com/mcoot/teamprogress/internal/model"
	"github.com/mcoot/teamprogress/internal/storage/memory"
	"github.com/mcoot/teamprogress/internal/testutil"
)

type ServiceSuite struct {
	suite.Suite
	storage *memory.Storage
	clock   *mocks.MockClock
	random  *mocks.MockRandom
	service *Service
	ctx     context.Context
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.storage = memory.New()
	s.clock = mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	s.random = mocks.NewMockRandom()
	s.service = New(s.storage, s.clock, s.random, testutil.NopLogger(), DefaultConfig())
	s.ctx = context.Background()
}

// CreateGuest tests

func (s *ServiceSuite) TestCreateGuestSucceeds() {
	s.random.QueueToken("abc", "session")

	session, err := s.service.CreateGuest(s.ctx, "Alice")
	s.Require().NoError(err)

	s.Equal(model.UserID("u_abc"), session.UserID)
	s.Equal("sess_session", session.Token)
	s.Equal("Alice", session.User.DisplayName)
	s.True(session.User.IsGuest)
}

func (s *ServiceSuite) TestCreateGuestPersistsUser() {
	session, _ := s.service.CreateGuest(s.ctx, "Alice")

	user, err := s.storage.GetUser(s.ctx, session.UserID)
	s.Require().NoError(err)
	s.Equal("Alice", user.DisplayName)
}

func (s *ServiceSuite) TestCreateGuestSessionIsValid() {
	session, _ := s.service.CreateGuest(s.ctx, "Alice")

	validated, err := s.service.ValidateSession(session.Token)
	s.Require().NoError(err)
	s.Equal(session.UserID, validated.UserID)
}

// Register tests

func (s *ServiceSuite) TestRegisterSucceeds() {
	session, err := s.service.Register(s.ctx, "alice", "password123", "Alice")
	s.Require().NoError(err)

	s.NotEmpty(session.Token)
	s.Equal("Alice", session.User.DisplayName)
	s.False(session.User.IsGuest)
}

func (s *ServiceSuite) TestRegisterHashesPassword() {
	_, _ = s.service.Register(s.ctx, "alice", "password123", "Alice")

	ru, err := s.storage.GetRegisteredUserByUsername(s.ctx, "alice")
	s.Require().NoError(err)
	s.NotEmpty(ru.PasswordHash)
	s.NotEqual("password123", ru.PasswordHash)
}

func (s *ServiceSuite) TestRegisterFailsIfUsernameExists() {
	_, _ = s.service.Register(s.ctx, "alice", "password123", "Alice")

	_, err := s.service.Register(s.ctx, "alice", "different", "Alice2")
	s.ErrorIs(err, ErrUsernameExists)
}

func (s *ServiceSuite) TestConcurrentRegistrationsClaimUsernameOnce() {
	const racers = 6
	var wg sync.WaitGroup
	var won atomic.Int32
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.service.Register(s.ctx, "alice", "password123", "Alice")
			switch {
			case err == nil:
				won.Add(1)
			default:
				s.ErrorIs(err, ErrUsernameExists)
			}
		}()
	}
	wg.Wait()
	s.Equal(int32(1), won.Load())

	ru, err := s.storage.GetRegisteredUserByUsername(s.ctx, "alice")
	s.Require().NoError(err)
	_, err = s.storage.GetUser(s.ctx, ru.UserID)
	s.NoError(err)
}

func (s *ServiceSuite) TestRegisterRequiresCredentials() {
	_, err := s.service.Register(s.ctx, "", "password123", "Alice")
	s.ErrorIs(err, ErrMissingCredentials)
}

// Login tests

func (s *ServiceSuite) TestLoginSucceeds() {
	registered, _ := s.service.Register(s.ctx, "alice", "password123", "Alice")

	session, err := s.service.Login(s.ctx, "alice", "password123")
	s.Require().NoError(err)

	s.Equal(registered.UserID, session.UserID)
	s.NotEqual(registered.Token, session.Token)
}

func (s *ServiceSuite) TestLoginFailsWithWrongPassword() {
	_, _ = s.service.Register(s.ctx, "alice", "password123", "Alice")

	_, err := s.service.Login(s.ctx, "alice", "wrongpassword")
	s.ErrorIs(err, ErrInvalidCredentials)
}

func (s *ServiceSuite) TestLoginFailsWithUnknownUser() {
	_, err := s.service.Login(s.ctx, "nobody", "password123")
	s.ErrorIs(err, ErrInvalidCredentials)
}

// Session tests

func (s *ServiceSuite) TestValidateSessionFailsWithInvalidToken() {
	_, err := s.service.ValidateSession("invalid_token")
	s.ErrorIs(err, ErrInvalidSession)
	s.Equal("Unauthenticated", model.CodeOf(err).String())
}

func (s *ServiceSuite) TestValidateSessionFailsWhenExpired() {
	session, _ := s.service.CreateGuest(s.ctx, "Alice")

	s.clock.Advance(25 * time.Hour)

	_, err := s.service.ValidateSession(session.Token)
	s.ErrorIs(err, ErrInvalidSession)
}

func (s *ServiceSuite) TestLogoutRemovesSession() {
	session, _ := s.service.CreateGuest(s.ctx, "Alice")

	s.service.Logout(session.Token)

	_, err := s.service.ValidateSession(session.Token)
	s.ErrorIs(err, ErrInvalidSession)

	// a second logout is a no-op
	s.service.Logout(session.Token)
}

func (s *ServiceSuite) TestValidatedSessionCarriesUserNotToken() {
	session, _ := s.service.CreateGuest(s.ctx, "Alice")
	s.NotEmpty(session.Token)

	validated, err := s.service.ValidateSession(session.Token)
	s.Require().NoError(err)
	s.Equal("Alice", validated.User.DisplayName)
	s.Empty(validated.Token)

	_, err = s.service.ValidateSession("")
	s.ErrorIs(err, ErrInvalidSession)
}

func (s *ServiceSuite) TestCleanExpiredSessionsRemovesExpired() {
	session1, _ := s.service.CreateGuest(s.ctx, "Alice")

	s.clock.Advance(25 * time.Hour)

	session2, _ := s.service.CreateGuest(s.ctx, "Bob")

	s.Equal(1, s.service.CleanExpiredSessions())
	s.Equal(1, s.service.ActiveSessions())

	_, err := s.service.ValidateSession(session1.Token)
	s.ErrorIs(err, ErrInvalidSession)

	_, err = s.service.ValidateSession(session2.Token)
	s.NoError(err)
}
