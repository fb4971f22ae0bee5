package progress

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/teamprogress/internal/dependencies/mocks"
	"github.com/mcoot/teamprogress/internal/model"
	"github.com/mcoot/teamprogress/internal/storage"
	"github.com/mcoot/teamprogress/internal/storage/memory"
	"github.com/mcoot/teamprogress/internal/testutil"
)

type ServiceSuite struct {
	suite.Suite
	storage *memory.Storage
	clock   *mocks.MockClock
	service *Service
	ctx     context.Context
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.storage = memory.New()
	s.clock = mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	s.service = New(s.storage, s.clock, testutil.NopLogger(), storage.DefaultLimits())
	s.ctx = context.Background()
}

func ptr[T any](v T) *T { return &v }

func (s *ServiceSuite) TestGetCreatesDefaults() {
	p, err := s.service.Get(s.ctx, "user-1")
	s.Require().NoError(err)

	s.Equal(model.MinPlayerLevel, p.PlayerLevel)
	s.Equal(model.EditionStandard, p.GameEdition)
	s.Equal(model.FactionUSEC, p.Faction)
	s.Empty(p.Tasks)

	stored, err := s.storage.GetProgress(s.ctx, "user-1")
	s.Require().NoError(err)
	s.Equal(p.UserID, stored.UserID)
}

func (s *ServiceSuite) TestLookupDoesNotWrite() {
	p, err := s.service.Lookup(s.ctx, "user-1")
	s.Require().NoError(err)
	s.Equal(model.UserID("user-1"), p.UserID)

	_, err = s.storage.GetProgress(s.ctx, "user-1")
	s.ErrorIs(err, model.ErrProgressNotFound)
}

func (s *ServiceSuite) TestSetTaskStates() {
	p, err := s.service.SetTaskState(s.ctx, "user-1", "task-a", TaskComplete)
	s.Require().NoError(err)
	s.True(p.IsTaskComplete("task-a"))
	s.Equal(int64(1), p.Version)

	p, err = s.service.SetTaskState(s.ctx, "user-1", "task-b", TaskFailed)
	s.Require().NoError(err)
	s.True(p.IsTaskFailed("task-b"))
	s.True(p.IsTaskResolved("task-b"))
	s.False(p.IsTaskComplete("task-b"))

	p, err = s.service.SetTaskState(s.ctx, "user-1", "task-a", TaskUncompleted)
	s.Require().NoError(err)
	s.False(p.IsTaskResolved("task-a"))
	s.Equal(int64(3), p.Version)
}

func (s *ServiceSuite) TestSetTaskStateValidates() {
	_, err := s.service.SetTaskState(s.ctx, "user-1", "task-a", TaskState("done"))
	s.ErrorIs(err, model.ErrInvalidTaskState)

	_, err = s.service.SetTaskState(s.ctx, "user-1", "", TaskComplete)
	s.ErrorIs(err, model.ErrMissingID)
}

func (s *ServiceSuite) TestSetObjectiveAndHideout() {
	p, err := s.service.SetObjective(s.ctx, "user-1", "obj-1", true)
	s.Require().NoError(err)
	s.True(p.IsObjectiveComplete("obj-1"))

	p, err = s.service.SetObjective(s.ctx, "user-1", "obj-1", false)
	s.Require().NoError(err)
	s.False(p.IsObjectiveComplete("obj-1"))

	p, err = s.service.SetHideoutModule(s.ctx, "user-1", "lavatory-1", true)
	s.Require().NoError(err)
	s.True(p.IsModuleComplete("lavatory-1"))
	s.Equal(s.clock.Now(), p.HideoutModules["lavatory-1"].Timestamp)
}

func (s *ServiceSuite) TestUpdateProfile() {
	p, err := s.service.UpdateProfile(s.ctx, "user-1", ProfileUpdate{
		PlayerLevel: ptr(42),
		GameEdition: ptr(model.EditionEdgeOfDarkness),
		Faction:     ptr(model.FactionBEAR),
		DisplayName: ptr("Rogue"),
	})
	s.Require().NoError(err)
	s.Equal(42, p.PlayerLevel)
	s.Equal(model.EditionEdgeOfDarkness, p.GameEdition)
	s.Equal(model.FactionBEAR, p.Faction)
	s.Equal("Rogue", p.Name())

	// unset fields are kept
	p, err = s.service.UpdateProfile(s.ctx, "user-1", ProfileUpdate{PlayerLevel: ptr(43)})
	s.Require().NoError(err)
	s.Equal(model.FactionBEAR, p.Faction)
}

func (s *ServiceSuite) TestUpdateProfileValidates() {
	_, err := s.service.UpdateProfile(s.ctx, "user-1", ProfileUpdate{PlayerLevel: ptr(0)})
	s.ErrorIs(err, model.ErrInvalidLevel)

	_, err = s.service.UpdateProfile(s.ctx, "user-1", ProfileUpdate{PlayerLevel: ptr(80)})
	s.ErrorIs(err, model.ErrInvalidLevel)

	_, err = s.service.UpdateProfile(s.ctx, "user-1", ProfileUpdate{GameEdition: ptr(model.GameEdition(9))})
	s.ErrorIs(err, model.ErrInvalidEdition)

	_, err = s.service.UpdateProfile(s.ctx, "user-1", ProfileUpdate{Faction: ptr(model.FactionAny)})
	s.ErrorIs(err, model.ErrInvalidFaction)
}

func (s *ServiceSuite) TestUpdateProfileCleansDisplayName() {
	p, err := s.service.UpdateProfile(s.ctx, "abcdefghij", ProfileUpdate{DisplayName: ptr("  Rogue  ")})
	s.Require().NoError(err)
	s.Equal("Rogue", p.DisplayName)

	// blank clears the name so the id fallback shows
	p, err = s.service.UpdateProfile(s.ctx, "abcdefghij", ProfileUpdate{DisplayName: ptr("   ")})
	s.Require().NoError(err)
	s.Empty(p.DisplayName)
	s.Equal("abcdef", p.Name())

	long := "  " + strings.Repeat("x", 500) + "  "
	_, err = s.service.UpdateProfile(s.ctx, "abcdefghij", ProfileUpdate{DisplayName: ptr(long)})
	s.ErrorIs(err, model.ErrDisplayNameTooLong)

	_, err = s.service.UpdateProfile(s.ctx, "abcdefghij", ProfileUpdate{DisplayName: ptr(strings.Repeat("é", model.MaxDisplayNameLength))})
	s.NoError(err)

	stored, err := s.storage.GetProgress(s.ctx, "abcdefghij")
	s.Require().NoError(err)
	s.Equal(strings.Repeat("é", model.MaxDisplayNameLength), stored.DisplayName)
}

func (s *ServiceSuite) TestDisplayNameFallback() {
	name, err := s.service.DisplayNameOf(s.ctx, "abcdefghij")
	s.Require().NoError(err)
	s.Equal("abcdef", name)
}

func (s *ServiceSuite) TestConcurrentMutationsAllApply() {
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := s.service.SetObjective(s.ctx, "user-1", model.ObjectiveID(fmt.Sprintf("obj-%d", i)), true)
			s.NoError(err)
		}(i)
	}
	wg.Wait()

	p, err := s.service.Get(s.ctx, "user-1")
	s.Require().NoError(err)
	s.Len(p.Objectives, 20)
	s.Equal(int64(20), p.Version)
}
