package factory

import (
	"context"
	"os"
	"time"

	"github.com/mcoot/teamprogress/internal/dependencies/mocks"
	"github.com/mcoot/teamprogress/internal/services/auth"
	"github.com/mcoot/teamprogress/internal/services/gamegraph"
	"github.com/mcoot/teamprogress/internal/services/progression"
	"github.com/mcoot/teamprogress/internal/services/team"
	"github.com/mcoot/teamprogress/internal/storage/memory"
	"github.com/mcoot/teamprogress/internal/testutil"
)

// TestApp extends App with test-specific helpers
type TestApp struct {
	*App

	// Mocks for test control
	MockClock  *mocks.MockClock
	MockRandom *mocks.MockRandom
}

// NewTestApp creates an App configured for testing with mocked dependencies
func NewTestApp() *TestApp {
	store := memory.New()
	mockClock := mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	mockRandom := mocks.NewMockRandom()

	app, err := newWithDependencies(store, mockClock, mockRandom, auth.DefaultConfig(), team.DefaultConfig(), progression.DefaultMemoSize, testutil.NopLogger())
	if err != nil {
		panic(err)
	}

	return &TestApp{
		App:        app,
		MockClock:  mockClock,
		MockRandom: mockRandom,
	}
}

// LoadGraphFile publishes a YAML or JSON graph bundle from disk
func (t *TestApp) LoadGraphFile(ctx context.Context, path string) (*gamegraph.Graph, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	bundle, err := gamegraph.ParseBundle(data)
	if err != nil {
		return nil, err
	}
	tasksDoc, hideoutDoc, err := bundle.Documents()
	if err != nil {
		return nil, err
	}
	return t.Graphs.Publish(ctx, tasksDoc, hideoutDoc)
}
