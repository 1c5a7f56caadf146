package services

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"

	"github.com/dukex/flowforge/pkg/eventbus"
	"github.com/dukex/flowforge/pkg/events"
	"github.com/dukex/flowforge/pkg/execution"
	"github.com/dukex/flowforge/pkg/persistence"
	"github.com/dukex/flowforge/pkg/persistence/memory"
	"github.com/stretchr/testify/require"
)

var errInjected = errors.New("injected failure")

// recordingPublisher keeps every published event.
type recordingPublisher struct {
	mu     sync.Mutex
	events []eventbus.Event
	err    error
}

func (r *recordingPublisher) Publish(_ context.Context, _ string, event eventbus.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.events = append(r.events, event)

	return r.err
}

func (r *recordingPublisher) types() []events.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()

	types := make([]events.EventType, len(r.events))
	for i, e := range r.events {
		types[i] = e.GetType()
	}

	return types
}

// splitStore hides the memory backend's atomic publish and can fail draft deletes, so the
// two-step publish and its rollback can be exercised.
type splitStore struct {
	persistence.Persistence

	failDeleteDraft bool
}

func (s *splitStore) DeleteDraft(ctx context.Context, id int64) error {
	if s.failDeleteDraft {
		return errInjected
	}

	return s.Persistence.DeleteDraft(ctx, id)
}

type fixture struct {
	lifecycle *Lifecycle
	store     *memory.Persistence
	events    *recordingPublisher
	executor  *execution.MockExecutor
}

func newFixture(t *testing.T, opts ...Option) fixture {
	t.Helper()

	store := memory.NewPersistence()

	return newFixtureOn(t, store, store, opts...)
}

func newFixtureOn(t *testing.T, store *memory.Persistence, p persistence.Persistence, opts ...Option) fixture {
	t.Helper()

	publisher := &recordingPublisher{}
	executor := execution.NewMockExecutor()

	base := []Option{
		WithEventPublisher(publisher),
		WithExecutor(executor),
		WithLogger(slog.New(slog.DiscardHandler)),
	}

	lifecycle := NewLifecycle(p, append(base, opts...)...)
	require.NoError(t, lifecycle.Init(t.Context()))

	return fixture{lifecycle: lifecycle, store: store, events: publisher, executor: executor}
}
