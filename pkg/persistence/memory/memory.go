// Package memory provides an in-process persistence backend, used by tests and ephemeral runs.
package memory

import (
	"context"
	"maps"
	"slices"
	"sync"

	"github.com/dukex/flowforge/pkg/models"
	"github.com/dukex/flowforge/pkg/persistence"
)

// Persistence keeps deep copies of every record in maps guarded by a single lock.
type Persistence struct {
	mu        sync.RWMutex
	drafts    map[int64]models.Draft
	liveFlows map[int64]models.LiveFlow
}

// NewPersistence returns an empty in-memory store.
func NewPersistence() *Persistence {
	return &Persistence{
		drafts:    make(map[int64]models.Draft),
		liveFlows: make(map[int64]models.LiveFlow),
	}
}

var (
	_ persistence.Persistence     = (*Persistence)(nil)
	_ persistence.AtomicPublisher = (*Persistence)(nil)
)

func (p *Persistence) Drafts(_ context.Context) ([]*models.Draft, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	drafts := make([]*models.Draft, 0, len(p.drafts))
	for _, id := range slices.Sorted(maps.Keys(p.drafts)) {
		draft := p.drafts[id].Clone()
		drafts = append(drafts, &draft)
	}

	return drafts, nil
}

func (p *Persistence) DraftByID(_ context.Context, id int64) (*models.Draft, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	stored, ok := p.drafts[id]
	if !ok {
		return nil, nil
	}

	draft := stored.Clone()

	return &draft, nil
}

func (p *Persistence) SaveDraft(_ context.Context, draft *models.Draft) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.drafts[draft.ID] = draft.Clone()

	return nil
}

func (p *Persistence) DeleteDraft(_ context.Context, id int64) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	delete(p.drafts, id)

	return nil
}

func (p *Persistence) LiveFlows(_ context.Context) ([]*models.LiveFlow, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	flows := make([]*models.LiveFlow, 0, len(p.liveFlows))
	for _, id := range slices.Sorted(maps.Keys(p.liveFlows)) {
		flow := p.liveFlows[id].Clone()
		flows = append(flows, &flow)
	}

	return flows, nil
}

func (p *Persistence) LiveFlowByID(_ context.Context, id int64) (*models.LiveFlow, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	stored, ok := p.liveFlows[id]
	if !ok {
		return nil, nil
	}

	flow := stored.Clone()

	return &flow, nil
}

func (p *Persistence) SaveLiveFlow(_ context.Context, flow *models.LiveFlow) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.liveFlows[flow.ID] = flow.Clone()

	return nil
}

func (p *Persistence) DeleteLiveFlow(_ context.Context, id int64) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	delete(p.liveFlows, id)

	return nil
}

// PublishDraft stores flow and drops the draft under one lock.
func (p *Persistence) PublishDraft(_ context.Context, flow *models.LiveFlow, draftID int64) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.liveFlows[flow.ID] = flow.Clone()
	delete(p.drafts, draftID)

	return nil
}

func (p *Persistence) HealthCheck(_ context.Context) error {
	return nil
}

func (p *Persistence) Close(_ context.Context) error {
	return nil
}
