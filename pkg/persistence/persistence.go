// Package persistence provides the storage abstraction for drafts and live flows.
package persistence

import (
	"context"

	"github.com/dukex/flowforge/pkg/models"
)

// Persistence stores the draft and live flow collections. Lookups of absent records return
// (nil, nil); deletes of absent records succeed.
type Persistence interface {
	Drafts(ctx context.Context) ([]*models.Draft, error)
	DraftByID(ctx context.Context, id int64) (*models.Draft, error)
	SaveDraft(ctx context.Context, draft *models.Draft) error
	DeleteDraft(ctx context.Context, id int64) error

	LiveFlows(ctx context.Context) ([]*models.LiveFlow, error)
	LiveFlowByID(ctx context.Context, id int64) (*models.LiveFlow, error)
	SaveLiveFlow(ctx context.Context, flow *models.LiveFlow) error
	DeleteLiveFlow(ctx context.Context, id int64) error

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}

// AtomicPublisher is implemented by backends able to store a live flow and remove the draft
// it was published from in a single step.
type AtomicPublisher interface {
	PublishDraft(ctx context.Context, flow *models.LiveFlow, draftID int64) error
}
