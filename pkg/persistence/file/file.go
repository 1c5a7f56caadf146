// Package file provides file-based persistence for drafts and live flows.
package file

import (
	"context"
	"os"
	"strings"

	"github.com/dukex/flowforge/pkg/models"
	"github.com/dukex/flowforge/pkg/persistence"
)

// Persistence implements the persistence.Persistence interface using the file system.
// Each record is one JSON document: <root>/drafts/<id>.json and <root>/live-flows/<id>.json.
type Persistence struct {
	root      string
	drafts    *DraftRepository
	liveFlows *LiveFlowRepository
}

// NewPersistence creates a new instance of Persistence with the specified root directory.
func NewPersistence(root string) persistence.Persistence {
	cleanRoot := strings.Replace(root, "file://", "", 1)

	return &Persistence{
		root:      cleanRoot,
		drafts:    NewDraftRepository(cleanRoot),
		liveFlows: NewLiveFlowRepository(cleanRoot),
	}
}

// Close performs any necessary cleanup. For file-based persistence, there is nothing to clean up.
func (fp *Persistence) Close(_ context.Context) error {
	return nil
}

// HealthCheck checks if the file persistence layer is healthy by verifying the root directory exists.
func (fp *Persistence) HealthCheck(_ context.Context) error {
	if _, err := os.Stat(fp.root); os.IsNotExist(err) {
		return os.ErrNotExist
	}

	return nil
}

func (fp *Persistence) Drafts(ctx context.Context) ([]*models.Draft, error) {
	return fp.drafts.GetAll(ctx)
}

func (fp *Persistence) DraftByID(ctx context.Context, id int64) (*models.Draft, error) {
	return fp.drafts.GetByID(ctx, id)
}

func (fp *Persistence) SaveDraft(ctx context.Context, draft *models.Draft) error {
	return fp.drafts.Save(ctx, draft)
}

func (fp *Persistence) DeleteDraft(ctx context.Context, id int64) error {
	return fp.drafts.Delete(ctx, id)
}

func (fp *Persistence) LiveFlows(ctx context.Context) ([]*models.LiveFlow, error) {
	return fp.liveFlows.GetAll(ctx)
}

func (fp *Persistence) LiveFlowByID(ctx context.Context, id int64) (*models.LiveFlow, error) {
	return fp.liveFlows.GetByID(ctx, id)
}

func (fp *Persistence) SaveLiveFlow(ctx context.Context, flow *models.LiveFlow) error {
	return fp.liveFlows.Save(ctx, flow)
}

func (fp *Persistence) DeleteLiveFlow(ctx context.Context, id int64) error {
	return fp.liveFlows.Delete(ctx, id)
}
