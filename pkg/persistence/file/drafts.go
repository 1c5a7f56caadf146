package file

import (
	"context"
	"path/filepath"
	"time"

	"github.com/dukex/flowforge/pkg/models"
	"github.com/dukex/flowforge/pkg/persistence"
)

// DraftRepository handles draft-related file operations.
type DraftRepository struct {
	docs documentDir[models.Draft]
}

// NewDraftRepository creates a new draft repository rooted at root/drafts.
func NewDraftRepository(root string) *DraftRepository {
	return &DraftRepository{docs: documentDir[models.Draft]{dir: filepath.Join(root, "drafts")}}
}

// GetAll returns every draft ordered by id.
func (r *DraftRepository) GetAll(_ context.Context) ([]*models.Draft, error) {
	drafts, err := r.docs.all()
	if err != nil {
		return nil, persistence.NewDraftError("GetAll", 0, err)
	}

	return drafts, nil
}

// GetByID retrieves a draft by its ID from the file system.
func (r *DraftRepository) GetByID(_ context.Context, id int64) (*models.Draft, error) {
	draft, err := r.docs.read(id)
	if err != nil {
		return nil, persistence.NewDraftError("GetByID", id, err)
	}

	return draft, nil
}

// Save saves a draft to the file system.
func (r *DraftRepository) Save(_ context.Context, draft *models.Draft) error {
	now := time.Now().UTC()
	if draft.CreatedAt.IsZero() {
		draft.CreatedAt = now
	}

	if draft.UpdatedAt.IsZero() {
		draft.UpdatedAt = now
	}

	if err := r.docs.write(draft.ID, draft); err != nil {
		return persistence.NewDraftError("Save", draft.ID, err)
	}

	return nil
}

// Delete removes a draft by its ID. Removing an absent draft is not an error.
func (r *DraftRepository) Delete(_ context.Context, id int64) error {
	if err := r.docs.remove(id); err != nil {
		return persistence.NewDraftError("Delete", id, err)
	}

	return nil
}
