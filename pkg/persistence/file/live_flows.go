package file

import (
	"context"
	"path/filepath"
	"time"

	"github.com/dukex/flowforge/pkg/models"
	"github.com/dukex/flowforge/pkg/persistence"
)

// LiveFlowRepository handles live flow file operations. Versions are stored inline.
type LiveFlowRepository struct {
	docs documentDir[models.LiveFlow]
}

// NewLiveFlowRepository creates a new live flow repository rooted at root/live-flows.
func NewLiveFlowRepository(root string) *LiveFlowRepository {
	return &LiveFlowRepository{docs: documentDir[models.LiveFlow]{dir: filepath.Join(root, "live-flows")}}
}

// GetAll returns every live flow ordered by id.
func (r *LiveFlowRepository) GetAll(_ context.Context) ([]*models.LiveFlow, error) {
	flows, err := r.docs.all()
	if err != nil {
		return nil, persistence.NewLiveFlowError("GetAll", 0, err)
	}

	return flows, nil
}

// GetByID retrieves a live flow by its ID.
func (r *LiveFlowRepository) GetByID(_ context.Context, id int64) (*models.LiveFlow, error) {
	flow, err := r.docs.read(id)
	if err != nil {
		return nil, persistence.NewLiveFlowError("GetByID", id, err)
	}

	return flow, nil
}

// Save saves a live flow with all its versions.
func (r *LiveFlowRepository) Save(_ context.Context, flow *models.LiveFlow) error {
	now := time.Now().UTC()
	if flow.CreatedAt.IsZero() {
		flow.CreatedAt = now
	}

	if flow.UpdatedAt.IsZero() {
		flow.UpdatedAt = now
	}

	if err := r.docs.write(flow.ID, flow); err != nil {
		return persistence.NewLiveFlowError("Save", flow.ID, err)
	}

	return nil
}

// Delete removes a live flow and its versions.
func (r *LiveFlowRepository) Delete(_ context.Context, id int64) error {
	if err := r.docs.remove(id); err != nil {
		return persistence.NewLiveFlowError("Delete", id, err)
	}

	return nil
}
