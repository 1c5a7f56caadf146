// Package web provides HTTP request and response types for the flow lifecycle API.
package web

import (
	"github.com/dukex/flowforge/pkg/models"
	"github.com/dukex/flowforge/pkg/services"
)

const (
	// AuthorHeader carries the caller's identity; it pre-fills the author of new drafts.
	AuthorHeader = "X-Flow-Author"

	PublishTargetNew      = "new"
	PublishTargetExisting = "existing"
)

// MetadataRequest represents a partial metadata update. Omitted fields are left untouched.
type MetadataRequest struct {
	Title       *string `json:"title,omitempty"       validate:"omitempty,max=200"`
	Author      *string `json:"author,omitempty"      validate:"omitempty,max=200"`
	Version     *string `json:"version,omitempty"     validate:"omitempty,min=1,max=64"`
	Description *string `json:"description,omitempty"`
}

// Patch converts the request to a metadata patch.
func (r MetadataRequest) Patch() models.MetadataPatch {
	return models.MetadataPatch{
		Title:       r.Title,
		Author:      r.Author,
		Version:     r.Version,
		Description: r.Description,
	}
}

// CellRequest represents a complete cell.
type CellRequest struct {
	ID           int64   `json:"id"           validate:"required,gt=0"`
	Code         string  `json:"code"`
	Dependencies string  `json:"dependencies"`
	Server       string  `json:"server"       validate:"required"`
	Service      string  `json:"service"      validate:"required"`
	Output       *string `json:"output,omitempty"`
}

// Cell converts the request to a cell.
func (r CellRequest) Cell() models.Cell {
	return models.Cell{
		ID:           r.ID,
		Code:         r.Code,
		Dependencies: r.Dependencies,
		Server:       r.Server,
		Service:      r.Service,
		Output:       r.Output,
	}
}

// ReplaceDraftRequest represents the request body for replacing a draft's metadata and cells.
type ReplaceDraftRequest struct {
	Metadata models.FlowMetadata `json:"metadata"`
	Cells    []CellRequest       `json:"cells"    validate:"dive"`
}

// ModelCells returns the cells of the request.
func (r ReplaceDraftRequest) ModelCells() []models.Cell {
	cells := make([]models.Cell, len(r.Cells))
	for i, cell := range r.Cells {
		cells[i] = cell.Cell()
	}

	return cells
}

// AddCellRequest represents the optional body of a new cell. Without a body the cell gets the
// placeholder code.
type AddCellRequest struct {
	Code         string `json:"code"`
	Dependencies string `json:"dependencies"`
}

// UpdateCellRequest represents a single-field cell update.
type UpdateCellRequest struct {
	Field string `json:"field" validate:"required,oneof=code dependencies server service output"`
	Value string `json:"value"`
}

// ExecuteCellRequest represents a cell executed without storing its output.
type ExecuteCellRequest struct {
	FlowID int64       `json:"flow_id"`
	Cell   CellRequest `json:"cell"`
}

// PublishRequest represents the target of a draft publication.
type PublishRequest struct {
	Target     string `json:"target"       validate:"required,oneof=new existing"`
	LiveFlowID int64  `json:"live_flow_id" validate:"required_if=Target existing,gte=0"`
}

// PublishTarget converts the request to a publish target.
func (r PublishRequest) PublishTarget() services.PublishTarget {
	if r.Target == PublishTargetExisting {
		return services.ExistingFlow(r.LiveFlowID)
	}

	return services.NewFlow()
}

// DraftReferenceRequest names the draft to publish.
type DraftReferenceRequest struct {
	DraftID int64 `json:"draft_id" validate:"required,gt=0"`
}

// PromoteRequest selects the version to mark live.
type PromoteRequest struct {
	LiveVersion string `json:"live_version" validate:"required"`
}

// DraftSummary is the list representation of a draft.
type DraftSummary struct {
	ID       int64               `json:"id"`
	Metadata models.FlowMetadata `json:"metadata"`
	Cells    int                 `json:"cells"`
}

// LiveFlowSummary is the list representation of a live flow.
type LiveFlowSummary struct {
	ID          int64    `json:"id"`
	Title       string   `json:"title"`
	LiveVersion string   `json:"live_version"`
	Versions    []string `json:"versions"`
	Revision    int64    `json:"revision"`
}

// TransformDraftSummary builds the list representation of a draft.
func TransformDraftSummary(draft *models.Draft) DraftSummary {
	return DraftSummary{ID: draft.ID, Metadata: draft.Metadata, Cells: len(draft.Cells)}
}

// TransformLiveFlowSummary builds the list representation of a live flow.
func TransformLiveFlowSummary(flow *models.LiveFlow) LiveFlowSummary {
	return LiveFlowSummary{
		ID:          flow.ID,
		Title:       flow.Title(),
		LiveVersion: flow.LiveVersion,
		Versions:    flow.Labels(),
		Revision:    flow.Revision,
	}
}
