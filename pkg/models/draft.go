// Package models defines the flow lifecycle domain: drafts, live flows, their versions and cells.
//
// Every transformation takes its receiver by value and returns a new record, so a published
// snapshot never shares cells with the draft it was taken from.
package models

import (
	"fmt"
	"time"
)

const (
	// InitialVersion is the version label given to new and forked drafts.
	InitialVersion = "1.0.0"

	// DefaultTitle is the title of a draft created without one.
	DefaultTitle = "Untitled Flow"

	forkTitlePrefix = "Fork of "
)

// FlowMetadata describes a flow.
type FlowMetadata struct {
	Title       string `json:"title"       validate:"max=200"`
	Author      string `json:"author"      validate:"max=200"`
	Version     string `json:"version"     validate:"max=64"` // Free-form label, not enforced monotonic
	Description string `json:"description"`
}

// MetadataPatch holds a partial metadata update; nil fields are left untouched.
type MetadataPatch struct {
	Title       *string `json:"title,omitempty"`
	Author      *string `json:"author,omitempty"`
	Version     *string `json:"version,omitempty"`
	Description *string `json:"description,omitempty"`
}

// DefaultMetadata returns the metadata of a blank draft owned by author.
func DefaultMetadata(author string) FlowMetadata {
	return FlowMetadata{
		Title:   DefaultTitle,
		Author:  author,
		Version: InitialVersion,
	}
}

// Merge applies the non-nil fields of patch.
func (m FlowMetadata) Merge(patch MetadataPatch) FlowMetadata {
	if patch.Title != nil {
		m.Title = *patch.Title
	}

	if patch.Author != nil {
		m.Author = *patch.Author
	}

	if patch.Version != nil {
		m.Version = *patch.Version
	}

	if patch.Description != nil {
		m.Description = *patch.Description
	}

	return m
}

// Draft is an editable, unpublished flow.
type Draft struct {
	ID         int64        `json:"id"`
	Metadata   FlowMetadata `json:"metadata"`
	Cells      []Cell       `json:"cells"`
	NextCellID int64        `json:"next_cell_id"` // Cell ids are never reused within a draft
	CreatedAt  time.Time    `json:"created_at"`
	UpdatedAt  time.Time    `json:"updated_at"`
}

// NewDraft returns an empty draft.
func NewDraft(id int64, metadata FlowMetadata, now time.Time) Draft {
	return Draft{
		ID:         id,
		Metadata:   metadata,
		Cells:      []Cell{},
		NextCellID: 1,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// Clone returns a deep copy of the draft.
func (d Draft) Clone() Draft {
	d.Cells = cloneCells(d.Cells)

	return d
}

// Cell returns the cell with the given id.
func (d Draft) Cell(cellID int64) (Cell, bool) {
	for _, cell := range d.Cells {
		if cell.ID == cellID {
			return cell.clone(), true
		}
	}

	return Cell{}, false
}

// AddCell appends a new cell using the catalog defaults and returns the new draft and cell.
// A nil template yields the placeholder code and empty dependencies.
func (d Draft) AddCell(catalog Catalog, template *CellTemplate) (Draft, Cell) {
	d = d.Clone()

	id := d.nextCellID()
	server := catalog.DefaultServer()

	cell := Cell{
		ID:      id,
		Code:    DefaultCellCode,
		Server:  server,
		Service: catalog.DefaultService(server),
	}

	if template != nil {
		cell.Code = template.Code
		cell.Dependencies = template.Dependencies
	}

	d.Cells = append(d.Cells, cell)
	d.NextCellID = id + 1
	d.UpdatedAt = time.Now().UTC()

	return d, cell.clone()
}

// UpdateCell replaces one field of a cell. Changing the server resets the service to the
// first service that server offers.
func (d Draft) UpdateCell(catalog Catalog, cellID int64, field CellField, value string) (Draft, error) {
	idx := d.cellIndex(cellID)
	if idx < 0 {
		return d, fmt.Errorf("%w: %d", ErrCellNotFound, cellID)
	}

	d = d.Clone()
	cell := d.Cells[idx]

	switch field {
	case CellFieldCode:
		cell.Code = value
	case CellFieldDependencies:
		cell.Dependencies = value
	case CellFieldOutput:
		cell = cell.WithOutput(value)
	case CellFieldServer:
		if _, ok := catalog.Services(value); !ok {
			return d, fmt.Errorf("%w: %q", ErrUnknownServer, value)
		}

		cell.Server = value
		cell.Service = catalog.DefaultService(value)
	case CellFieldService:
		if err := catalog.CheckSelection(cell.Server, value); err != nil {
			return d, err
		}

		cell.Service = value
	default:
		return d, fmt.Errorf("%w: %q", ErrUnknownField, field)
	}

	d.Cells[idx] = cell
	d.UpdatedAt = time.Now().UTC()

	return d, nil
}

// DeleteCell removes a cell. Deleting an absent cell is a no-op.
func (d Draft) DeleteCell(cellID int64) Draft {
	idx := d.cellIndex(cellID)
	if idx < 0 {
		return d
	}

	d = d.Clone()
	d.Cells = append(d.Cells[:idx], d.Cells[idx+1:]...)
	d.UpdatedAt = time.Now().UTC()

	return d
}

// UpdateMetadata merges patch into the draft metadata.
func (d Draft) UpdateMetadata(patch MetadataPatch) Draft {
	d = d.Clone()
	d.Metadata = d.Metadata.Merge(patch)
	d.UpdatedAt = time.Now().UTC()

	return d
}

// ReplaceContent swaps metadata and cells wholesale. Every cell must carry a positive id,
// unique within the list, and a server/service pair known to the catalog.
func (d Draft) ReplaceContent(catalog Catalog, metadata FlowMetadata, cells []Cell) (Draft, error) {
	seen := make(map[int64]struct{}, len(cells))

	for _, cell := range cells {
		if _, dup := seen[cell.ID]; dup || cell.ID <= 0 {
			return d, fmt.Errorf("%w: %d", ErrInvalidCellID, cell.ID)
		}

		seen[cell.ID] = struct{}{}

		if err := catalog.CheckSelection(cell.Server, cell.Service); err != nil {
			return d, fmt.Errorf("cell %d: %w", cell.ID, err)
		}
	}

	d = d.Clone()
	d.Metadata = metadata
	d.Cells = cloneCells(cells)
	d.NextCellID = d.nextCellID()
	d.UpdatedAt = time.Now().UTC()

	return d, nil
}

// Reset clears every cell and restores blank metadata, keeping the author.
func (d Draft) Reset() Draft {
	d = d.Clone()
	d.Metadata = DefaultMetadata(d.Metadata.Author)
	d.Cells = []Cell{}
	d.UpdatedAt = time.Now().UTC()

	return d
}

// Snapshot captures the draft as an immutable version. Cell output is retained.
func (d Draft) Snapshot(versionID int64, now time.Time) Version {
	return Version{
		ID:            versionID,
		Metadata:      d.Metadata,
		Cells:         cloneCells(d.Cells),
		SourceDraftID: d.ID,
		PublishedAt:   now,
	}
}

func (d Draft) cellIndex(cellID int64) int {
	for i, cell := range d.Cells {
		if cell.ID == cellID {
			return i
		}
	}

	return -1
}

func (d Draft) nextCellID() int64 {
	next := maxCellID(d.Cells) + 1
	if d.NextCellID > next {
		next = d.NextCellID
	}

	return next
}
