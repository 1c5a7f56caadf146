// Package document converts drafts and versions to and from the portable flow document:
// {"metadata": {...}, "cells": [...]} with cell ids left out.
package document

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/dukex/flowforge/pkg/models"
	"github.com/xeipuuv/gojsonschema"
)

// ErrInvalidDocument is returned when a document does not match the expected shape.
var ErrInvalidDocument = fmt.Errorf("%w: invalid flow document", models.ErrValidation)

// Document is the exported form of a flow.
type Document struct {
	Metadata models.FlowMetadata `json:"metadata"`
	Cells    []Cell              `json:"cells"`
}

// Cell is a cell without its id; ids are assigned from document order on import.
type Cell struct {
	Code         string  `json:"code"`
	Dependencies string  `json:"dependencies"`
	Server       string  `json:"server"`
	Service      string  `json:"service"`
	Output       *string `json:"output,omitempty"`
}

// FromDraft exports a draft.
func FromDraft(draft models.Draft) Document {
	return build(draft.Metadata, draft.Cells)
}

// FromVersion exports a published version.
func FromVersion(version models.Version) Document {
	return build(version.Metadata, version.Cells)
}

func build(metadata models.FlowMetadata, cells []models.Cell) Document {
	doc := Document{Metadata: metadata, Cells: make([]Cell, len(cells))}

	for i, cell := range cells {
		doc.Cells[i] = Cell{
			Code:         cell.Code,
			Dependencies: cell.Dependencies,
			Server:       cell.Server,
			Service:      cell.Service,
		}

		if cell.Output != nil {
			output := *cell.Output
			doc.Cells[i].Output = &output
		}
	}

	return doc
}

// ModelCells returns the document cells with ids 1..N in document order.
func (d Document) ModelCells() []models.Cell {
	cells := make([]models.Cell, len(d.Cells))

	for i, cell := range d.Cells {
		cells[i] = models.Cell{
			ID:           int64(i + 1),
			Code:         cell.Code,
			Dependencies: cell.Dependencies,
			Server:       cell.Server,
			Service:      cell.Service,
		}

		if cell.Output != nil {
			output := *cell.Output
			cells[i].Output = &output
		}
	}

	return cells
}

// Validate checks every cell's server and service against catalog.
func (d Document) Validate(catalog models.Catalog) error {
	for i, cell := range d.Cells {
		if err := catalog.CheckSelection(cell.Server, cell.Service); err != nil {
			return fmt.Errorf("cell %d: %w", i+1, err)
		}
	}

	return nil
}

// Filename suggests a file name for the document: the title with whitespace runs replaced
// by underscores.
func (d Document) Filename() string {
	name := whitespace.ReplaceAllString(strings.TrimSpace(d.Metadata.Title), "_")
	if name == "" {
		name = "flow"
	}

	return name + ".json"
}

var whitespace = regexp.MustCompile(`\s+`)

var compiledSchema = sync.OnceValues(func() (*gojsonschema.Schema, error) {
	return gojsonschema.NewSchema(gojsonschema.NewStringLoader(schemaJSON))
})

// Parse decodes data, validating it against the document schema and then against catalog.
// Any mismatch rejects the document as a whole.
func Parse(data []byte, catalog models.Catalog) (Document, error) {
	schema, err := compiledSchema()
	if err != nil {
		return Document{}, fmt.Errorf("failed to compile document schema: %w", err)
	}

	result, err := schema.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return Document{}, fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}

	if !result.Valid() {
		problems := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			problems = append(problems, desc.String())
		}

		return Document{}, fmt.Errorf("%w: %s", ErrInvalidDocument, strings.Join(problems, "; "))
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return Document{}, fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}

	if doc.Cells == nil {
		doc.Cells = []Cell{}
	}

	if err := doc.Validate(catalog); err != nil {
		return Document{}, errors.Join(ErrInvalidDocument, err)
	}

	return doc, nil
}
