package services

import (
	"context"
	"fmt"
	"time"

	"github.com/dukex/flowforge/pkg/document"
	"github.com/dukex/flowforge/pkg/events"
	"github.com/dukex/flowforge/pkg/models"
)

// ExportDraft returns the portable document of a draft.
func (l *Lifecycle) ExportDraft(ctx context.Context, draftID int64) (*document.Document, error) {
	draft, err := l.loadDraft(ctx, "ExportDraft", draftID)
	if err != nil {
		return nil, err
	}

	doc := document.FromDraft(draft)

	return &doc, nil
}

// ExportVersion returns the portable document of one version of a live flow.
func (l *Lifecycle) ExportVersion(ctx context.Context, liveFlowID int64, label string) (*document.Document, error) {
	flow, err := l.loadLiveFlow(ctx, "ExportVersion", liveFlowID)
	if err != nil {
		return nil, err
	}

	version, ok := flow.VersionByLabel(label)
	if !ok {
		return nil, newFlowError("ExportVersion", liveFlowID, fmt.Errorf("%w: %q", models.ErrVersionNotFound, label))
	}

	doc := document.FromVersion(version)

	return &doc, nil
}

// ImportDraft creates a draft from a document. Cells get ids 1..N in document order; a
// document that does not match the expected shape is rejected as a whole.
func (l *Lifecycle) ImportDraft(ctx context.Context, data []byte) (_ *models.Draft, err error) {
	ctx, done := l.begin(ctx, "ImportDraft")
	defer done(&err)

	doc, err := document.Parse(data, l.catalog)
	if err != nil {
		return nil, newFlowError("ImportDraft", 0, err)
	}

	draft := models.NewDraft(l.ids.Next(), doc.Metadata, time.Now().UTC())

	draft, err = draft.ReplaceContent(l.catalog, doc.Metadata, doc.ModelCells())
	if err != nil {
		return nil, newFlowError("ImportDraft", draft.ID, err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.saveDraft(ctx, "ImportDraft", draft); err != nil {
		return nil, err
	}

	l.logger.InfoContext(ctx, "draft imported", "draft_id", draft.ID, "cells", len(draft.Cells))
	l.emit(ctx, draftKey(draft.ID), events.DraftCreated{
		BaseEvent: events.NewBaseEvent(events.DraftCreatedEvent, ActorFromContext(ctx)),
		DraftID:   draft.ID,
		Title:     draft.Metadata.Title,
		Origin:    "import",
	})

	return &draft, nil
}
