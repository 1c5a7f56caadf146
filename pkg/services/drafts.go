package services

import (
	"context"
	"strconv"
	"time"

	"github.com/dukex/flowforge/pkg/events"
	"github.com/dukex/flowforge/pkg/models"
	"github.com/dukex/flowforge/pkg/otelhelper"
	"go.opentelemetry.io/otel/attribute"
)

// Drafts returns every draft ordered by id.
func (l *Lifecycle) Drafts(ctx context.Context) ([]*models.Draft, error) {
	drafts, err := l.persistence.Drafts(ctx)
	if err != nil {
		return nil, persistenceError("Drafts", 0, err)
	}

	return drafts, nil
}

// Draft returns one draft.
func (l *Lifecycle) Draft(ctx context.Context, id int64) (*models.Draft, error) {
	draft, err := l.loadDraft(ctx, "Draft", id)
	if err != nil {
		return nil, err
	}

	return &draft, nil
}

// CreateDraft stores an empty draft. Unset metadata fields take their defaults; the author
// defaults to the caller's identity.
func (l *Lifecycle) CreateDraft(ctx context.Context, metadata models.MetadataPatch) (_ *models.Draft, err error) {
	ctx, done := l.begin(ctx, "CreateDraft")
	defer done(&err)

	actor := ActorFromContext(ctx)
	draft := models.NewDraft(l.ids.Next(), models.DefaultMetadata(actor).Merge(metadata), time.Now().UTC())

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.saveDraft(ctx, "CreateDraft", draft); err != nil {
		return nil, err
	}

	l.logger.InfoContext(ctx, "draft created", "draft_id", draft.ID)
	l.emit(ctx, draftKey(draft.ID), events.DraftCreated{
		BaseEvent: events.NewBaseEvent(events.DraftCreatedEvent, actor),
		DraftID:   draft.ID,
		Title:     draft.Metadata.Title,
		Origin:    "new",
	})

	return &draft, nil
}

// AddCell appends a cell seeded from template, or from the placeholders when template is nil.
func (l *Lifecycle) AddCell(ctx context.Context, draftID int64, template *models.CellTemplate) (_ *models.Cell, err error) {
	ctx, done := l.begin(ctx, "AddCell", attribute.Int64(otelhelper.DraftIDKey, draftID))
	defer done(&err)

	l.mu.Lock()
	defer l.mu.Unlock()

	draft, err := l.loadDraft(ctx, "AddCell", draftID)
	if err != nil {
		return nil, err
	}

	draft, cell := draft.AddCell(l.catalog, template)

	if err := l.saveDraft(ctx, "AddCell", draft); err != nil {
		return nil, err
	}

	l.emitDraftUpdated(ctx, draftID, events.ChangeCellAdded, cell.ID)

	return &cell, nil
}

// UpdateCell replaces one field of a cell. Setting the server resets the service to the
// server's first service.
func (l *Lifecycle) UpdateCell(ctx context.Context, draftID, cellID int64, field models.CellField, value string) (_ *models.Cell, err error) {
	ctx, done := l.begin(ctx, "UpdateCell",
		attribute.Int64(otelhelper.DraftIDKey, draftID),
		attribute.Int64(otelhelper.CellIDKey, cellID),
	)
	defer done(&err)

	l.mu.Lock()
	defer l.mu.Unlock()

	draft, err := l.loadDraft(ctx, "UpdateCell", draftID)
	if err != nil {
		return nil, err
	}

	updated, err := draft.UpdateCell(l.catalog, cellID, field, value)
	if err != nil {
		return nil, newFlowError("UpdateCell", draftID, err)
	}

	if err := l.saveDraft(ctx, "UpdateCell", updated); err != nil {
		return nil, err
	}

	cell, _ := updated.Cell(cellID)
	l.emitDraftUpdated(ctx, draftID, events.ChangeCellUpdated, cellID)

	return &cell, nil
}

// DeleteCell removes a cell. Deleting an absent cell succeeds without writing.
func (l *Lifecycle) DeleteCell(ctx context.Context, draftID, cellID int64) (err error) {
	ctx, done := l.begin(ctx, "DeleteCell",
		attribute.Int64(otelhelper.DraftIDKey, draftID),
		attribute.Int64(otelhelper.CellIDKey, cellID),
	)
	defer done(&err)

	l.mu.Lock()
	defer l.mu.Unlock()

	draft, err := l.loadDraft(ctx, "DeleteCell", draftID)
	if err != nil {
		return err
	}

	if _, ok := draft.Cell(cellID); !ok {
		return nil
	}

	if err := l.saveDraft(ctx, "DeleteCell", draft.DeleteCell(cellID)); err != nil {
		return err
	}

	l.emitDraftUpdated(ctx, draftID, events.ChangeCellDeleted, cellID)

	return nil
}

// UpdateMetadata merges patch into the draft metadata.
func (l *Lifecycle) UpdateMetadata(ctx context.Context, draftID int64, patch models.MetadataPatch) (*models.Draft, error) {
	return l.mutateDraft(ctx, "UpdateMetadata", draftID, events.ChangeMetadata, func(d models.Draft) (models.Draft, error) {
		return d.UpdateMetadata(patch), nil
	})
}

// ReplaceDraft swaps metadata and cells wholesale after validating every cell.
func (l *Lifecycle) ReplaceDraft(ctx context.Context, draftID int64, metadata models.FlowMetadata, cells []models.Cell) (*models.Draft, error) {
	return l.mutateDraft(ctx, "ReplaceDraft", draftID, events.ChangeContent, func(d models.Draft) (models.Draft, error) {
		return d.ReplaceContent(l.catalog, metadata, cells)
	})
}

// ResetDraft clears the cells and restores blank metadata, keeping the author.
func (l *Lifecycle) ResetDraft(ctx context.Context, draftID int64) (*models.Draft, error) {
	return l.mutateDraft(ctx, "ResetDraft", draftID, events.ChangeReset, func(d models.Draft) (models.Draft, error) {
		return d.Reset(), nil
	})
}

// DiscardDraft deletes a draft. Discarding an absent draft succeeds.
func (l *Lifecycle) DiscardDraft(ctx context.Context, draftID int64) (err error) {
	ctx, done := l.begin(ctx, "DiscardDraft", attribute.Int64(otelhelper.DraftIDKey, draftID))
	defer done(&err)

	l.mu.Lock()
	defer l.mu.Unlock()

	existing, err := l.persistence.DraftByID(ctx, draftID)
	if err != nil {
		return persistenceError("DiscardDraft", draftID, err)
	}

	if existing == nil {
		return nil
	}

	if err := l.persistence.DeleteDraft(ctx, draftID); err != nil {
		return persistenceError("DiscardDraft", draftID, err)
	}

	l.logger.InfoContext(ctx, "draft discarded", "draft_id", draftID)
	l.emit(ctx, draftKey(draftID), events.DraftDiscarded{
		BaseEvent: events.NewBaseEvent(events.DraftDiscardedEvent, ActorFromContext(ctx)),
		DraftID:   draftID,
	})

	return nil
}

func (l *Lifecycle) mutateDraft(
	ctx context.Context,
	op string,
	draftID int64,
	change events.DraftChange,
	mutate func(models.Draft) (models.Draft, error),
) (_ *models.Draft, err error) {
	ctx, done := l.begin(ctx, op, attribute.Int64(otelhelper.DraftIDKey, draftID))
	defer done(&err)

	l.mu.Lock()
	defer l.mu.Unlock()

	draft, err := l.loadDraft(ctx, op, draftID)
	if err != nil {
		return nil, err
	}

	updated, err := mutate(draft)
	if err != nil {
		return nil, newFlowError(op, draftID, err)
	}

	if err := l.saveDraft(ctx, op, updated); err != nil {
		return nil, err
	}

	l.emitDraftUpdated(ctx, draftID, change, 0)

	return &updated, nil
}

func (l *Lifecycle) emitDraftUpdated(ctx context.Context, draftID int64, change events.DraftChange, cellID int64) {
	l.emit(ctx, draftKey(draftID), events.DraftUpdated{
		BaseEvent: events.NewBaseEvent(events.DraftUpdatedEvent, ActorFromContext(ctx)),
		DraftID:   draftID,
		Change:    change,
		CellID:    cellID,
	})
}

func draftKey(id int64) string {
	return "draft-" + strconv.FormatInt(id, 10)
}

func liveFlowKey(id int64) string {
	return "live-" + strconv.FormatInt(id, 10)
}
