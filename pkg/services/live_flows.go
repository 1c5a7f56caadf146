package services

import (
	"context"
	"fmt"
	"time"

	"github.com/dukex/flowforge/pkg/events"
	"github.com/dukex/flowforge/pkg/models"
	"github.com/dukex/flowforge/pkg/otelhelper"
	"go.opentelemetry.io/otel/attribute"
)

// LiveFlows returns every live flow ordered by id.
func (l *Lifecycle) LiveFlows(ctx context.Context) ([]*models.LiveFlow, error) {
	flows, err := l.persistence.LiveFlows(ctx)
	if err != nil {
		return nil, persistenceError("LiveFlows", 0, err)
	}

	return flows, nil
}

// LiveFlow returns one live flow with its versions.
func (l *Lifecycle) LiveFlow(ctx context.Context, id int64) (*models.LiveFlow, error) {
	flow, err := l.loadLiveFlow(ctx, "LiveFlow", id)
	if err != nil {
		return nil, err
	}

	return &flow, nil
}

// CurrentVersion returns the version of a live flow that is marked live.
func (l *Lifecycle) CurrentVersion(ctx context.Context, liveFlowID int64) (*models.Version, error) {
	flow, err := l.loadLiveFlow(ctx, "CurrentVersion", liveFlowID)
	if err != nil {
		return nil, err
	}

	version, ok := flow.Current()
	if !ok {
		return nil, newFlowError("CurrentVersion", liveFlowID, fmt.Errorf("%w: %q", models.ErrVersionNotFound, flow.LiveVersion))
	}

	return &version, nil
}

// PromoteVersion marks label as the live version. Promoting the version that is already live
// changes nothing.
func (l *Lifecycle) PromoteVersion(ctx context.Context, liveFlowID int64, label string, opts ...MutationOption) (_ *models.LiveFlow, err error) {
	const op = "PromoteVersion"

	ctx, done := l.begin(ctx, op,
		attribute.Int64(otelhelper.LiveFlowIDKey, liveFlowID),
		attribute.String(otelhelper.VersionLabelKey, label),
	)
	defer done(&err)

	options := applyMutationOptions(opts)

	l.mu.Lock()
	defer l.mu.Unlock()

	flow, err := l.loadLiveFlow(ctx, op, liveFlowID)
	if err != nil {
		return nil, err
	}

	if err := flow.CheckRevision(options.revision); err != nil {
		return nil, newFlowError(op, liveFlowID, err)
	}

	promoted, err := flow.Promote(label)
	if err != nil {
		return nil, newFlowError(op, liveFlowID, err)
	}

	if promoted.Revision == flow.Revision {
		return &promoted, nil
	}

	if err := l.saveLiveFlow(ctx, op, promoted); err != nil {
		return nil, err
	}

	l.logger.InfoContext(ctx, "version promoted", "live_flow_id", liveFlowID, "version", label, "previous", flow.LiveVersion)
	l.emit(ctx, liveFlowKey(liveFlowID), events.FlowVersionPromoted{
		BaseEvent:  events.NewBaseEvent(events.FlowVersionPromotedEvent, ActorFromContext(ctx)),
		LiveFlowID: liveFlowID,
		Version:    label,
		Previous:   flow.LiveVersion,
		Revision:   promoted.Revision,
	})

	return &promoted, nil
}

// DeleteVersion removes a version. The live version and the last remaining version cannot be
// deleted.
func (l *Lifecycle) DeleteVersion(ctx context.Context, liveFlowID, versionID int64, opts ...MutationOption) (_ *models.LiveFlow, err error) {
	const op = "DeleteVersion"

	ctx, done := l.begin(ctx, op,
		attribute.Int64(otelhelper.LiveFlowIDKey, liveFlowID),
		attribute.Int64(otelhelper.VersionIDKey, versionID),
	)
	defer done(&err)

	options := applyMutationOptions(opts)

	l.mu.Lock()
	defer l.mu.Unlock()

	flow, err := l.loadLiveFlow(ctx, op, liveFlowID)
	if err != nil {
		return nil, err
	}

	if err := flow.CheckRevision(options.revision); err != nil {
		return nil, newFlowError(op, liveFlowID, err)
	}

	removed, _ := flow.VersionByID(versionID)

	updated, err := flow.DeleteVersion(versionID)
	if err != nil {
		return nil, newFlowError(op, liveFlowID, err)
	}

	if err := l.saveLiveFlow(ctx, op, updated); err != nil {
		return nil, err
	}

	l.logger.InfoContext(ctx, "version deleted", "live_flow_id", liveFlowID, "version_id", versionID)
	l.emit(ctx, liveFlowKey(liveFlowID), events.FlowVersionDeleted{
		BaseEvent:  events.NewBaseEvent(events.FlowVersionDeletedEvent, ActorFromContext(ctx)),
		LiveFlowID: liveFlowID,
		VersionID:  versionID,
		Version:    removed.Metadata.Version,
		Revision:   updated.Revision,
	})

	return &updated, nil
}

// DeleteLiveFlow removes a live flow and all of its versions. Deleting an absent flow
// succeeds.
func (l *Lifecycle) DeleteLiveFlow(ctx context.Context, liveFlowID int64, opts ...MutationOption) (err error) {
	const op = "DeleteLiveFlow"

	ctx, done := l.begin(ctx, op, attribute.Int64(otelhelper.LiveFlowIDKey, liveFlowID))
	defer done(&err)

	options := applyMutationOptions(opts)

	l.mu.Lock()
	defer l.mu.Unlock()

	flow, err := l.persistence.LiveFlowByID(ctx, liveFlowID)
	if err != nil {
		return persistenceError(op, liveFlowID, err)
	}

	if flow == nil {
		return nil
	}

	if err := flow.CheckRevision(options.revision); err != nil {
		return newFlowError(op, liveFlowID, err)
	}

	if err := l.persistence.DeleteLiveFlow(ctx, liveFlowID); err != nil {
		return persistenceError(op, liveFlowID, err)
	}

	l.logger.InfoContext(ctx, "live flow deleted", "live_flow_id", liveFlowID)
	l.emit(ctx, liveFlowKey(liveFlowID), events.FlowDeleted{
		BaseEvent:  events.NewBaseEvent(events.FlowDeletedEvent, ActorFromContext(ctx)),
		LiveFlowID: liveFlowID,
	})

	return nil
}

// Fork copies a version into a new draft titled "Fork of <title>" at version 1.0.0.
func (l *Lifecycle) Fork(ctx context.Context, liveFlowID int64, label string) (_ *models.Draft, err error) {
	const op = "Fork"

	ctx, done := l.begin(ctx, op,
		attribute.Int64(otelhelper.LiveFlowIDKey, liveFlowID),
		attribute.String(otelhelper.VersionLabelKey, label),
	)
	defer done(&err)

	l.mu.Lock()
	defer l.mu.Unlock()

	flow, err := l.loadLiveFlow(ctx, op, liveFlowID)
	if err != nil {
		return nil, err
	}

	version, ok := flow.VersionByLabel(label)
	if !ok {
		return nil, newFlowError(op, liveFlowID, fmt.Errorf("%w: %q", models.ErrVersionNotFound, label))
	}

	draft := version.Fork(l.ids.Next(), time.Now().UTC())

	if err := l.saveDraft(ctx, op, draft); err != nil {
		return nil, err
	}

	actor := ActorFromContext(ctx)

	l.logger.InfoContext(ctx, "version forked", "live_flow_id", liveFlowID, "version", label, "draft_id", draft.ID)
	l.emit(ctx, draftKey(draft.ID), events.DraftCreated{
		BaseEvent: events.NewBaseEvent(events.DraftCreatedEvent, actor),
		DraftID:   draft.ID,
		Title:     draft.Metadata.Title,
		Origin:    "fork",
	})
	l.emit(ctx, liveFlowKey(liveFlowID), events.FlowForked{
		BaseEvent:  events.NewBaseEvent(events.FlowForkedEvent, actor),
		LiveFlowID: liveFlowID,
		Version:    label,
		DraftID:    draft.ID,
	})

	return &draft, nil
}
