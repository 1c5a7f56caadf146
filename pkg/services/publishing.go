package services

import (
	"context"
	"time"

	"github.com/dukex/flowforge/pkg/events"
	"github.com/dukex/flowforge/pkg/models"
	"github.com/dukex/flowforge/pkg/otelhelper"
	"github.com/dukex/flowforge/pkg/persistence"
	"go.opentelemetry.io/otel/attribute"
)

// PublishTarget selects where a draft is published: a new live flow, or a new version of an
// existing one.
type PublishTarget struct {
	LiveFlowID int64 // Zero publishes a new live flow
}

// NewFlow targets a new live flow.
func NewFlow() PublishTarget {
	return PublishTarget{}
}

// ExistingFlow targets the live flow with the given id.
func ExistingFlow(liveFlowID int64) PublishTarget {
	return PublishTarget{LiveFlowID: liveFlowID}
}

// IsNew reports whether the target is a new live flow.
func (t PublishTarget) IsNew() bool {
	return t.LiveFlowID == 0
}

// MutationOption adds preconditions to live flow mutations.
type MutationOption func(*mutationOptions)

type mutationOptions struct {
	revision *int64
}

// IfRevision fails the mutation with a Conflict unless the live flow is at revision.
func IfRevision(revision int64) MutationOption {
	return func(o *mutationOptions) {
		o.revision = &revision
	}
}

func applyMutationOptions(opts []MutationOption) mutationOptions {
	var o mutationOptions
	for _, opt := range opts {
		opt(&o)
	}

	return o
}

// Publish snapshots a draft into target and removes the draft. A new live flow goes live with
// the draft's version label; a version added to an existing flow does not change which
// version is live.
func (l *Lifecycle) Publish(ctx context.Context, draftID int64, target PublishTarget, opts ...MutationOption) (*models.LiveFlow, error) {
	if target.IsNew() {
		return l.PublishNew(ctx, draftID)
	}

	return l.PublishVersion(ctx, draftID, target.LiveFlowID, opts...)
}

// PublishNew publishes a draft as a new live flow.
func (l *Lifecycle) PublishNew(ctx context.Context, draftID int64) (_ *models.LiveFlow, err error) {
	const op = "PublishNew"

	ctx, done := l.begin(ctx, op, attribute.Int64(otelhelper.DraftIDKey, draftID))
	defer done(&err)

	l.mu.Lock()
	defer l.mu.Unlock()

	draft, err := l.loadDraft(ctx, op, draftID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	version := draft.Snapshot(l.ids.Next(), now)
	flow := models.NewLiveFlow(l.ids.Next(), version, now)

	if err := l.commitPublish(ctx, op, flow, nil, draftID); err != nil {
		return nil, err
	}

	l.logger.InfoContext(ctx, "draft published as new live flow",
		"draft_id", draftID, "live_flow_id", flow.ID, "version", flow.LiveVersion)
	l.emit(ctx, liveFlowKey(flow.ID), events.FlowPublished{
		BaseEvent:  events.NewBaseEvent(events.FlowPublishedEvent, ActorFromContext(ctx)),
		LiveFlowID: flow.ID,
		DraftID:    draftID,
		VersionID:  version.ID,
		Version:    version.Metadata.Version,
	})

	return &flow, nil
}

// PublishVersion appends a draft to an existing live flow as a new version.
func (l *Lifecycle) PublishVersion(ctx context.Context, draftID, liveFlowID int64, opts ...MutationOption) (_ *models.LiveFlow, err error) {
	const op = "PublishVersion"

	ctx, done := l.begin(ctx, op,
		attribute.Int64(otelhelper.DraftIDKey, draftID),
		attribute.Int64(otelhelper.LiveFlowIDKey, liveFlowID),
	)
	defer done(&err)

	options := applyMutationOptions(opts)

	l.mu.Lock()
	defer l.mu.Unlock()

	draft, err := l.loadDraft(ctx, op, draftID)
	if err != nil {
		return nil, err
	}

	previous, err := l.loadLiveFlow(ctx, op, liveFlowID)
	if err != nil {
		return nil, err
	}

	if err := previous.CheckRevision(options.revision); err != nil {
		return nil, newFlowError(op, liveFlowID, err)
	}

	version := draft.Snapshot(l.ids.Next(), time.Now().UTC())

	flow, err := previous.AppendVersion(version)
	if err != nil {
		return nil, newFlowError(op, liveFlowID, err)
	}

	if err := l.commitPublish(ctx, op, flow, &previous, draftID); err != nil {
		return nil, err
	}

	l.logger.InfoContext(ctx, "draft published as new version",
		"draft_id", draftID, "live_flow_id", flow.ID, "version", version.Metadata.Version)
	l.emit(ctx, liveFlowKey(flow.ID), events.FlowVersionAdded{
		BaseEvent:  events.NewBaseEvent(events.FlowVersionAddedEvent, ActorFromContext(ctx)),
		LiveFlowID: flow.ID,
		DraftID:    draftID,
		VersionID:  version.ID,
		Version:    version.Metadata.Version,
		Revision:   flow.Revision,
	})

	return &flow, nil
}

// commitPublish stores flow and removes the draft. Backends implementing
// persistence.AtomicPublisher do both in one step; otherwise the flow is written first and
// restored to previous (or removed, for a new flow) if the draft cannot be deleted.
func (l *Lifecycle) commitPublish(ctx context.Context, op string, flow models.LiveFlow, previous *models.LiveFlow, draftID int64) error {
	if publisher, ok := l.persistence.(persistence.AtomicPublisher); ok {
		if err := publisher.PublishDraft(ctx, &flow, draftID); err != nil {
			return persistenceError(op, draftID, err)
		}

		return nil
	}

	if err := l.saveLiveFlow(ctx, op, flow); err != nil {
		return err
	}

	deleteErr := l.persistence.DeleteDraft(ctx, draftID)
	if deleteErr == nil {
		return nil
	}

	var rollbackErr error
	if previous == nil {
		rollbackErr = l.persistence.DeleteLiveFlow(ctx, flow.ID)
	} else {
		restored := previous.Clone()
		rollbackErr = l.persistence.SaveLiveFlow(ctx, &restored)
	}

	if rollbackErr != nil {
		l.logger.ErrorContext(ctx, "failed to roll back publish",
			"draft_id", draftID, "live_flow_id", flow.ID, "error", rollbackErr)
	}

	return persistenceError(op, draftID, deleteErr)
}
