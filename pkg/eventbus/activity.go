package eventbus

import (
	"context"
	"log/slog"

	"github.com/dukex/flowforge/pkg/events"
)

// LifecycleEventTypes lists every event the lifecycle service emits.
var LifecycleEventTypes = []events.EventType{
	events.DraftCreatedEvent,
	events.DraftUpdatedEvent,
	events.DraftDiscardedEvent,
	events.FlowPublishedEvent,
	events.FlowVersionAddedEvent,
	events.FlowVersionPromotedEvent,
	events.FlowVersionDeletedEvent,
	events.FlowDeletedEvent,
	events.FlowForkedEvent,
}

// LogActivity registers a handler on bus that writes one log line per lifecycle event.
func LogActivity(bus EventSubscriber, logger *slog.Logger) error {
	logger = logger.With("module", "activity")

	for _, eventType := range LifecycleEventTypes {
		err := bus.Handle(eventType, func(ctx context.Context, event any) error {
			logger.InfoContext(ctx, "flow activity", append([]any{"event_type", eventType}, activityAttrs(event)...)...)

			return nil
		})
		if err != nil {
			return err
		}
	}

	return nil
}

func activityAttrs(event any) []any {
	switch e := event.(type) {
	case *events.DraftCreated:
		return []any{"draft_id", e.DraftID, "origin", e.Origin, "actor", e.Actor}
	case *events.DraftUpdated:
		return []any{"draft_id", e.DraftID, "change", e.Change}
	case *events.DraftDiscarded:
		return []any{"draft_id", e.DraftID}
	case *events.FlowPublished:
		return []any{"live_flow_id", e.LiveFlowID, "draft_id", e.DraftID, "version", e.Version}
	case *events.FlowVersionAdded:
		return []any{"live_flow_id", e.LiveFlowID, "draft_id", e.DraftID, "version", e.Version}
	case *events.FlowVersionPromoted:
		return []any{"live_flow_id", e.LiveFlowID, "version", e.Version, "previous", e.Previous}
	case *events.FlowVersionDeleted:
		return []any{"live_flow_id", e.LiveFlowID, "version", e.Version}
	case *events.FlowDeleted:
		return []any{"live_flow_id", e.LiveFlowID}
	case *events.FlowForked:
		return []any{"live_flow_id", e.LiveFlowID, "version", e.Version, "draft_id", e.DraftID}
	default:
		return nil
	}
}
