// Package events defines the notifications emitted when drafts and live flows change.
package events

import (
	"time"

	"github.com/google/uuid"
)

type EventType string

// Topic carries every lifecycle event.
const Topic = "flowforge.events"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	// Draft events.
	DraftCreatedEvent   EventType = "draft.created"
	DraftUpdatedEvent   EventType = "draft.updated"
	DraftDiscardedEvent EventType = "draft.discarded"

	// Live flow events.
	FlowPublishedEvent       EventType = "flow.published"
	FlowVersionAddedEvent    EventType = "flow.version.added"
	FlowVersionPromotedEvent EventType = "flow.version.promoted"
	FlowVersionDeletedEvent  EventType = "flow.version.deleted"
	FlowDeletedEvent         EventType = "flow.deleted"
	FlowForkedEvent          EventType = "flow.forked"
)

// DraftChange names what a DraftUpdated event changed.
type DraftChange string

const (
	ChangeCellAdded    DraftChange = "cell.added"
	ChangeCellUpdated  DraftChange = "cell.updated"
	ChangeCellDeleted  DraftChange = "cell.deleted"
	ChangeCellExecuted DraftChange = "cell.executed"
	ChangeMetadata     DraftChange = "metadata"
	ChangeContent      DraftChange = "content"
	ChangeReset        DraftChange = "reset"
)

type BaseEvent struct {
	ID        string         `json:"id"`
	Type      EventType      `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	Actor     string         `json:"actor,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// NewBaseEvent stamps an event of the given type with a fresh id and the current time.
func NewBaseEvent(eventType EventType, actor string) BaseEvent {
	return BaseEvent{
		ID:        uuid.NewString(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Actor:     actor,
	}
}

type DraftCreated struct {
	BaseEvent

	DraftID int64  `json:"draft_id"`
	Title   string `json:"title"`
	Origin  string `json:"origin"` // "new", "import" or "fork"
}

func (e DraftCreated) GetType() EventType {
	return DraftCreatedEvent
}

type DraftUpdated struct {
	BaseEvent

	DraftID int64       `json:"draft_id"`
	Change  DraftChange `json:"change"`
	CellID  int64       `json:"cell_id,omitempty"`
}

func (e DraftUpdated) GetType() EventType {
	return DraftUpdatedEvent
}

type DraftDiscarded struct {
	BaseEvent

	DraftID int64 `json:"draft_id"`
}

func (e DraftDiscarded) GetType() EventType {
	return DraftDiscardedEvent
}

// FlowPublished is emitted when a draft becomes a new live flow.
type FlowPublished struct {
	BaseEvent

	LiveFlowID int64  `json:"live_flow_id"`
	DraftID    int64  `json:"draft_id"`
	VersionID  int64  `json:"version_id"`
	Version    string `json:"version"`
}

func (e FlowPublished) GetType() EventType {
	return FlowPublishedEvent
}

// FlowVersionAdded is emitted when a draft is appended to an existing live flow.
type FlowVersionAdded struct {
	BaseEvent

	LiveFlowID int64  `json:"live_flow_id"`
	DraftID    int64  `json:"draft_id"`
	VersionID  int64  `json:"version_id"`
	Version    string `json:"version"`
	Revision   int64  `json:"revision"`
}

func (e FlowVersionAdded) GetType() EventType {
	return FlowVersionAddedEvent
}

type FlowVersionPromoted struct {
	BaseEvent

	LiveFlowID int64  `json:"live_flow_id"`
	Version    string `json:"version"`
	Previous   string `json:"previous"`
	Revision   int64  `json:"revision"`
}

func (e FlowVersionPromoted) GetType() EventType {
	return FlowVersionPromotedEvent
}

type FlowVersionDeleted struct {
	BaseEvent

	LiveFlowID int64  `json:"live_flow_id"`
	VersionID  int64  `json:"version_id"`
	Version    string `json:"version"`
	Revision   int64  `json:"revision"`
}

func (e FlowVersionDeleted) GetType() EventType {
	return FlowVersionDeletedEvent
}

type FlowDeleted struct {
	BaseEvent

	LiveFlowID int64 `json:"live_flow_id"`
}

func (e FlowDeleted) GetType() EventType {
	return FlowDeletedEvent
}

// FlowForked is emitted when a version is copied into a new draft.
type FlowForked struct {
	BaseEvent

	LiveFlowID int64  `json:"live_flow_id"`
	Version    string `json:"version"`
	DraftID    int64  `json:"draft_id"`
}

func (e FlowForked) GetType() EventType {
	return FlowForkedEvent
}

// New returns a pointer to an empty event of the given type for decoding, or nil when the
// type is unknown.
func New(eventType EventType) any {
	switch eventType {
	case DraftCreatedEvent:
		return &DraftCreated{}
	case DraftUpdatedEvent:
		return &DraftUpdated{}
	case DraftDiscardedEvent:
		return &DraftDiscarded{}
	case FlowPublishedEvent:
		return &FlowPublished{}
	case FlowVersionAddedEvent:
		return &FlowVersionAdded{}
	case FlowVersionPromotedEvent:
		return &FlowVersionPromoted{}
	case FlowVersionDeletedEvent:
		return &FlowVersionDeleted{}
	case FlowDeletedEvent:
		return &FlowDeleted{}
	case FlowForkedEvent:
		return &FlowForked{}
	default:
		return nil
	}
}
