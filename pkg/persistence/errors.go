package persistence

import (
	"errors"
	"fmt"
)

// ErrCorruptRecord indicates a stored record could not be decoded.
var ErrCorruptRecord = errors.New("corrupt record")

// Collection names used in RecordError.
const (
	CollectionDrafts    = "drafts"
	CollectionLiveFlows = "live_flows"
)

// RecordError wraps a storage failure with the operation and record it concerned.
type RecordError struct {
	Op         string // Operation being performed (e.g., "Get", "Save", "Delete")
	Collection string
	ID         int64 // Record ID if applicable
	Err        error
}

func (e *RecordError) Error() string {
	if e.ID == 0 {
		return fmt.Sprintf("%s %s: %v", e.Op, e.Collection, e.Err)
	}

	return fmt.Sprintf("%s %s/%d: %v", e.Op, e.Collection, e.ID, e.Err)
}

func (e *RecordError) Unwrap() error {
	return e.Err
}

// NewDraftError creates a RecordError for the drafts collection.
func NewDraftError(op string, id int64, err error) *RecordError {
	return &RecordError{Op: op, Collection: CollectionDrafts, ID: id, Err: err}
}

// NewLiveFlowError creates a RecordError for the live flows collection.
func NewLiveFlowError(op string, id int64, err error) *RecordError {
	return &RecordError{Op: op, Collection: CollectionLiveFlows, ID: id, Err: err}
}

// IsCorruptRecord checks if an error indicates an undecodable record.
func IsCorruptRecord(err error) bool {
	return errors.Is(err, ErrCorruptRecord)
}
