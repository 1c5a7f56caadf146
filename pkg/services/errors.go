// Package services implements the flow lifecycle: drafts, publishing, live flows and their
// versions.
package services

import (
	"errors"
	"fmt"

	"github.com/dukex/flowforge/pkg/models"
)

// Infrastructure failures. Domain failures reuse the categories in package models.
var (
	// ErrExecution wraps failures reported by the execution service (502 Bad Gateway).
	ErrExecution = errors.New("execution error")

	// ErrPersistence wraps storage failures (500 Internal Server Error).
	ErrPersistence = errors.New("persistence error")
)

// FlowError wraps a lifecycle failure with the operation and the record it concerned.
type FlowError struct {
	Op  string // Operation name, e.g. "PublishDraft"
	ID  int64  // Draft or live flow id, zero when not applicable
	Err error
}

func (e *FlowError) Error() string {
	if e.ID == 0 {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}

	return fmt.Sprintf("%s %d: %v", e.Op, e.ID, e.Err)
}

func (e *FlowError) Unwrap() error {
	return e.Err
}

func newFlowError(op string, id int64, err error) *FlowError {
	return &FlowError{Op: op, ID: id, Err: err}
}

func persistenceError(op string, id int64, err error) *FlowError {
	return newFlowError(op, id, fmt.Errorf("%w: %w", ErrPersistence, err))
}

func executionError(op string, id int64, err error) *FlowError {
	return newFlowError(op, id, fmt.Errorf("%w: %w", ErrExecution, err))
}

// IsNotFoundError checks if an error should return HTTP 404.
func IsNotFoundError(err error) bool {
	return errors.Is(err, models.ErrNotFound)
}

// IsForbiddenError checks if an error should return HTTP 403.
func IsForbiddenError(err error) bool {
	return errors.Is(err, models.ErrForbidden)
}

// IsValidationError checks if an error is a validation error that should return HTTP 400.
func IsValidationError(err error) bool {
	return errors.Is(err, models.ErrValidation)
}

// IsConflictError checks if an error is a conflict that should return HTTP 409.
func IsConflictError(err error) bool {
	return errors.Is(err, models.ErrConflict)
}

// IsExecutionError checks if an error came from the execution service.
func IsExecutionError(err error) bool {
	return errors.Is(err, ErrExecution)
}

// IsPersistenceError checks if an error came from the storage backend.
func IsPersistenceError(err error) bool {
	return errors.Is(err, ErrPersistence)
}
