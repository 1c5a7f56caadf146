package models

import (
	"errors"
	"fmt"
)

// Error categories. Every lifecycle failure wraps exactly one of these.
var (
	ErrNotFound   = errors.New("not found")
	ErrForbidden  = errors.New("forbidden")
	ErrValidation = errors.New("validation failed")
	ErrConflict   = errors.New("conflict")
)

var (
	ErrDraftNotFound    = fmt.Errorf("draft %w", ErrNotFound)
	ErrLiveFlowNotFound = fmt.Errorf("live flow %w", ErrNotFound)
	ErrVersionNotFound  = fmt.Errorf("version %w", ErrNotFound)
	ErrCellNotFound     = fmt.Errorf("cell %w", ErrNotFound)

	// Version deletion guards.
	ErrLiveVersionDelete = fmt.Errorf("%w: the live version cannot be deleted", ErrForbidden)
	ErrLastVersionDelete = fmt.Errorf("%w: the last remaining version cannot be deleted", ErrForbidden)

	ErrUnknownField   = fmt.Errorf("%w: unknown cell field", ErrValidation)
	ErrUnknownServer  = fmt.Errorf("%w: unknown server", ErrValidation)
	ErrInvalidService = fmt.Errorf("%w: service is not offered by server", ErrValidation)
	ErrInvalidCellID  = fmt.Errorf("%w: cell ids must be positive and unique", ErrValidation)

	ErrDuplicateVersion = fmt.Errorf("%w: version label already published", ErrConflict)
	ErrRevisionMismatch = fmt.Errorf("%w: live flow revision mismatch", ErrConflict)
)
