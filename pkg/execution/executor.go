// Package execution runs cell code on the selected server and service through an external
// execution service.
package execution

import (
	"context"
	"errors"
	"fmt"
)

// Request is the payload sent to the execution service for one cell.
type Request struct {
	FlowID       int64  `json:"flowId"`
	CellID       int64  `json:"cellId"`
	Code         string `json:"code"`
	Server       string `json:"server"`
	Service      string `json:"service"`
	Dependencies string `json:"dependencies"`
}

// Response is the execution service's reply.
type Response struct {
	Output string `json:"output"`
	Error  string `json:"error,omitempty"`
}

// Executor runs a single cell and returns its textual output.
type Executor interface {
	Execute(ctx context.Context, req Request) (string, error)
}

// ErrExecutionFailed is wrapped by every failure reported by an Executor.
var ErrExecutionFailed = errors.New("execution failed")

// Error describes a failed execution of one cell.
type Error struct {
	CellID     int64
	StatusCode int // Zero when the service was never reached
	Message    string
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("cell %d: execution service returned %d: %s", e.CellID, e.StatusCode, e.Message)
	}

	return fmt.Sprintf("cell %d: %s", e.CellID, e.Message)
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrExecutionFailed}
	}

	return []error{ErrExecutionFailed, e.Err}
}

// IsExecutionError checks if err was reported by an Executor.
func IsExecutionError(err error) bool {
	return errors.Is(err, ErrExecutionFailed)
}
