package execution

import (
	"context"
	"fmt"
	"sync"
)

// MockExecutor answers every request with a canned success output and records what it ran.
type MockExecutor struct {
	mu       sync.Mutex
	requests []Request
	failures map[int64]string
}

func NewMockExecutor() *MockExecutor {
	return &MockExecutor{failures: make(map[int64]string)}
}

// FailCell makes every later execution of cellID fail with message.
func (m *MockExecutor) FailCell(cellID int64, message string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.failures[cellID] = message
}

func (m *MockExecutor) Execute(ctx context.Context, req Request) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", &Error{CellID: req.CellID, Message: "cancelled", Err: err}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.requests = append(m.requests, req)

	if message, ok := m.failures[req.CellID]; ok {
		return "", &Error{CellID: req.CellID, Message: message}
	}

	return MockOutput(req.CellID), nil
}

// Requests returns the requests executed so far, in order.
func (m *MockExecutor) Requests() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]Request(nil), m.requests...)
}

// MockOutput is the output the mock reports for cellID.
func MockOutput(cellID int64) string {
	return fmt.Sprintf("Executed cell %d\nOutput: Success", cellID)
}
