package main

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dukex/flowforge/pkg/execution"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServer_Execute(t *testing.T) {
	executor := execution.NewMockExecutor()
	executor.FailCell(9, "syntax error")

	app := NewServer(slog.New(slog.DiscardHandler), executor)

	tests := []struct {
		name           string
		body           string
		expectedStatus int
		expected       execution.Response
	}{
		{
			name:           "success",
			body:           `{"flowId": 1, "cellId": 2, "code": "print(1)", "server": "Server A", "service": "Service 1"}`,
			expectedStatus: http.StatusOK,
			expected:       execution.Response{Output: execution.MockOutput(2)},
		},
		{
			name:           "failing cell",
			body:           `{"flowId": 1, "cellId": 9}`,
			expectedStatus: http.StatusUnprocessableEntity,
			expected:       execution.Response{Error: "cell 9: syntax error"},
		},
		{
			name:           "invalid body",
			body:           `{"cellId": `,
			expectedStatus: http.StatusBadRequest,
			expected:       execution.Response{Error: "invalid request body"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/execute", bytes.NewBufferString(tt.body))
			req.Header.Set("Content-Type", "application/json")

			resp, err := app.Test(req)
			require.NoError(t, err)

			defer func() {
				_ = resp.Body.Close()
			}()

			assert.Equal(t, tt.expectedStatus, resp.StatusCode)

			var got execution.Response
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
			assert.Equal(t, tt.expected, got)
		})
	}

	require.Len(t, executor.Requests(), 2)
	assert.Equal(t, "print(1)", executor.Requests()[0].Code)
}
