package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/dukex/flowforge/pkg/channels/gochannel"
	"github.com/dukex/flowforge/pkg/eventbus"
	"github.com/dukex/flowforge/pkg/events"
	"github.com/dukex/flowforge/pkg/models"
	"github.com/dukex/flowforge/pkg/persistence/file"
	"github.com/dukex/flowforge/pkg/services"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestApp(t *testing.T, opts ...services.Option) *fiber.App {
	t.Helper()

	opts = append([]services.Option{services.WithLogger(slog.New(slog.DiscardHandler))}, opts...)
	lifecycle := services.NewLifecycle(file.NewPersistence(t.TempDir()), opts...)
	require.NoError(t, lifecycle.Init(t.Context()))

	api := NewAPI(slog.New(slog.DiscardHandler), lifecycle, validator.New(validator.WithRequiredStructEnabled()))

	return api.App()
}

func doRequest(t *testing.T, app *fiber.App, method, path string, body any) (int, []byte) {
	t.Helper()

	var reader io.Reader

	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)

		reader = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)

	defer func() {
		err := resp.Body.Close()
		if err != nil {
			t.Logf("Failed to close response body: %v", err)
		}
	}()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return resp.StatusCode, data
}

func TestAPI_RootEndpoint(t *testing.T) {
	app := setupTestApp(t)

	status, body := doRequest(t, app, http.MethodGet, "/", nil)

	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "FlowForge API", string(body))
}

func TestAPI_HealthCheck(t *testing.T) {
	app := setupTestApp(t)

	for _, path := range []string{"/livez", "/readyz"} {
		status, body := doRequest(t, app, http.MethodGet, path, nil)

		assert.Equal(t, http.StatusOK, status, path)
		assert.Equal(t, "OK", string(body), path)
	}

	status, _ := doRequest(t, app, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, status)
}

func TestAPI_GetDrafts_Empty(t *testing.T) {
	app := setupTestApp(t)

	status, body := doRequest(t, app, http.MethodGet, "/drafts", nil)
	require.Equal(t, http.StatusOK, status)

	var result struct {
		Drafts     []any `json:"drafts"`
		TotalCount int   `json:"total_count"`
	}
	require.NoError(t, json.Unmarshal(body, &result))
	assert.Empty(t, result.Drafts)
	assert.Zero(t, result.TotalCount)
}

func TestAPI_PublishEmitsActivity(t *testing.T) {
	pub, sub, err := gochannel.CreateTestChannel(watermill.NopLogger{})
	require.NoError(t, err)

	bus := eventbus.NewWatermillEventBus(pub, sub, slog.New(slog.DiscardHandler))

	t.Cleanup(func() {
		_ = bus.Close()
	})

	published := make(chan *events.FlowPublished, 1)
	require.NoError(t, bus.Handle(events.FlowPublishedEvent, func(_ context.Context, event any) error {
		if e, ok := event.(*events.FlowPublished); ok {
			published <- e
		}

		return nil
	}))
	require.NoError(t, bus.Subscribe(t.Context()))

	app := setupTestApp(t, services.WithEventPublisher(bus))

	status, body := doRequest(t, app, http.MethodPost, "/drafts", map[string]string{"title": "Events"})
	require.Equal(t, http.StatusCreated, status)

	var draft models.Draft
	require.NoError(t, json.Unmarshal(body, &draft))

	status, body = doRequest(t, app, http.MethodPost, "/drafts/"+strconv.FormatInt(draft.ID, 10)+"/publish",
		map[string]string{"target": "new"})
	require.Equal(t, http.StatusCreated, status, string(body))

	select {
	case event := <-published:
		assert.Equal(t, draft.ID, event.DraftID)
		assert.Equal(t, models.InitialVersion, event.Version)
	case <-time.After(5 * time.Second):
		t.Fatal("flow.published event not received")
	}
}
