package web_test

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"

	"github.com/dukex/flowforge/pkg/execution"
	"github.com/dukex/flowforge/pkg/models"
	"github.com/dukex/flowforge/pkg/persistence/file"
	"github.com/dukex/flowforge/pkg/services"
	"github.com/dukex/flowforge/pkg/web"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testApp struct {
	app      *fiber.App
	executor *execution.MockExecutor
}

func setupTestApp(t *testing.T) testApp {
	t.Helper()

	executor := execution.NewMockExecutor()
	lifecycle := services.NewLifecycle(
		file.NewPersistence(t.TempDir()),
		services.WithExecutor(executor),
		services.WithLogger(slog.New(slog.DiscardHandler)),
	)
	require.NoError(t, lifecycle.Init(t.Context()))

	handlers := web.NewAPIHandlers(lifecycle, validator.New(validator.WithRequiredStructEnabled()))

	app := fiber.New()
	handlers.RegisterRoutes(app)

	return testApp{app: app, executor: executor}
}

type response struct {
	status int
	header http.Header
	body   []byte
}

func (r response) decode(t *testing.T, out any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(r.body, out), string(r.body))
}

func (a testApp) do(t *testing.T, method, path string, body any, headers ...string) response {
	t.Helper()

	var reader io.Reader

	switch b := body.(type) {
	case nil:
	case []byte:
		reader = bytes.NewReader(b)
	default:
		payload, err := json.Marshal(b)
		require.NoError(t, err)

		reader = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, path, reader)
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	resp, err := a.app.Test(req)
	require.NoError(t, err)

	defer func() {
		err := resp.Body.Close()
		if err != nil {
			t.Logf("Failed to close response body: %v", err)
		}
	}()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return response{status: resp.StatusCode, header: resp.Header, body: data}
}

func (a testApp) createDraft(t *testing.T, title, version string) models.Draft {
	t.Helper()

	resp := a.do(t, http.MethodPost, "/drafts", web.MetadataRequest{Title: &title, Version: &version})
	require.Equal(t, http.StatusCreated, resp.status, string(resp.body))

	var draft models.Draft
	resp.decode(t, &draft)

	return draft
}

func draftPath(id int64, suffix string) string {
	return "/drafts/" + strconv.FormatInt(id, 10) + suffix
}

func liveFlowPath(id int64, suffix string) string {
	return "/live-flows/" + strconv.FormatInt(id, 10) + suffix
}

func TestAPIHandlers_CreateDraft(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		body           any
		author         string
		expectedStatus int
		validateResult func(t *testing.T, draft models.Draft)
	}{
		{
			name:           "defaults with author header",
			author:         "ada",
			expectedStatus: http.StatusCreated,
			validateResult: func(t *testing.T, draft models.Draft) {
				t.Helper()
				assert.Equal(t, models.DefaultTitle, draft.Metadata.Title)
				assert.Equal(t, "ada", draft.Metadata.Author)
				assert.Equal(t, models.InitialVersion, draft.Metadata.Version)
				assert.Empty(t, draft.Cells)
				assert.NotZero(t, draft.ID)
			},
		},
		{
			name:           "explicit metadata",
			body:           map[string]any{"title": "Nightly", "author": "grace", "description": "loads"},
			author:         "ada",
			expectedStatus: http.StatusCreated,
			validateResult: func(t *testing.T, draft models.Draft) {
				t.Helper()
				assert.Equal(t, "Nightly", draft.Metadata.Title)
				assert.Equal(t, "grace", draft.Metadata.Author)
				assert.Equal(t, "loads", draft.Metadata.Description)
			},
		},
		{
			name:           "empty version label",
			body:           map[string]any{"version": ""},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "invalid json",
			body:           []byte(`{"title":`),
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			app := setupTestApp(t)

			resp := app.do(t, http.MethodPost, "/drafts", tt.body, web.AuthorHeader, tt.author)
			assert.Equal(t, tt.expectedStatus, resp.status, string(resp.body))

			if tt.validateResult != nil {
				var draft models.Draft
				resp.decode(t, &draft)
				tt.validateResult(t, draft)
			}
		})
	}
}

func TestAPIHandlers_Cells(t *testing.T) {
	t.Parallel()

	app := setupTestApp(t)
	draft := app.createDraft(t, "A", "1.0.0")

	resp := app.do(t, http.MethodPost, draftPath(draft.ID, "/cells"), nil)
	require.Equal(t, http.StatusCreated, resp.status)

	var cell models.Cell
	resp.decode(t, &cell)
	assert.Equal(t, models.DefaultCellCode, cell.Code)
	assert.Equal(t, "Server A", cell.Server)

	cellPath := draftPath(draft.ID, "/cells/"+strconv.FormatInt(cell.ID, 10))

	t.Run("update server resets service", func(t *testing.T) {
		resp := app.do(t, http.MethodPatch, cellPath, web.UpdateCellRequest{Field: "server", Value: "Server B"})
		require.Equal(t, http.StatusOK, resp.status)

		var updated models.Cell
		resp.decode(t, &updated)
		assert.Equal(t, "Server B", updated.Server)
		assert.Equal(t, "Service 4", updated.Service)
	})

	t.Run("service of another server", func(t *testing.T) {
		resp := app.do(t, http.MethodPatch, cellPath, web.UpdateCellRequest{Field: "service", Value: "Service 9"})
		assert.Equal(t, http.StatusBadRequest, resp.status)
		assert.Contains(t, string(resp.body), "validation_error")
	})

	t.Run("unknown field", func(t *testing.T) {
		resp := app.do(t, http.MethodPatch, cellPath, web.UpdateCellRequest{Field: "id", Value: "3"})
		assert.Equal(t, http.StatusBadRequest, resp.status)
	})

	t.Run("missing cell", func(t *testing.T) {
		resp := app.do(t, http.MethodPatch, draftPath(draft.ID, "/cells/999"), web.UpdateCellRequest{Field: "code", Value: "x"})
		assert.Equal(t, http.StatusNotFound, resp.status)
	})

	t.Run("run stores output", func(t *testing.T) {
		resp := app.do(t, http.MethodPost, cellPath+"/execute", nil)
		require.Equal(t, http.StatusOK, resp.status)

		var executed models.Cell
		resp.decode(t, &executed)
		require.NotNil(t, executed.Output)
		assert.Equal(t, execution.MockOutput(cell.ID), *executed.Output)
	})

	t.Run("delete is idempotent", func(t *testing.T) {
		assert.Equal(t, http.StatusNoContent, app.do(t, http.MethodDelete, cellPath, nil).status)
		assert.Equal(t, http.StatusNoContent, app.do(t, http.MethodDelete, cellPath, nil).status)

		var stored models.Draft
		app.do(t, http.MethodGet, draftPath(draft.ID, ""), nil).decode(t, &stored)
		assert.Empty(t, stored.Cells)
	})
}

func TestAPIHandlers_PublishLifecycle(t *testing.T) {
	t.Parallel()

	app := setupTestApp(t)

	first := app.createDraft(t, "A", "1.0.0")

	resp := app.do(t, http.MethodPost, draftPath(first.ID, "/publish"), web.PublishRequest{Target: web.PublishTargetNew})
	require.Equal(t, http.StatusCreated, resp.status, string(resp.body))
	assert.Equal(t, `"1"`, resp.header.Get("ETag"))

	var flow models.LiveFlow
	resp.decode(t, &flow)
	assert.Equal(t, "1.0.0", flow.LiveVersion)

	assert.Equal(t, http.StatusNotFound, app.do(t, http.MethodGet, draftPath(first.ID, ""), nil).status)

	second := app.createDraft(t, "A", "1.1.0")

	resp = app.do(t, http.MethodPost, liveFlowPath(flow.ID, "/versions"), web.DraftReferenceRequest{DraftID: second.ID})
	require.Equal(t, http.StatusCreated, resp.status, string(resp.body))
	resp.decode(t, &flow)
	assert.Equal(t, []string{"1.0.0", "1.1.0"}, flow.Labels())
	assert.Equal(t, "1.0.0", flow.LiveVersion)

	resp = app.do(t, http.MethodPut, liveFlowPath(flow.ID, ""), web.PromoteRequest{LiveVersion: "1.1.0"}, fiber.HeaderIfMatch, `"1"`)
	assert.Equal(t, http.StatusConflict, resp.status)

	resp = app.do(t, http.MethodPut, liveFlowPath(flow.ID, ""), web.PromoteRequest{LiveVersion: "1.1.0"},
		fiber.HeaderIfMatch, strconv.Quote(strconv.FormatInt(flow.Revision, 10)))
	require.Equal(t, http.StatusOK, resp.status, string(resp.body))
	resp.decode(t, &flow)
	assert.Equal(t, "1.1.0", flow.LiveVersion)

	resp = app.do(t, http.MethodDelete, liveFlowPath(flow.ID, "/versions/"+strconv.FormatInt(flow.Versions[1].ID, 10)), nil)
	assert.Equal(t, http.StatusForbidden, resp.status)

	resp = app.do(t, http.MethodDelete, liveFlowPath(flow.ID, "/versions/"+strconv.FormatInt(flow.Versions[0].ID, 10)), nil)
	require.Equal(t, http.StatusOK, resp.status)
	resp.decode(t, &flow)
	assert.Equal(t, []string{"1.1.0"}, flow.Labels())

	var current models.Version
	app.do(t, http.MethodGet, liveFlowPath(flow.ID, "/current"), nil).decode(t, &current)
	assert.Equal(t, "1.1.0", current.Metadata.Version)

	var next map[string]string
	app.do(t, http.MethodGet, liveFlowPath(flow.ID, "/versions/next"), nil).decode(t, &next)
	assert.Equal(t, "1.1.1", next["version"])

	var list struct {
		LiveFlows  []web.LiveFlowSummary `json:"live_flows"`
		TotalCount int                   `json:"total_count"`
	}
	app.do(t, http.MethodGet, "/live-flows", nil).decode(t, &list)
	require.Equal(t, 1, list.TotalCount)
	assert.Equal(t, "A", list.LiveFlows[0].Title)

	resp = app.do(t, http.MethodPost, liveFlowPath(flow.ID, "/versions/1.1.0/fork"), nil, web.AuthorHeader, "grace")
	require.Equal(t, http.StatusCreated, resp.status)

	var fork models.Draft
	resp.decode(t, &fork)
	assert.Equal(t, "Fork of A", fork.Metadata.Title)
	assert.Equal(t, models.InitialVersion, fork.Metadata.Version)

	assert.Equal(t, http.StatusNoContent, app.do(t, http.MethodDelete, liveFlowPath(flow.ID, ""), nil).status)
	assert.Equal(t, http.StatusNotFound, app.do(t, http.MethodGet, liveFlowPath(flow.ID, ""), nil).status)
}

func TestAPIHandlers_PublishDraft_Errors(t *testing.T) {
	t.Parallel()

	app := setupTestApp(t)

	flowDraft := app.createDraft(t, "A", "1.0.0")

	var flow models.LiveFlow

	resp := app.do(t, http.MethodPost, "/live-flows", web.DraftReferenceRequest{DraftID: flowDraft.ID})
	require.Equal(t, http.StatusCreated, resp.status)
	resp.decode(t, &flow)

	tests := []struct {
		name           string
		body           any
		expectedStatus int
	}{
		{
			name:           "unknown target",
			body:           map[string]any{"target": "elsewhere"},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "existing without flow id",
			body:           web.PublishRequest{Target: web.PublishTargetExisting},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "missing flow",
			body:           web.PublishRequest{Target: web.PublishTargetExisting, LiveFlowID: 42},
			expectedStatus: http.StatusNotFound,
		},
		{
			name:           "duplicate label",
			body:           web.PublishRequest{Target: web.PublishTargetExisting, LiveFlowID: flow.ID},
			expectedStatus: http.StatusConflict,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			draft := app.createDraft(t, "A", "1.0.0")

			resp := app.do(t, http.MethodPost, draftPath(draft.ID, "/publish"), tt.body)
			assert.Equal(t, tt.expectedStatus, resp.status, string(resp.body))

			assert.Equal(t, http.StatusOK, app.do(t, http.MethodGet, draftPath(draft.ID, ""), nil).status)
		})
	}

	resp = app.do(t, http.MethodPost, "/live-flows", web.DraftReferenceRequest{DraftID: 12345})
	assert.Equal(t, http.StatusNotFound, resp.status)
}

func TestAPIHandlers_InvalidIDs(t *testing.T) {
	t.Parallel()

	app := setupTestApp(t)

	for _, path := range []string{"/drafts/abc", "/drafts/-4", "/live-flows/x"} {
		resp := app.do(t, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusBadRequest, resp.status, path)
	}

	resp := app.do(t, http.MethodGet, "/drafts/99", nil)
	assert.Equal(t, http.StatusNotFound, resp.status)

	var problem map[string]any
	resp.decode(t, &problem)
	assert.Equal(t, "not_found", problem["type"])
	assert.Equal(t, "/drafts/99", problem["instance"])
}

func TestAPIHandlers_ExportImport(t *testing.T) {
	t.Parallel()

	app := setupTestApp(t)
	draft := app.createDraft(t, "Nightly Load", "1.0.0")

	resp := app.do(t, http.MethodPost, draftPath(draft.ID, "/cells"), web.AddCellRequest{Code: "load()"})
	require.Equal(t, http.StatusCreated, resp.status)

	resp = app.do(t, http.MethodGet, draftPath(draft.ID, "/export"), nil)
	require.Equal(t, http.StatusOK, resp.status)
	assert.Contains(t, resp.header.Get("Content-Disposition"), "Nightly_Load.json")

	resp = app.do(t, http.MethodPost, "/drafts/import", resp.body)
	require.Equal(t, http.StatusCreated, resp.status, string(resp.body))

	var imported models.Draft
	resp.decode(t, &imported)
	assert.NotEqual(t, draft.ID, imported.ID)
	require.Len(t, imported.Cells, 1)
	assert.Equal(t, "load()", imported.Cells[0].Code)

	resp = app.do(t, http.MethodPost, "/drafts/import", []byte(`{"cells": "nope"}`))
	assert.Equal(t, http.StatusBadRequest, resp.status)

	longTitle := `{"metadata": {"title": "` + strings.Repeat("t", 256) + `", "version": "1.0.0"}, "cells": []}`
	resp = app.do(t, http.MethodPost, "/drafts/import", []byte(longTitle))
	assert.Equal(t, http.StatusBadRequest, resp.status, string(resp.body))

	var list struct {
		Drafts     []web.DraftSummary `json:"drafts"`
		TotalCount int                `json:"total_count"`
	}
	app.do(t, http.MethodGet, "/drafts", nil).decode(t, &list)
	assert.Equal(t, 2, list.TotalCount)
}

func TestAPIHandlers_VersionLabelsNeedingEscape(t *testing.T) {
	t.Parallel()

	for _, label := range []string{"1.0.0 beta", "release/2"} {
		t.Run(label, func(t *testing.T) {
			t.Parallel()

			app := setupTestApp(t)
			draft := app.createDraft(t, "Nightly Load", label)

			resp := app.do(t, http.MethodPost, draftPath(draft.ID, "/publish"), web.PublishRequest{Target: web.PublishTargetNew})
			require.Equal(t, http.StatusCreated, resp.status, string(resp.body))

			var flow models.LiveFlow
			resp.decode(t, &flow)
			require.Equal(t, label, flow.LiveVersion)

			versionPath := liveFlowPath(flow.ID, "/versions/"+url.PathEscape(label))

			resp = app.do(t, http.MethodGet, versionPath+"/export", nil)
			require.Equal(t, http.StatusOK, resp.status, string(resp.body))
			assert.Contains(t, string(resp.body), label)

			resp = app.do(t, http.MethodPost, versionPath+"/fork", nil)
			require.Equal(t, http.StatusCreated, resp.status, string(resp.body))

			var fork models.Draft
			resp.decode(t, &fork)
			assert.Equal(t, "Fork of Nightly Load", fork.Metadata.Title)
		})
	}
}

func TestAPIHandlers_ReplaceAndReset(t *testing.T) {
	t.Parallel()

	app := setupTestApp(t)
	draft := app.createDraft(t, "A", "1.0.0")

	replace := web.ReplaceDraftRequest{
		Metadata: models.FlowMetadata{Title: "B", Version: "2.0.0"},
		Cells:    []web.CellRequest{{ID: 3, Code: "x", Server: "Server C", Service: "Service 8"}},
	}

	resp := app.do(t, http.MethodPut, draftPath(draft.ID, ""), replace)
	require.Equal(t, http.StatusOK, resp.status, string(resp.body))

	var replaced models.Draft
	resp.decode(t, &replaced)
	assert.Equal(t, "B", replaced.Metadata.Title)
	assert.Equal(t, int64(4), replaced.NextCellID)

	replace.Cells[0].Service = "Service 1"
	assert.Equal(t, http.StatusBadRequest, app.do(t, http.MethodPut, draftPath(draft.ID, ""), replace).status)

	replace.Cells[0].ID = 0
	assert.Equal(t, http.StatusBadRequest, app.do(t, http.MethodPut, draftPath(draft.ID, ""), replace).status)

	title := "C"
	resp = app.do(t, http.MethodPatch, draftPath(draft.ID, "/metadata"), web.MetadataRequest{Title: &title})
	require.Equal(t, http.StatusOK, resp.status)

	var patched models.Draft
	resp.decode(t, &patched)
	assert.Equal(t, "C", patched.Metadata.Title)
	assert.Equal(t, "2.0.0", patched.Metadata.Version)

	resp = app.do(t, http.MethodPost, draftPath(draft.ID, "/reset"), nil)
	require.Equal(t, http.StatusOK, resp.status)

	var reset models.Draft
	resp.decode(t, &reset)
	assert.Empty(t, reset.Cells)
	assert.Equal(t, models.DefaultTitle, reset.Metadata.Title)

	assert.Equal(t, http.StatusNoContent, app.do(t, http.MethodDelete, draftPath(draft.ID, ""), nil).status)
	assert.Equal(t, http.StatusNoContent, app.do(t, http.MethodDelete, draftPath(draft.ID, ""), nil).status)
}

func TestAPIHandlers_Execution(t *testing.T) {
	t.Parallel()

	app := setupTestApp(t)
	draft := app.createDraft(t, "A", "1.0.0")

	var cells []models.Cell

	for range 2 {
		var cell models.Cell
		app.do(t, http.MethodPost, draftPath(draft.ID, "/cells"), nil).decode(t, &cell)
		cells = append(cells, cell)
	}

	t.Run("execute without storing", func(t *testing.T) {
		req := web.ExecuteCellRequest{
			FlowID: draft.ID,
			Cell:   web.CellRequest{ID: 77, Code: "print(1)", Server: "Server A", Service: "Service 2"},
		}

		resp := app.do(t, http.MethodPost, "/execute", req)
		require.Equal(t, http.StatusOK, resp.status, string(resp.body))

		var executed models.Cell
		resp.decode(t, &executed)
		assert.Equal(t, execution.MockOutput(77), *executed.Output)
	})

	t.Run("execution failure", func(t *testing.T) {
		app.executor.FailCell(cells[1].ID, "kernel died")

		resp := app.do(t, http.MethodPost, draftPath(draft.ID, "/execute"), nil)
		assert.Equal(t, http.StatusBadGateway, resp.status)
		assert.Contains(t, string(resp.body), "kernel died")

		var stored models.Draft
		app.do(t, http.MethodGet, draftPath(draft.ID, ""), nil).decode(t, &stored)
		assert.NotNil(t, stored.Cells[0].Output)
		assert.Nil(t, stored.Cells[1].Output)
	})
}

func TestAPIHandlers_CatalogAndHealth(t *testing.T) {
	t.Parallel()

	app := setupTestApp(t)

	var catalog models.Catalog
	app.do(t, http.MethodGet, "/catalog", nil).decode(t, &catalog)
	assert.Equal(t, models.DefaultCatalog(), catalog)

	resp := app.do(t, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, resp.status)

	var health map[string]any
	resp.decode(t, &health)
	assert.Equal(t, "healthy", health["status"])
}
