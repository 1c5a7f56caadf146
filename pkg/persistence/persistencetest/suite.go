// Package persistencetest holds the behaviour every persistence backend must share.
package persistencetest

import (
	"context"
	"testing"
	"time"

	"github.com/dukex/flowforge/pkg/models"
	"github.com/dukex/flowforge/pkg/persistence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Factory returns a fresh, empty backend for one subtest.
type Factory func(t *testing.T) persistence.Persistence

// Run exercises the persistence.Persistence contract against the backend built by newBackend.
func Run(t *testing.T, newBackend Factory) {
	t.Helper()

	t.Run("draft round trip", func(t *testing.T) {
		p := newBackend(t)
		ctx := t.Context()

		draft := SampleDraft(100)
		require.NoError(t, p.SaveDraft(ctx, &draft))

		loaded, err := p.DraftByID(ctx, 100)
		require.NoError(t, err)
		require.NotNil(t, loaded)

		assert.Equal(t, draft.ID, loaded.ID)
		assert.Equal(t, draft.Metadata, loaded.Metadata)
		assert.Equal(t, draft.Cells, loaded.Cells)
		assert.Equal(t, draft.NextCellID, loaded.NextCellID)
		assert.WithinDuration(t, draft.CreatedAt, loaded.CreatedAt, time.Millisecond)
	})

	t.Run("missing draft", func(t *testing.T) {
		p := newBackend(t)

		loaded, err := p.DraftByID(t.Context(), 404)
		require.NoError(t, err)
		assert.Nil(t, loaded)
	})

	t.Run("drafts are listed by id", func(t *testing.T) {
		p := newBackend(t)
		ctx := t.Context()

		for _, id := range []int64{30, 10, 20} {
			draft := SampleDraft(id)
			require.NoError(t, p.SaveDraft(ctx, &draft))
		}

		drafts, err := p.Drafts(ctx)
		require.NoError(t, err)
		require.Len(t, drafts, 3)
		assert.Equal(t, []int64{10, 20, 30}, []int64{drafts[0].ID, drafts[1].ID, drafts[2].ID})
	})

	t.Run("save overwrites draft", func(t *testing.T) {
		p := newBackend(t)
		ctx := t.Context()

		draft := SampleDraft(7)
		require.NoError(t, p.SaveDraft(ctx, &draft))

		draft.Metadata.Title = "Second"
		draft.Cells = draft.Cells[:1]
		require.NoError(t, p.SaveDraft(ctx, &draft))

		loaded, err := p.DraftByID(ctx, 7)
		require.NoError(t, err)
		assert.Equal(t, "Second", loaded.Metadata.Title)
		assert.Len(t, loaded.Cells, 1)
	})

	t.Run("delete draft is idempotent", func(t *testing.T) {
		p := newBackend(t)
		ctx := t.Context()

		draft := SampleDraft(5)
		require.NoError(t, p.SaveDraft(ctx, &draft))

		require.NoError(t, p.DeleteDraft(ctx, 5))
		require.NoError(t, p.DeleteDraft(ctx, 5))

		loaded, err := p.DraftByID(ctx, 5)
		require.NoError(t, err)
		assert.Nil(t, loaded)
	})

	t.Run("live flow round trip", func(t *testing.T) {
		p := newBackend(t)
		ctx := t.Context()

		flow := SampleLiveFlow(200)
		require.NoError(t, p.SaveLiveFlow(ctx, &flow))

		loaded, err := p.LiveFlowByID(ctx, 200)
		require.NoError(t, err)
		require.NotNil(t, loaded)

		assert.Equal(t, flow.LiveVersion, loaded.LiveVersion)
		assert.Equal(t, flow.Revision, loaded.Revision)
		assert.Equal(t, flow.Labels(), loaded.Labels())
		assert.Equal(t, flow.Versions[1].Cells, loaded.Versions[1].Cells)
		assert.Equal(t, flow.Versions[0].ID, loaded.Versions[0].ID)
	})

	t.Run("save live flow drops removed versions", func(t *testing.T) {
		p := newBackend(t)
		ctx := t.Context()

		flow := SampleLiveFlow(300)
		require.NoError(t, p.SaveLiveFlow(ctx, &flow))

		trimmed, err := flow.DeleteVersion(flow.Versions[1].ID)
		require.NoError(t, err)
		require.NoError(t, p.SaveLiveFlow(ctx, &trimmed))

		loaded, err := p.LiveFlowByID(ctx, 300)
		require.NoError(t, err)
		assert.Equal(t, []string{"1.0.0"}, loaded.Labels())
	})

	t.Run("live flows list and delete", func(t *testing.T) {
		p := newBackend(t)
		ctx := t.Context()

		first, second := SampleLiveFlow(2), SampleLiveFlow(1)
		require.NoError(t, p.SaveLiveFlow(ctx, &first))
		require.NoError(t, p.SaveLiveFlow(ctx, &second))

		flows, err := p.LiveFlows(ctx)
		require.NoError(t, err)
		require.Len(t, flows, 2)
		assert.Equal(t, int64(1), flows[0].ID)

		require.NoError(t, p.DeleteLiveFlow(ctx, 1))
		require.NoError(t, p.DeleteLiveFlow(ctx, 1))

		gone, err := p.LiveFlowByID(ctx, 1)
		require.NoError(t, err)
		assert.Nil(t, gone)
	})

	t.Run("atomic publish", func(t *testing.T) {
		p := newBackend(t)

		publisher, ok := p.(persistence.AtomicPublisher)
		if !ok {
			t.Skip("backend does not publish atomically")
		}

		ctx := t.Context()

		draft := SampleDraft(9)
		require.NoError(t, p.SaveDraft(ctx, &draft))

		flow := models.NewLiveFlow(10, draft.Snapshot(11, draft.CreatedAt), draft.CreatedAt)
		require.NoError(t, publisher.PublishDraft(ctx, &flow, draft.ID))

		gone, err := p.DraftByID(ctx, draft.ID)
		require.NoError(t, err)
		assert.Nil(t, gone)

		loaded, err := p.LiveFlowByID(ctx, 10)
		require.NoError(t, err)
		require.NotNil(t, loaded)
		assert.Equal(t, "1.0.0", loaded.LiveVersion)
	})

	t.Run("health check", func(t *testing.T) {
		p := newBackend(t)

		assert.NoError(t, p.HealthCheck(context.Background()))
	})
}

// SampleDraft returns a draft with two cells, one of them carrying output.
func SampleDraft(id int64) models.Draft {
	now := time.Now().UTC().Truncate(time.Millisecond)
	output := "Executed cell 2\nOutput: Success"

	return models.Draft{
		ID: id,
		Metadata: models.FlowMetadata{
			Title:       "Nightly load",
			Author:      "ada",
			Version:     "1.0.0",
			Description: "loads the warehouse",
		},
		Cells: []models.Cell{
			{ID: 1, Code: "extract()", Dependencies: "", Server: "Server A", Service: "Service 1"},
			{ID: 2, Code: "load()", Dependencies: "cell 1", Server: "Server B", Service: "Service 5", Output: &output},
		},
		NextCellID: 3,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// SampleLiveFlow returns a live flow with versions 1.0.0 (live) and 1.1.0.
func SampleLiveFlow(id int64) models.LiveFlow {
	draft := SampleDraft(id + 1000)
	now := draft.CreatedAt

	flow := models.NewLiveFlow(id, draft.Snapshot(id*10+1, now), now)

	draft.Metadata.Version = "1.1.0"
	draft.Cells[0].Code = "extract(v2)"

	flow, err := flow.AppendVersion(draft.Snapshot(id*10+2, now))
	if err != nil {
		panic(err)
	}

	flow.UpdatedAt = now

	return flow
}
