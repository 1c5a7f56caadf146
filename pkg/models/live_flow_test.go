package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func versionWithLabel(id int64, label string) Version {
	return Version{
		ID:          id,
		Metadata:    FlowMetadata{Title: "A", Version: label},
		Cells:       []Cell{},
		PublishedAt: time.Now().UTC(),
	}
}

func TestNewLiveFlow(t *testing.T) {
	live := NewLiveFlow(10, versionWithLabel(11, "1.0.0"), time.Now().UTC())

	assert.Equal(t, int64(10), live.ID)
	assert.Equal(t, "1.0.0", live.LiveVersion)
	assert.Equal(t, []string{"1.0.0"}, live.Labels())
	assert.Equal(t, int64(1), live.Revision)
	assert.Equal(t, "A", live.Title())
}

func TestLiveFlow_AppendVersion(t *testing.T) {
	live := NewLiveFlow(10, versionWithLabel(11, "1.0.0"), time.Now().UTC())

	updated, err := live.AppendVersion(versionWithLabel(12, "1.1.0"))
	require.NoError(t, err)

	assert.Equal(t, []string{"1.0.0", "1.1.0"}, updated.Labels())
	assert.Equal(t, "1.0.0", updated.LiveVersion)
	assert.Equal(t, live.Revision+1, updated.Revision)
	assert.Len(t, live.Versions, 1)

	_, err = updated.AppendVersion(versionWithLabel(13, "1.1.0"))
	require.ErrorIs(t, err, ErrDuplicateVersion)
	require.ErrorIs(t, err, ErrConflict)
}

func TestLiveFlow_Promote(t *testing.T) {
	live := NewLiveFlow(10, versionWithLabel(11, "1.0.0"), time.Now().UTC())
	live, err := live.AppendVersion(versionWithLabel(12, "1.1.0"))
	require.NoError(t, err)

	t.Run("to another version", func(t *testing.T) {
		promoted, err := live.Promote("1.1.0")
		require.NoError(t, err)
		assert.Equal(t, "1.1.0", promoted.LiveVersion)
		assert.Equal(t, live.Revision+1, promoted.Revision)
	})

	t.Run("idempotent", func(t *testing.T) {
		same, err := live.Promote("1.0.0")
		require.NoError(t, err)
		assert.Equal(t, live, same)
	})

	t.Run("unknown label", func(t *testing.T) {
		unchanged, err := live.Promote("9.9.9")
		require.ErrorIs(t, err, ErrVersionNotFound)
		require.ErrorIs(t, err, ErrNotFound)
		assert.Equal(t, live, unchanged)
	})
}

func TestLiveFlow_DeleteVersion(t *testing.T) {
	live := NewLiveFlow(10, versionWithLabel(11, "1.0.0"), time.Now().UTC())

	t.Run("last version", func(t *testing.T) {
		unchanged, err := live.DeleteVersion(11)
		require.ErrorIs(t, err, ErrLastVersionDelete)
		require.ErrorIs(t, err, ErrForbidden)
		assert.Equal(t, live, unchanged)
	})

	withTwo, err := live.AppendVersion(versionWithLabel(12, "1.1.0"))
	require.NoError(t, err)

	t.Run("live version", func(t *testing.T) {
		unchanged, err := withTwo.DeleteVersion(11)
		require.ErrorIs(t, err, ErrLiveVersionDelete)
		require.ErrorIs(t, err, ErrForbidden)
		assert.Equal(t, withTwo, unchanged)
	})

	t.Run("unknown version", func(t *testing.T) {
		_, err := withTwo.DeleteVersion(99)
		require.ErrorIs(t, err, ErrVersionNotFound)
	})

	t.Run("non-live version", func(t *testing.T) {
		updated, err := withTwo.DeleteVersion(12)
		require.NoError(t, err)
		assert.Equal(t, []string{"1.0.0"}, updated.Labels())
		assert.Len(t, withTwo.Versions, 2)
	})
}

func TestLiveFlow_CheckRevision(t *testing.T) {
	live := NewLiveFlow(10, versionWithLabel(11, "1.0.0"), time.Now().UTC())

	current := live.Revision
	stale := live.Revision - 1

	require.NoError(t, live.CheckRevision(nil))
	require.NoError(t, live.CheckRevision(&current))
	require.ErrorIs(t, live.CheckRevision(&stale), ErrRevisionMismatch)
}

func TestVersion_Fork(t *testing.T) {
	version := Version{
		ID: 11,
		Metadata: FlowMetadata{
			Title:       "Pipeline",
			Author:      "ada",
			Version:     "2.3.0",
			Description: "nightly load",
		},
		Cells: []Cell{
			{ID: 3, Code: "a", Server: "Server B", Service: "Service 4"},
			{ID: 7, Code: "b", Server: "Server C", Service: "Service 8"},
		},
	}

	draft := version.Fork(50, time.Now().UTC())

	assert.Equal(t, int64(50), draft.ID)
	assert.Equal(t, "Fork of Pipeline", draft.Metadata.Title)
	assert.Equal(t, InitialVersion, draft.Metadata.Version)
	assert.Equal(t, "ada", draft.Metadata.Author)
	assert.Equal(t, "nightly load", draft.Metadata.Description)
	assert.Equal(t, version.Cells, draft.Cells)
	assert.Equal(t, int64(8), draft.NextCellID)

	draft.Cells[0].Code = "changed"
	assert.Equal(t, "a", version.Cells[0].Code)
}

func TestLifecycleScenario(t *testing.T) {
	now := time.Now().UTC()
	first := NewDraft(1, FlowMetadata{Title: "A", Version: "1.0.0"}, now)

	live := NewLiveFlow(2, first.Snapshot(3, now), now)
	assert.Equal(t, "1.0.0", live.LiveVersion)
	assert.Equal(t, []string{"1.0.0"}, live.Labels())

	second := NewDraft(4, FlowMetadata{Title: "A", Version: "1.1.0"}, now)

	live, err := live.AppendVersion(second.Snapshot(5, now))
	require.NoError(t, err)
	assert.Len(t, live.Versions, 2)
	assert.Equal(t, "1.0.0", live.LiveVersion)

	live, err = live.Promote("1.1.0")
	require.NoError(t, err)
	assert.Equal(t, "1.1.0", live.LiveVersion)

	live, err = live.DeleteVersion(3)
	require.NoError(t, err)
	assert.Equal(t, []string{"1.1.0"}, live.Labels())

	_, err = live.DeleteVersion(5)
	require.ErrorIs(t, err, ErrForbidden)
}
