package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextVersionLabel(t *testing.T) {
	tests := []struct {
		name     string
		labels   []string
		expected string
	}{
		{name: "no versions", labels: nil, expected: "1.0.0"},
		{name: "single", labels: []string{"1.0.0"}, expected: "1.0.1"},
		{name: "highest wins", labels: []string{"1.0.0", "2.3.1", "1.9.0"}, expected: "2.3.2"},
		{name: "prefixed label", labels: []string{"v1.4.0"}, expected: "1.4.1"},
		{name: "free-form labels only", labels: []string{"beta", "nightly"}, expected: "1.0.0"},
		{name: "prerelease releases", labels: []string{"1.0.0-rc", "beta"}, expected: "1.0.0"},
		{name: "prerelease below highest", labels: []string{"1.0.0", "1.0.2", "1.0.1-dirty"}, expected: "1.0.3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NextVersionLabel(tt.labels))
		})
	}
}

func TestSuggestNextVersion(t *testing.T) {
	f := newFixture(t)
	ctx := t.Context()

	flow, err := f.lifecycle.PublishNew(ctx, createDraft(t, f.lifecycle, "A", "1.4.0").ID)
	require.NoError(t, err)

	label, err := f.lifecycle.SuggestNextVersion(ctx, flow.ID)
	require.NoError(t, err)
	assert.Equal(t, "1.4.1", label)

	_, err = f.lifecycle.SuggestNextVersion(ctx, flow.ID+1)
	assert.True(t, IsNotFoundError(err))
}
