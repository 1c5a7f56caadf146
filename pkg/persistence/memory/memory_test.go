package memory

import (
	"testing"

	"github.com/dukex/flowforge/pkg/persistence"
	"github.com/dukex/flowforge/pkg/persistence/persistencetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryPersistence(t *testing.T) {
	persistencetest.Run(t, func(_ *testing.T) persistence.Persistence {
		return NewPersistence()
	})
}

func TestMemoryPersistence_ReturnsCopies(t *testing.T) {
	p := NewPersistence()
	ctx := t.Context()

	draft := persistencetest.SampleDraft(1)
	require.NoError(t, p.SaveDraft(ctx, &draft))

	draft.Cells[0].Code = "mutated after save"

	loaded, err := p.DraftByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "extract()", loaded.Cells[0].Code)

	loaded.Cells[0].Code = "mutated after load"

	again, err := p.DraftByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "extract()", again.Cells[0].Code)
}
