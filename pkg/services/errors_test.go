package services

import (
	"errors"
	"testing"

	"github.com/dukex/flowforge/pkg/execution"
	"github.com/dukex/flowforge/pkg/models"
	"github.com/stretchr/testify/assert"
)

func TestErrorClassification(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		check func(error) bool
	}{
		{name: "draft not found", err: newFlowError("Op", 1, models.ErrDraftNotFound), check: IsNotFoundError},
		{name: "live version delete", err: newFlowError("Op", 1, models.ErrLiveVersionDelete), check: IsForbiddenError},
		{name: "invalid service", err: newFlowError("Op", 1, models.ErrInvalidService), check: IsValidationError},
		{name: "duplicate version", err: newFlowError("Op", 1, models.ErrDuplicateVersion), check: IsConflictError},
		{name: "executor failure", err: executionError("Op", 1, &execution.Error{CellID: 2, Message: "boom"}), check: IsExecutionError},
		{name: "storage failure", err: persistenceError("Op", 1, errors.New("disk full")), check: IsPersistenceError},
	}

	checks := []func(error) bool{
		IsNotFoundError, IsForbiddenError, IsValidationError, IsConflictError, IsExecutionError, IsPersistenceError,
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			matched := 0

			for _, check := range checks {
				if check(tt.err) {
					matched++
				}
			}

			assert.True(t, tt.check(tt.err))
			assert.Equal(t, 1, matched)
		})
	}
}

func TestFlowError_Message(t *testing.T) {
	assert.Equal(t, "PromoteVersion 7: live flow not found", newFlowError("PromoteVersion", 7, models.ErrLiveFlowNotFound).Error())
	assert.Equal(t, "ImportDraft: conflict", newFlowError("ImportDraft", 0, models.ErrConflict).Error())
}

func TestActorFromContext(t *testing.T) {
	assert.Empty(t, ActorFromContext(t.Context()))
	assert.Equal(t, "ada", ActorFromContext(WithActor(t.Context(), "ada")))
}
