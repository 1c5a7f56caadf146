package mocks

import (
	"context"

	"github.com/dukex/flowforge/pkg/models"
	"github.com/stretchr/testify/mock"
)

// MockPersistence is a mock implementation of persistence.Persistence interface.
type MockPersistence struct {
	mock.Mock
}

func (m *MockPersistence) Drafts(ctx context.Context) ([]*models.Draft, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.Draft), args.Error(1)
}

func (m *MockPersistence) DraftByID(ctx context.Context, id int64) (*models.Draft, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.Draft), args.Error(1)
}

func (m *MockPersistence) SaveDraft(ctx context.Context, draft *models.Draft) error {
	args := m.Called(ctx, draft)

	return args.Error(0)
}

func (m *MockPersistence) DeleteDraft(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)

	return args.Error(0)
}

func (m *MockPersistence) LiveFlows(ctx context.Context) ([]*models.LiveFlow, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.LiveFlow), args.Error(1)
}

func (m *MockPersistence) LiveFlowByID(ctx context.Context, id int64) (*models.LiveFlow, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.LiveFlow), args.Error(1)
}

func (m *MockPersistence) SaveLiveFlow(ctx context.Context, flow *models.LiveFlow) error {
	args := m.Called(ctx, flow)

	return args.Error(0)
}

func (m *MockPersistence) DeleteLiveFlow(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)

	return args.Error(0)
}

func (m *MockPersistence) HealthCheck(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}

func (m *MockPersistence) Close(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}
