package mocks

import (
	"context"

	"github.com/dukex/subflow/pkg/models"
	"github.com/dukex/subflow/pkg/persistence"
	"github.com/stretchr/testify/mock"
)

// MockWorkflowRepository is a mock implementation of persistence.WorkflowRepository interface.
type MockWorkflowRepository struct {
	mock.Mock
}

func (m *MockWorkflowRepository) GetByID(ctx context.Context, id string) (*models.Workflow, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.Workflow), args.Error(1)
}

func (m *MockWorkflowRepository) Save(ctx context.Context, workflow *models.Workflow) error {
	args := m.Called(ctx, workflow)

	return args.Error(0)
}

// MockRunRepository is a mock implementation of persistence.RunRepository interface.
type MockRunRepository struct {
	mock.Mock
}

func (m *MockRunRepository) Create(ctx context.Context, run *models.Run) error {
	args := m.Called(ctx, run)

	return args.Error(0)
}

func (m *MockRunRepository) GetByID(ctx context.Context, id string) (*models.Run, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.Run), args.Error(1)
}

func (m *MockRunRepository) Save(ctx context.Context, run *models.Run) error {
	args := m.Called(ctx, run)

	return args.Error(0)
}

func (m *MockRunRepository) GetByIdempotencyKey(ctx context.Context, key string) (*models.Run, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.Run), args.Error(1)
}

// MockMessageRepository is a mock implementation of persistence.MessageRepository interface.
type MockMessageRepository struct {
	mock.Mock
}

func (m *MockMessageRepository) Create(ctx context.Context, message *models.Message) error {
	args := m.Called(ctx, message)

	return args.Error(0)
}

func (m *MockMessageRepository) GetByRun(ctx context.Context, runID string, role models.MessageRole) ([]*models.Message, error) {
	args := m.Called(ctx, runID, role)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.Message), args.Error(1)
}

// MockPersistence is a mock implementation of persistence.Persistence interface.
type MockPersistence struct {
	mock.Mock

	Workflows *MockWorkflowRepository
	Runs      *MockRunRepository
	Messages  *MockMessageRepository
}

func NewMockPersistence() *MockPersistence {
	return &MockPersistence{
		Workflows: &MockWorkflowRepository{},
		Runs:      &MockRunRepository{},
		Messages:  &MockMessageRepository{},
	}
}

func (m *MockPersistence) WorkflowRepository() persistence.WorkflowRepository {
	return m.Workflows
}

func (m *MockPersistence) RunRepository() persistence.RunRepository {
	return m.Runs
}

func (m *MockPersistence) MessageRepository() persistence.MessageRepository {
	return m.Messages
}

func (m *MockPersistence) HealthCheck(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}

func (m *MockPersistence) Close(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}
