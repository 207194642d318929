package mocks

import (
	"context"

	"github.com/dukex/subflow/pkg/eventbus"
	"github.com/dukex/subflow/pkg/events"
	"github.com/dukex/subflow/pkg/models"
	"github.com/stretchr/testify/mock"
)

// MockEventBus is a mock implementation of eventbus.EventBus interface.
type MockEventBus struct {
	mock.Mock
}

func (m *MockEventBus) Publish(ctx context.Context, key string, event eventbus.Event) error {
	args := m.Called(ctx, key, event)

	return args.Error(0)
}

func (m *MockEventBus) Handle(eventType events.EventType, handler eventbus.EventHandler) error {
	args := m.Called(eventType, handler)

	return args.Error(0)
}

func (m *MockEventBus) Subscribe(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}

func (m *MockEventBus) Close() error {
	args := m.Called()

	return args.Error(0)
}

func (m *MockEventBus) GenerateID() string {
	args := m.Called()

	return args.String(0)
}

// MockRunReporter is a mock implementation of eventbus.RunReporter interface.
type MockRunReporter struct {
	mock.Mock
}

func (m *MockRunReporter) Start(ctx context.Context, runRef string) error {
	args := m.Called(ctx, runRef)

	return args.Error(0)
}

func (m *MockRunReporter) Complete(ctx context.Context, runRef, content string, outputs map[string]any) error {
	args := m.Called(ctx, runRef, content, outputs)

	return args.Error(0)
}

func (m *MockRunReporter) Fail(ctx context.Context, runRef, message string) error {
	args := m.Called(ctx, runRef, message)

	return args.Error(0)
}

// MockProcessor is a mock implementation of subflow.Processor interface.
type MockProcessor struct {
	mock.Mock
}

func (m *MockProcessor) ProcessMessage(ctx context.Context, message *models.Message) error {
	args := m.Called(ctx, message)

	return args.Error(0)
}
