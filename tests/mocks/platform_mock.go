package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/bivex/storekit-manager/internal/domain/entity"
	"github.com/bivex/storekit-manager/internal/domain/service"
)

// MockPlatform is a mock implementation of service.Platform. The registered
// event sink is kept in Sink so tests can deliver platform events.
type MockPlatform struct {
	mock.Mock
	Sink service.EventSink
}

// NewMockPlatform creates a new mock platform
func NewMockPlatform() *MockPlatform {
	return &MockPlatform{}
}

func (m *MockPlatform) QueryProducts(ctx context.Context, requestID uuid.UUID, identifiers []string) error {
	args := m.Called(ctx, requestID, identifiers)
	return args.Error(0)
}

func (m *MockPlatform) AddPayment(ctx context.Context, product *entity.Product) error {
	args := m.Called(ctx, product)
	return args.Error(0)
}

func (m *MockPlatform) RestoreCompletedTransactions(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockPlatform) FinishTransaction(ctx context.Context, tx *entity.Transaction) error {
	args := m.Called(ctx, tx)
	return args.Error(0)
}

func (m *MockPlatform) SetEventSink(sink service.EventSink) {
	m.Sink = sink
}

// Emit delivers events to the registered sink
func (m *MockPlatform) Emit(events ...service.Event) {
	for _, e := range events {
		m.Sink.HandleEvent(e)
	}
}
