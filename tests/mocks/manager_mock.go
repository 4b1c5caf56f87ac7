package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/bivex/storekit-manager/internal/domain/entity"
	"github.com/bivex/storekit-manager/internal/domain/service"
)

// MockManager is a mock of the purchase manager surface used by the application layer
type MockManager struct {
	mock.Mock
}

// NewMockManager creates a new mock manager
func NewMockManager() *MockManager {
	return &MockManager{}
}

func (m *MockManager) RequestProducts(identifiers []string, handlers entity.CatalogHandlers) (uuid.UUID, error) {
	args := m.Called(identifiers, handlers)
	return args.Get(0).(uuid.UUID), args.Error(1)
}

func (m *MockManager) RequestPaymentForIdentifier(identifier string) error {
	args := m.Called(identifier)
	return args.Error(0)
}

func (m *MockManager) RestoreTransactions() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockManager) Snapshot(ctx context.Context) (service.Snapshot, error) {
	args := m.Called(ctx)
	return args.Get(0).(service.Snapshot), args.Error(1)
}
