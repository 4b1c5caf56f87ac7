package mocks

import (
	"github.com/stretchr/testify/mock"

	"github.com/bivex/storekit-manager/internal/domain/entity"
)

// MockObserver is a mock implementation of service.Observer and service.DeferredObserver
type MockObserver struct {
	mock.Mock
}

// NewMockObserver creates a new mock observer
func NewMockObserver() *MockObserver {
	return &MockObserver{}
}

func (m *MockObserver) PurchaseCompleted(product *entity.Product, tx *entity.Transaction, success bool, err error) {
	m.Called(product, tx, success, err)
}

func (m *MockObserver) RestoredTransaction(tx *entity.Transaction) {
	m.Called(tx)
}

func (m *MockObserver) RestoreCompleted(success bool, err error) {
	m.Called(success, err)
}

func (m *MockObserver) PurchaseDeferred(product *entity.Product, tx *entity.Transaction) {
	m.Called(product, tx)
}

// MethodOrder returns the names of the observed calls in arrival order
func (m *MockObserver) MethodOrder() []string {
	names := make([]string, 0, len(m.Calls))
	for _, c := range m.Calls {
		names = append(names, c.Method)
	}
	return names
}
