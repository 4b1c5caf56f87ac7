package entity

import (
	"time"

	"github.com/bivex/storekit-manager/internal/domain/valueobject"
)

// Transaction is a platform-issued record of one purchase attempt
type Transaction struct {
	ID                string
	OriginalID        string // set on restored transactions
	ProductIdentifier string
	Product           *Product // nil when the platform only reports the identifier
	State             valueobject.TransactionState
	Err               error
	UpdatedAt         time.Time
}

// NewTransaction creates a transaction for the given product in the given state
func NewTransaction(id string, product *Product, state valueobject.TransactionState) *Transaction {
	tx := &Transaction{
		ID:        id,
		Product:   product,
		State:     state,
		UpdatedAt: time.Now(),
	}
	if product != nil {
		tx.ProductIdentifier = product.Identifier
	}
	return tx
}

// IsTerminal returns true if the transaction must be finished
func (t *Transaction) IsTerminal() bool {
	return t.State.IsTerminal()
}

// IsSuccessful returns true if the transaction delivered the product
func (t *Transaction) IsSuccessful() bool {
	return t.State == valueobject.StatePurchased || t.State == valueobject.StateRestored
}

// IsFailed returns true if the transaction failed
func (t *Transaction) IsFailed() bool {
	return t.State == valueobject.StateFailed
}
