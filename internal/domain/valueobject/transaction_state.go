package valueobject

import (
	"errors"
)

var (
	ErrInvalidTransactionState = errors.New("invalid transaction state")
)

// TransactionState is the platform-reported state of a payment transaction
type TransactionState string

const (
	StatePurchasing TransactionState = "purchasing"
	StatePurchased  TransactionState = "purchased"
	StateFailed     TransactionState = "failed"
	StateRestored   TransactionState = "restored"
	StateDeferred   TransactionState = "deferred"
)

// NewTransactionState creates a new TransactionState value object
func NewTransactionState(state string) (TransactionState, error) {
	s := TransactionState(state)
	switch s {
	case StatePurchasing, StatePurchased, StateFailed, StateRestored, StateDeferred:
		return s, nil
	default:
		return "", ErrInvalidTransactionState
	}
}

// String returns the string representation of the state
func (s TransactionState) String() string {
	return string(s)
}

// IsTerminal returns true for states that must be finished
func (s TransactionState) IsTerminal() bool {
	return s == StatePurchased || s == StateFailed || s == StateRestored
}

// IsPending returns true while the platform has not resolved the transaction
func (s TransactionState) IsPending() bool {
	return s == StatePurchasing || s == StateDeferred
}
