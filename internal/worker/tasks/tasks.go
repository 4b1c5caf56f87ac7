package tasks

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"github.com/bivex/storekit-manager/internal/domain/entity"
	domainErrors "github.com/bivex/storekit-manager/internal/domain/errors"
)

// Task names
const (
	TypePurchaseCompleted  = "purchase:completed"
	TypePurchaseDeferred   = "purchase:deferred"
	TypeRestoreTransaction = "restore:transaction"
	TypeRestoreCompleted   = "restore:completed"
)

// PurchaseCompletedPayload is the payload for a terminal purchase outcome
type PurchaseCompletedPayload struct {
	ProductID     string    `json:"product_id"`
	TransactionID string    `json:"transaction_id,omitempty"`
	State         string    `json:"state,omitempty"`
	Success       bool      `json:"success"`
	ErrorCode     string    `json:"error_code,omitempty"`
	ErrorMessage  string    `json:"error_message,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// PurchaseDeferredPayload is the payload for a purchase awaiting approval
type PurchaseDeferredPayload struct {
	ProductID     string    `json:"product_id"`
	TransactionID string    `json:"transaction_id"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// RestoreTransactionPayload is the payload for one restored transaction
type RestoreTransactionPayload struct {
	TransactionID         string    `json:"transaction_id"`
	OriginalTransactionID string    `json:"original_transaction_id,omitempty"`
	ProductID             string    `json:"product_id"`
	OccurredAt            time.Time `json:"occurred_at"`
}

// RestoreCompletedPayload is the payload for the end of a restore session
type RestoreCompletedPayload struct {
	Success      bool      `json:"success"`
	ErrorCode    string    `json:"error_code,omitempty"`
	ErrorMessage string    `json:"error_message,omitempty"`
	OccurredAt   time.Time `json:"occurred_at"`
}

// NewPurchaseCompletedTask creates a purchase:completed task
func NewPurchaseCompletedTask(product *entity.Product, tx *entity.Transaction, success bool, err error) (*asynq.Task, error) {
	p := PurchaseCompletedPayload{Success: success, OccurredAt: time.Now().UTC()}
	if product != nil {
		p.ProductID = product.Identifier
	}
	if tx != nil {
		p.TransactionID = tx.ID
		p.State = tx.State.String()
		if p.ProductID == "" {
			p.ProductID = tx.ProductIdentifier
		}
	}
	p.ErrorCode, p.ErrorMessage = describeError(err)
	return newTask(TypePurchaseCompleted, p)
}

// NewPurchaseDeferredTask creates a purchase:deferred task
func NewPurchaseDeferredTask(product *entity.Product, tx *entity.Transaction) (*asynq.Task, error) {
	p := PurchaseDeferredPayload{TransactionID: tx.ID, ProductID: tx.ProductIdentifier, OccurredAt: time.Now().UTC()}
	if product != nil {
		p.ProductID = product.Identifier
	}
	return newTask(TypePurchaseDeferred, p)
}

// NewRestoreTransactionTask creates a restore:transaction task
func NewRestoreTransactionTask(tx *entity.Transaction) (*asynq.Task, error) {
	return newTask(TypeRestoreTransaction, RestoreTransactionPayload{
		TransactionID:         tx.ID,
		OriginalTransactionID: tx.OriginalID,
		ProductID:             tx.ProductIdentifier,
		OccurredAt:            time.Now().UTC(),
	})
}

// NewRestoreCompletedTask creates a restore:completed task
func NewRestoreCompletedTask(success bool, err error) (*asynq.Task, error) {
	p := RestoreCompletedPayload{Success: success, OccurredAt: time.Now().UTC()}
	p.ErrorCode, p.ErrorMessage = describeError(err)
	return newTask(TypeRestoreCompleted, p)
}

func newTask(typename string, payload interface{}) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s payload: %w", typename, err)
	}
	return asynq.NewTask(typename, data), nil
}

func describeError(err error) (code, message string) {
	if err == nil {
		return "", ""
	}
	var pe *domainErrors.PlatformError
	if errors.As(err, &pe) {
		return string(pe.Code), pe.Message
	}
	return string(domainErrors.CodeUnknown), err.Error()
}
