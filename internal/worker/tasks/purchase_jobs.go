package tasks

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"github.com/bivex/storekit-manager/internal/domain/entity"
	domainErrors "github.com/bivex/storekit-manager/internal/domain/errors"
	"github.com/bivex/storekit-manager/internal/domain/service"
	"github.com/bivex/storekit-manager/internal/domain/valueobject"
)

// Notifier receives the decoded notifications
type Notifier interface {
	service.Observer
	service.DeferredObserver
}

// PurchaseJobHandler replays queued purchase notifications into a Notifier
type PurchaseJobHandler struct {
	notifier Notifier
	logger   *zap.Logger
}

// NewPurchaseJobHandler creates a new purchase job handler
func NewPurchaseJobHandler(notifier Notifier, logger *zap.Logger) *PurchaseJobHandler {
	return &PurchaseJobHandler{
		notifier: notifier,
		logger:   logger.With(zap.String("component", "purchase_jobs")),
	}
}

// RegisterHandlers registers all task handlers with the server mux.
func RegisterHandlers(mux *asynq.ServeMux, h *PurchaseJobHandler) {
	mux.HandleFunc(TypePurchaseCompleted, h.HandlePurchaseCompleted)
	mux.HandleFunc(TypePurchaseDeferred, h.HandlePurchaseDeferred)
	mux.HandleFunc(TypeRestoreTransaction, h.HandleRestoreTransaction)
	mux.HandleFunc(TypeRestoreCompleted, h.HandleRestoreCompleted)
}

// HandlePurchaseCompleted handles purchase:completed
func (h *PurchaseJobHandler) HandlePurchaseCompleted(ctx context.Context, t *asynq.Task) error {
	var p PurchaseCompletedPayload
	if err := decode(t, &p); err != nil {
		return err
	}

	product := &entity.Product{Identifier: p.ProductID}
	var tx *entity.Transaction
	if p.TransactionID != "" {
		state, err := valueobject.NewTransactionState(p.State)
		if err != nil {
			return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
		}
		tx = entity.NewTransaction(p.TransactionID, product, state)
		tx.UpdatedAt = p.OccurredAt
	}

	h.notifier.PurchaseCompleted(product, tx, p.Success, rebuildError(p.ErrorCode, p.ErrorMessage))
	return nil
}

// HandlePurchaseDeferred handles purchase:deferred
func (h *PurchaseJobHandler) HandlePurchaseDeferred(ctx context.Context, t *asynq.Task) error {
	var p PurchaseDeferredPayload
	if err := decode(t, &p); err != nil {
		return err
	}

	product := &entity.Product{Identifier: p.ProductID}
	tx := entity.NewTransaction(p.TransactionID, product, valueobject.StateDeferred)
	tx.UpdatedAt = p.OccurredAt

	h.notifier.PurchaseDeferred(product, tx)
	return nil
}

// HandleRestoreTransaction handles restore:transaction
func (h *PurchaseJobHandler) HandleRestoreTransaction(ctx context.Context, t *asynq.Task) error {
	var p RestoreTransactionPayload
	if err := decode(t, &p); err != nil {
		return err
	}

	tx := entity.NewTransaction(p.TransactionID, &entity.Product{Identifier: p.ProductID}, valueobject.StateRestored)
	tx.OriginalID = p.OriginalTransactionID
	tx.UpdatedAt = p.OccurredAt

	h.notifier.RestoredTransaction(tx)
	return nil
}

// HandleRestoreCompleted handles restore:completed
func (h *PurchaseJobHandler) HandleRestoreCompleted(ctx context.Context, t *asynq.Task) error {
	var p RestoreCompletedPayload
	if err := decode(t, &p); err != nil {
		return err
	}

	h.notifier.RestoreCompleted(p.Success, rebuildError(p.ErrorCode, p.ErrorMessage))
	return nil
}

// decode unmarshals the payload; malformed payloads are never retried
func decode(t *asynq.Task, v interface{}) error {
	if err := json.Unmarshal(t.Payload(), v); err != nil {
		return fmt.Errorf("%s: json.Unmarshal failed: %v: %w", t.Type(), err, asynq.SkipRetry)
	}
	return nil
}

func rebuildError(code, message string) error {
	if code == "" && message == "" {
		return nil
	}
	return domainErrors.NewPlatformError(domainErrors.PlatformErrorCode(code), message)
}
