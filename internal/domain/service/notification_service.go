package service

import (
	"go.uber.org/zap"

	"github.com/bivex/storekit-manager/internal/domain/entity"
	domainErrors "github.com/bivex/storekit-manager/internal/domain/errors"
)

// NotificationService is an Observer that records purchase and restore
// notifications in the structured log
type NotificationService struct {
	logger *zap.Logger
}

// NewNotificationService creates a new notification service
func NewNotificationService(logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		logger: logger.With(zap.String("component", "notifications")),
	}
}

// PurchaseCompleted logs a terminal purchase outcome
func (s *NotificationService) PurchaseCompleted(product *entity.Product, tx *entity.Transaction, success bool, err error) {
	fields := []zap.Field{
		zap.String("product_id", productID(product)),
		zap.Bool("success", success),
	}
	if tx != nil {
		fields = append(fields, zap.String("transaction_id", tx.ID), zap.String("state", tx.State.String()))
	}

	switch {
	case success:
		s.logger.Info("[NOTIFICATION] Purchase completed", fields...)
	case domainErrors.IsCancelled(err):
		s.logger.Info("[NOTIFICATION] Purchase cancelled", fields...)
	default:
		s.logger.Warn("[NOTIFICATION] Purchase failed", append(fields, zap.Error(err))...)
	}
}

// RestoredTransaction logs one restored transaction
func (s *NotificationService) RestoredTransaction(tx *entity.Transaction) {
	s.logger.Info("[NOTIFICATION] Transaction restored",
		zap.String("transaction_id", tx.ID),
		zap.String("original_transaction_id", tx.OriginalID),
		zap.String("product_id", tx.ProductIdentifier),
	)
}

// RestoreCompleted logs the end of a restore session
func (s *NotificationService) RestoreCompleted(success bool, err error) {
	if success {
		s.logger.Info("[NOTIFICATION] Restore completed")
		return
	}
	s.logger.Warn("[NOTIFICATION] Restore failed", zap.Error(err))
}

// PurchaseDeferred logs a transaction awaiting approval
func (s *NotificationService) PurchaseDeferred(product *entity.Product, tx *entity.Transaction) {
	s.logger.Info("[NOTIFICATION] Purchase deferred",
		zap.String("product_id", productID(product)),
		zap.String("transaction_id", tx.ID),
	)
}

func productID(product *entity.Product) string {
	if product == nil {
		return ""
	}
	return product.Identifier
}
