package command

import (
	"context"

	"github.com/bivex/storekit-manager/internal/application/dto"
)

// PurchaseCommand submits a payment for a catalog product. The outcome is
// delivered to the manager's observers, not to the caller.
type PurchaseCommand struct {
	manager Manager
}

// NewPurchaseCommand creates a new purchase command
func NewPurchaseCommand(manager Manager) *PurchaseCommand {
	return &PurchaseCommand{manager: manager}
}

// Execute executes the purchase command
func (c *PurchaseCommand) Execute(ctx context.Context, req *dto.PaymentRequest) (*dto.PaymentResponse, error) {
	if err := c.manager.RequestPaymentForIdentifier(req.ProductID); err != nil {
		return nil, err
	}
	return &dto.PaymentResponse{ProductID: req.ProductID, Status: dto.StatusSubmitted}, nil
}
