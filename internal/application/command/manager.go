package command

import (
	"github.com/google/uuid"

	"github.com/bivex/storekit-manager/internal/domain/entity"
)

// Manager is the subset of service.PurchaseManager used by commands
type Manager interface {
	RequestProducts(identifiers []string, handlers entity.CatalogHandlers) (uuid.UUID, error)
	RequestPaymentForIdentifier(identifier string) error
	RestoreTransactions() error
}
