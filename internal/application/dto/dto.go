package dto

import (
	"time"

	"github.com/bivex/storekit-manager/internal/domain/entity"
	"github.com/bivex/storekit-manager/internal/domain/service"
)

// ========== CATALOG DTOs ==========

// ProductResponse represents one purchasable product
type ProductResponse struct {
	Identifier     string `json:"identifier"`
	Title          string `json:"title"`
	Description    string `json:"description,omitempty"`
	Price          string `json:"price"`
	Currency       string `json:"currency"`
	LocalizedPrice string `json:"localized_price"`
}

// ProductsResponse represents the result of a catalog query
type ProductsResponse struct {
	Products           []ProductResponse `json:"products"`
	InvalidIdentifiers []string          `json:"invalid_identifiers"`
}

// ========== PAYMENT DTOs ==========

// PaymentRequest represents a payment request
type PaymentRequest struct {
	ProductID string `json:"product_id" binding:"required"`
}

// PaymentResponse represents an accepted payment submission
type PaymentResponse struct {
	ProductID string `json:"product_id"`
	Status    string `json:"status"`
}

// ========== RESTORE DTOs ==========

// RestoreResponse represents an accepted restore request
type RestoreResponse struct {
	Status string `json:"status"`
}

// RestoreSessionResponse represents one restore session
type RestoreSessionResponse struct {
	ID        string     `json:"id"`
	Outcome   string     `json:"outcome"`
	Restored  []string   `json:"restored_transaction_ids"`
	Error     string     `json:"error,omitempty"`
	StartedAt time.Time  `json:"started_at"`
	ClosedAt  *time.Time `json:"closed_at,omitempty"`
}

// StatusResponse represents the manager state
type StatusResponse struct {
	PendingCatalogRequests int                     `json:"pending_catalog_requests"`
	RestoreInProgress      bool                    `json:"restore_in_progress"`
	ActiveRestore          *RestoreSessionResponse `json:"active_restore,omitempty"`
	LastRestore            *RestoreSessionResponse `json:"last_restore,omitempty"`
	FinishedTransactions   int                     `json:"finished_transactions"`
}

const (
	StatusSubmitted = "submitted"
	StatusStarted   = "started"
)

// NewProductResponse maps a product to its response
func NewProductResponse(p *entity.Product) ProductResponse {
	return ProductResponse{
		Identifier:     p.Identifier,
		Title:          p.Title,
		Description:    p.Description,
		Price:          p.Price.Amount.StringFixed(2),
		Currency:       p.Price.Currency,
		LocalizedPrice: p.LocalizedPrice(),
	}
}

// NewProductsResponse maps a partitioned catalog response
func NewProductsResponse(products []*entity.Product, invalid []string) *ProductsResponse {
	resp := &ProductsResponse{
		Products:           make([]ProductResponse, 0, len(products)),
		InvalidIdentifiers: append([]string{}, invalid...),
	}
	for _, p := range products {
		resp.Products = append(resp.Products, NewProductResponse(p))
	}
	return resp
}

// NewStatusResponse maps a manager snapshot
func NewStatusResponse(s service.Snapshot) *StatusResponse {
	return &StatusResponse{
		PendingCatalogRequests: s.PendingCatalogRequests,
		RestoreInProgress:      s.RestoreInProgress,
		ActiveRestore:          newRestoreSessionResponse(s.ActiveRestore),
		LastRestore:            newRestoreSessionResponse(s.LastRestore),
		FinishedTransactions:   s.FinishedTransactions,
	}
}

func newRestoreSessionResponse(session *entity.RestoreSession) *RestoreSessionResponse {
	if session == nil {
		return nil
	}
	resp := &RestoreSessionResponse{
		ID:        session.ID.String(),
		Outcome:   string(session.Outcome),
		Restored:  make([]string, 0, len(session.Transactions)),
		StartedAt: session.StartedAt,
		ClosedAt:  session.ClosedAt,
	}
	for _, tx := range session.Transactions {
		resp.Restored = append(resp.Restored, tx.ID)
	}
	if session.Err != nil {
		resp.Error = session.Err.Error()
	}
	return resp
}
