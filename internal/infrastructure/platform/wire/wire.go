// Package wire holds the JSON shapes exchanged with a remote payment
// platform gateway and their conversion to domain values.
package wire

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bivex/storekit-manager/internal/domain/entity"
	domainErrors "github.com/bivex/storekit-manager/internal/domain/errors"
	"github.com/bivex/storekit-manager/internal/domain/service"
	"github.com/bivex/storekit-manager/internal/domain/valueobject"
)

// Event types carried in Envelope.Type
const (
	TypeProductsResponse    = "products_response"
	TypeProductsFailed      = "products_failed"
	TypeTransactionsUpdated = "transactions_updated"
	TypeRestoreCompleted    = "restore_completed"
	TypeRestoreFailed       = "restore_failed"
)

// Product is the wire form of a catalog product
type Product struct {
	Identifier  string `json:"identifier"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	Price       string `json:"price"`
	Currency    string `json:"currency"`
	Locale      string `json:"locale,omitempty"`
}

// Transaction is the wire form of a payment transaction
type Transaction struct {
	ID         string     `json:"id"`
	OriginalID string     `json:"original_id,omitempty"`
	ProductID  string     `json:"product_id"`
	State      string     `json:"state"`
	Error      *Error     `json:"error,omitempty"`
	UpdatedAt  *time.Time `json:"updated_at,omitempty"`
}

// Error is the wire form of a platform error
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message,omitempty"`
}

// Envelope wraps one inbound platform event
type Envelope struct {
	Type               string        `json:"type"`
	RequestID          string        `json:"request_id,omitempty"`
	Products           []Product     `json:"products,omitempty"`
	InvalidIdentifiers []string      `json:"invalid_identifiers,omitempty"`
	Transactions       []Transaction `json:"transactions,omitempty"`
	Error              *Error        `json:"error,omitempty"`
}

// FromProduct converts a domain product to its wire form
func FromProduct(p *entity.Product) Product {
	return Product{
		Identifier:  p.Identifier,
		Title:       p.Title,
		Description: p.Description,
		Price:       p.Price.Amount.String(),
		Currency:    p.Price.Currency,
		Locale:      p.Locale,
	}
}

// ToProduct converts a wire product to the domain product
func (p Product) ToProduct() (*entity.Product, error) {
	if p.Identifier == "" {
		return nil, fmt.Errorf("%w: product without identifier", domainErrors.ErrInvalidProduct)
	}
	amount, err := decimal.NewFromString(p.Price)
	if err != nil {
		return nil, fmt.Errorf("invalid price for %s: %w", p.Identifier, err)
	}
	price, err := valueobject.NewPrice(amount, p.Currency)
	if err != nil {
		return nil, fmt.Errorf("invalid price for %s: %w", p.Identifier, err)
	}
	return &entity.Product{
		Identifier:  p.Identifier,
		Title:       p.Title,
		Description: p.Description,
		Price:       price,
		Locale:      p.Locale,
	}, nil
}

// FromTransaction converts a domain transaction to its wire form
func FromTransaction(tx *entity.Transaction) Transaction {
	updatedAt := tx.UpdatedAt
	out := Transaction{
		ID:         tx.ID,
		OriginalID: tx.OriginalID,
		ProductID:  tx.ProductIdentifier,
		State:      tx.State.String(),
		Error:      FromError(tx.Err),
	}
	if !updatedAt.IsZero() {
		out.UpdatedAt = &updatedAt
	}
	return out
}

// ToTransaction converts a wire transaction to the domain transaction
func (t Transaction) ToTransaction() (*entity.Transaction, error) {
	state, err := valueobject.NewTransactionState(t.State)
	if err != nil {
		return nil, fmt.Errorf("transaction %s: %w", t.ID, err)
	}
	tx := &entity.Transaction{
		ID:                t.ID,
		OriginalID:        t.OriginalID,
		ProductIdentifier: t.ProductID,
		State:             state,
		Err:               t.Error.ToError(),
		UpdatedAt:         time.Now(),
	}
	if t.UpdatedAt != nil {
		tx.UpdatedAt = *t.UpdatedAt
	}
	return tx, nil
}

// FromError converts an error to its wire form; nil stays nil
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var pe *domainErrors.PlatformError
	if errors.As(err, &pe) {
		return &Error{Code: string(pe.Code), Message: pe.Message}
	}
	return &Error{Code: string(domainErrors.CodeUnknown), Message: err.Error()}
}

// ToError converts a wire error to a *errors.PlatformError; nil stays nil
func (e *Error) ToError() error {
	if e == nil {
		return nil
	}
	code := domainErrors.PlatformErrorCode(e.Code)
	if code == "" {
		code = domainErrors.CodeUnknown
	}
	return domainErrors.NewPlatformError(code, e.Message)
}

// DecodeEvent parses an envelope into a platform event
func DecodeEvent(data []byte) (service.Event, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("failed to unmarshal event: %w", err)
	}

	switch env.Type {
	case TypeProductsResponse:
		requestID, err := uuid.Parse(env.RequestID)
		if err != nil {
			return nil, fmt.Errorf("invalid request_id: %w", err)
		}
		products := make([]*entity.Product, 0, len(env.Products))
		for _, p := range env.Products {
			product, err := p.ToProduct()
			if err != nil {
				return nil, err
			}
			products = append(products, product)
		}
		return service.ProductsResponseEvent{
			RequestID:          requestID,
			Products:           products,
			InvalidIdentifiers: env.InvalidIdentifiers,
		}, nil

	case TypeProductsFailed:
		requestID, err := uuid.Parse(env.RequestID)
		if err != nil {
			return nil, fmt.Errorf("invalid request_id: %w", err)
		}
		return service.ProductsFailedEvent{RequestID: requestID, Err: errorOrUnknown(env.Error)}, nil

	case TypeTransactionsUpdated:
		txs := make([]*entity.Transaction, 0, len(env.Transactions))
		for _, t := range env.Transactions {
			tx, err := t.ToTransaction()
			if err != nil {
				return nil, err
			}
			txs = append(txs, tx)
		}
		return service.TransactionsUpdatedEvent{Transactions: txs}, nil

	case TypeRestoreCompleted:
		return service.RestoreCompletedEvent{}, nil

	case TypeRestoreFailed:
		return service.RestoreFailedEvent{Err: errorOrUnknown(env.Error)}, nil

	default:
		return nil, fmt.Errorf("unknown event type %q", env.Type)
	}
}

// EncodeEvent serializes a platform event into an envelope
func EncodeEvent(event service.Event) ([]byte, error) {
	var env Envelope

	switch e := event.(type) {
	case service.ProductsResponseEvent:
		env.Type = TypeProductsResponse
		env.RequestID = e.RequestID.String()
		for _, p := range e.Products {
			env.Products = append(env.Products, FromProduct(p))
		}
		env.InvalidIdentifiers = e.InvalidIdentifiers
	case service.ProductsFailedEvent:
		env.Type = TypeProductsFailed
		env.RequestID = e.RequestID.String()
		env.Error = FromError(e.Err)
	case service.TransactionsUpdatedEvent:
		env.Type = TypeTransactionsUpdated
		for _, tx := range e.Transactions {
			env.Transactions = append(env.Transactions, FromTransaction(tx))
		}
	case service.RestoreCompletedEvent:
		env.Type = TypeRestoreCompleted
	case service.RestoreFailedEvent:
		env.Type = TypeRestoreFailed
		env.Error = FromError(e.Err)
	default:
		return nil, fmt.Errorf("unsupported event %T", event)
	}

	return json.Marshal(env)
}

func errorOrUnknown(e *Error) error {
	if err := e.ToError(); err != nil {
		return err
	}
	return domainErrors.NewPlatformError(domainErrors.CodeUnknown, "")
}
