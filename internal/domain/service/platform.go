package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/bivex/storekit-manager/internal/domain/entity"
)

// Platform is the outbound side of the payment platform. Every call only
// submits work; outcomes arrive later as events on the registered EventSink.
type Platform interface {
	// QueryProducts submits a catalog query correlated by requestID
	QueryProducts(ctx context.Context, requestID uuid.UUID, identifiers []string) error

	// AddPayment submits a payment request for the product
	AddPayment(ctx context.Context, product *entity.Product) error

	// RestoreCompletedTransactions asks the platform to redeliver owned purchases
	RestoreCompletedTransactions(ctx context.Context) error

	// FinishTransaction acknowledges a terminally processed transaction
	FinishTransaction(ctx context.Context, tx *entity.Transaction) error

	// SetEventSink registers the transaction observer for the platform's lifetime
	SetEventSink(sink EventSink)
}

// EventSink receives inbound platform events
type EventSink interface {
	HandleEvent(event Event)
}

// EventSinkFunc adapts a function to EventSink
type EventSinkFunc func(event Event)

// HandleEvent calls f(event)
func (f EventSinkFunc) HandleEvent(event Event) {
	f(event)
}

// Event is an inbound platform event
type Event interface {
	eventName() string
}

// ProductsResponseEvent answers a catalog query
type ProductsResponseEvent struct {
	RequestID          uuid.UUID
	Products           []*entity.Product
	InvalidIdentifiers []string
}

// ProductsFailedEvent reports a transport failure for a catalog query
type ProductsFailedEvent struct {
	RequestID uuid.UUID
	Err       error
}

// TransactionsUpdatedEvent delivers transaction state changes in platform order
type TransactionsUpdatedEvent struct {
	Transactions []*entity.Transaction
}

// RestoreCompletedEvent terminates a restore cycle successfully
type RestoreCompletedEvent struct{}

// RestoreFailedEvent terminates a restore cycle with an error
type RestoreFailedEvent struct {
	Err error
}

func (ProductsResponseEvent) eventName() string    { return "products_response" }
func (ProductsFailedEvent) eventName() string      { return "products_failed" }
func (TransactionsUpdatedEvent) eventName() string { return "transactions_updated" }
func (RestoreCompletedEvent) eventName() string    { return "restore_completed" }
func (RestoreFailedEvent) eventName() string       { return "restore_failed" }

// EventName returns the stable name of an event, used in logs and wire envelopes
func EventName(event Event) string {
	if event == nil {
		return ""
	}
	return event.eventName()
}

// CallbackQueue serializes all manager state mutation and callback delivery
type CallbackQueue interface {
	// Async schedules fn; it returns false if the queue no longer accepts work
	Async(fn func()) bool
}
