// Package sandbox provides an in-memory platform that settles payments
// locally. It backs local development and end-to-end tests.
package sandbox

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bivex/storekit-manager/internal/domain/entity"
	domainErrors "github.com/bivex/storekit-manager/internal/domain/errors"
	"github.com/bivex/storekit-manager/internal/domain/service"
	"github.com/bivex/storekit-manager/internal/domain/valueobject"
)

// Outcome is how the sandbox settles a payment for a product
type Outcome string

const (
	OutcomePurchase Outcome = "purchase"
	OutcomeFail     Outcome = "fail"
	OutcomeCancel   Outcome = "cancel"
	OutcomeDefer    Outcome = "defer"
)

// Platform is a service.Platform that answers from an in-memory catalog.
// Events are delivered synchronously to the registered sink.
type Platform struct {
	mu         sync.Mutex
	catalog    map[string]*entity.Product
	outcomes   map[string]Outcome
	owned      []*entity.Transaction
	unfinished map[string]*entity.Transaction
	deferred   map[string]*entity.Transaction
	finished   []string
	restoreErr error
	finishErr  error
	sink       service.EventSink
	logger     *zap.Logger
}

// New creates a sandbox platform selling the given products
func New(products []*entity.Product, logger *zap.Logger) *Platform {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &Platform{
		catalog:    make(map[string]*entity.Product, len(products)),
		outcomes:   make(map[string]Outcome),
		unfinished: make(map[string]*entity.Transaction),
		deferred:   make(map[string]*entity.Transaction),
		logger:     logger.With(zap.String("component", "sandbox_platform")),
	}
	for _, product := range products {
		p.catalog[product.Identifier] = product
	}
	return p
}

// SetOutcome sets how payments for a product settle. The default is OutcomePurchase.
func (p *Platform) SetOutcome(identifier string, outcome Outcome) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.outcomes[identifier] = outcome
}

// SetRestoreError makes subsequent restores fail with err. Nil clears it.
func (p *Platform) SetRestoreError(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.restoreErr = err
}

// SetFinishError makes subsequent FinishTransaction calls fail with err. Nil clears it.
func (p *Platform) SetFinishError(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.finishErr = err
}

// SetEventSink registers where events are delivered
func (p *Platform) SetEventSink(sink service.EventSink) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sink = sink
}

// QueryProducts answers with the known products and the unknown identifiers
func (p *Platform) QueryProducts(ctx context.Context, requestID uuid.UUID, identifiers []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	p.mu.Lock()
	products := make([]*entity.Product, 0, len(identifiers))
	invalid := make([]string, 0)
	for _, id := range identifiers {
		if product, ok := p.catalog[id]; ok {
			products = append(products, product)
		} else {
			invalid = append(invalid, id)
		}
	}
	p.mu.Unlock()

	p.emit(service.ProductsResponseEvent{
		RequestID:          requestID,
		Products:           products,
		InvalidIdentifiers: invalid,
	})
	return nil
}

// AddPayment settles a payment according to the product's outcome
func (p *Platform) AddPayment(ctx context.Context, product *entity.Product) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	p.mu.Lock()
	known, ok := p.catalog[product.Identifier]
	outcome, set := p.outcomes[product.Identifier]
	p.mu.Unlock()
	if !ok {
		return domainErrors.NewPlatformError(domainErrors.CodeProductNotAvailable, product.Identifier)
	}
	if !set {
		outcome = OutcomePurchase
	}

	tx := entity.NewTransaction(uuid.NewString(), known, valueobject.StatePurchasing)
	p.emit(service.TransactionsUpdatedEvent{Transactions: []*entity.Transaction{tx}})

	settled := *tx
	settled.UpdatedAt = time.Now()
	switch outcome {
	case OutcomeFail:
		settled.State = valueobject.StateFailed
		settled.Err = domainErrors.NewPlatformError(domainErrors.CodePaymentInvalid, "declined by sandbox")
	case OutcomeCancel:
		settled.State = valueobject.StateFailed
		settled.Err = domainErrors.NewPlatformError(domainErrors.CodePaymentCancelled, "cancelled by user")
	case OutcomeDefer:
		settled.State = valueobject.StateDeferred
	default:
		settled.State = valueobject.StatePurchased
	}

	p.mu.Lock()
	switch settled.State {
	case valueobject.StateDeferred:
		p.deferred[settled.ID] = &settled
	case valueobject.StatePurchased:
		p.owned = append(p.owned, &settled)
		p.unfinished[settled.ID] = &settled
	default:
		p.unfinished[settled.ID] = &settled
	}
	p.mu.Unlock()

	p.logger.Debug("Sandbox payment settled",
		zap.String("product_id", known.Identifier),
		zap.String("transaction_id", settled.ID),
		zap.String("state", settled.State.String()),
	)
	p.emit(service.TransactionsUpdatedEvent{Transactions: []*entity.Transaction{&settled}})
	return nil
}

// ResolveDeferred settles a deferred transaction as approved or declined
func (p *Platform) ResolveDeferred(transactionID string, approved bool) error {
	p.mu.Lock()
	tx, ok := p.deferred[transactionID]
	if !ok {
		p.mu.Unlock()
		return fmt.Errorf("no deferred transaction %s", transactionID)
	}
	delete(p.deferred, transactionID)

	settled := *tx
	settled.UpdatedAt = time.Now()
	if approved {
		settled.State = valueobject.StatePurchased
		p.owned = append(p.owned, &settled)
	} else {
		settled.State = valueobject.StateFailed
		settled.Err = domainErrors.NewPlatformError(domainErrors.CodePaymentNotAllowed, "approval declined")
	}
	p.unfinished[settled.ID] = &settled
	p.mu.Unlock()

	p.emit(service.TransactionsUpdatedEvent{Transactions: []*entity.Transaction{&settled}})
	return nil
}

// RestoreCompletedTransactions redelivers every owned purchase as restored
func (p *Platform) RestoreCompletedTransactions(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	p.mu.Lock()
	if p.restoreErr != nil {
		err := p.restoreErr
		p.mu.Unlock()
		p.emit(service.RestoreFailedEvent{Err: err})
		return nil
	}
	restored := make([]*entity.Transaction, 0, len(p.owned))
	for _, original := range p.owned {
		tx := entity.NewTransaction(uuid.NewString(), original.Product, valueobject.StateRestored)
		tx.OriginalID = original.ID
		restored = append(restored, tx)
		p.unfinished[tx.ID] = tx
	}
	p.mu.Unlock()

	if len(restored) > 0 {
		p.emit(service.TransactionsUpdatedEvent{Transactions: restored})
	}
	p.emit(service.RestoreCompletedEvent{})
	return nil
}

// FinishTransaction acknowledges a transaction
func (p *Platform) FinishTransaction(ctx context.Context, tx *entity.Transaction) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.finishErr != nil {
		return p.finishErr
	}
	delete(p.unfinished, tx.ID)
	p.finished = append(p.finished, tx.ID)
	return nil
}

// Redeliver reports every unfinished transaction again, as the platform does on relaunch
func (p *Platform) Redeliver() int {
	p.mu.Lock()
	pending := make([]*entity.Transaction, 0, len(p.unfinished))
	for _, tx := range p.unfinished {
		pending = append(pending, tx)
	}
	p.mu.Unlock()

	if len(pending) == 0 {
		return 0
	}
	sort.Slice(pending, func(i, j int) bool { return pending[i].UpdatedAt.Before(pending[j].UpdatedAt) })
	p.emit(service.TransactionsUpdatedEvent{Transactions: pending})
	return len(pending)
}

// Finished returns the IDs of acknowledged transactions in order
func (p *Platform) Finished() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.finished...)
}

// Unfinished returns the number of transactions awaiting acknowledgement
func (p *Platform) Unfinished() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.unfinished)
}

// Deferred returns the IDs of transactions awaiting approval
func (p *Platform) Deferred() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	ids := make([]string, 0, len(p.deferred))
	for id := range p.deferred {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (p *Platform) emit(event service.Event) {
	p.mu.Lock()
	sink := p.sink
	p.mu.Unlock()

	if sink == nil {
		p.logger.Warn("Dropping event, no sink registered", zap.String("event", service.EventName(event)))
		return
	}
	sink.HandleEvent(event)
}

// ParseCatalog parses "id:amount:CUR" entries separated by commas
func ParseCatalog(raw, locale string) ([]*entity.Product, error) {
	products := make([]*entity.Product, 0)
	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		parts := strings.Split(entry, ":")
		if len(parts) != 3 {
			return nil, domainErrors.NewValidationError("sandbox_products", domainErrors.ErrInvalidProduct,
				fmt.Sprintf("entry %q must be id:amount:currency", entry))
		}

		price, err := parsePrice(parts[1], parts[2])
		if err != nil {
			return nil, fmt.Errorf("entry %q: %w", entry, err)
		}
		products = append(products, &entity.Product{
			Identifier: parts[0],
			Title:      parts[0],
			Price:      price,
			Locale:     locale,
		})
	}
	return products, nil
}
