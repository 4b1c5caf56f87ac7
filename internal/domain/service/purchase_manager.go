package service

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bivex/storekit-manager/internal/domain/entity"
	domainErrors "github.com/bivex/storekit-manager/internal/domain/errors"
)

// ProductCatalog keeps the products most recently returned by the platform
type ProductCatalog interface {
	Store(products []*entity.Product)
	Products() []*entity.Product
	Product(identifier string) (*entity.Product, bool)
}

// Snapshot is a point-in-time view of the manager state
type Snapshot struct {
	PendingCatalogRequests int
	RestoreInProgress      bool
	ActiveRestore          *entity.RestoreSession
	LastRestore            *entity.RestoreSession
	FinishedTransactions   int
}

// PurchaseManager mediates between the application and the payment platform.
//
// All state below the queue field is owned by the callback queue: it is only
// read or written from functions scheduled on it. Public methods never block
// except Snapshot.
type PurchaseManager struct {
	platform Platform
	queue    CallbackQueue
	catalog  ProductCatalog
	logger   *zap.Logger

	restoring atomic.Bool
	started   atomic.Bool

	ctx         context.Context
	observer    Observer
	requests    map[uuid.UUID]*entity.CatalogRequest
	session     *entity.RestoreSession
	lastSession *entity.RestoreSession
	finished    map[string]struct{}
}

// NewPurchaseManager creates a new purchase manager. catalog and logger may be nil.
func NewPurchaseManager(platform Platform, queue CallbackQueue, catalog ProductCatalog, logger *zap.Logger) *PurchaseManager {
	if catalog == nil {
		catalog = noopCatalog{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PurchaseManager{
		platform: platform,
		queue:    queue,
		catalog:  catalog,
		logger:   logger.With(zap.String("component", "purchase_manager")),
		ctx:      context.Background(),
		requests: make(map[uuid.UUID]*entity.CatalogRequest),
		finished: make(map[string]struct{}),
	}
}

// Start registers the manager as the platform's transaction observer. ctx is
// used for every outbound platform call made afterwards.
func (m *PurchaseManager) Start(ctx context.Context) error {
	if !m.started.CompareAndSwap(false, true) {
		return nil
	}
	if !m.queue.Async(func() { m.ctx = ctx }) {
		return domainErrors.ErrManagerClosed
	}
	m.platform.SetEventSink(m)
	m.logger.Info("Purchase manager started")
	return nil
}

// SetObserver replaces the registered observer; nil removes it
func (m *PurchaseManager) SetObserver(observer Observer) {
	m.queue.Async(func() { m.observer = observer })
}

// HandleEvent receives an inbound platform event and routes it on the queue
func (m *PurchaseManager) HandleEvent(event Event) {
	if !m.queue.Async(func() { m.handleEvent(event) }) {
		m.logger.Warn("Dropping platform event, queue closed", zap.String("event", EventName(event)))
	}
}

// RequestProducts submits a catalog query. The identifiers must be non-empty
// and unique; the returned ID correlates the platform response.
func (m *PurchaseManager) RequestProducts(identifiers []string, handlers entity.CatalogHandlers) (uuid.UUID, error) {
	if err := validateIdentifiers(identifiers); err != nil {
		return uuid.Nil, err
	}

	req := entity.NewCatalogRequest(identifiers, handlers)
	if !m.queue.Async(func() { m.startCatalogRequest(req) }) {
		return uuid.Nil, domainErrors.ErrManagerClosed
	}
	return req.ID, nil
}

// RequestPayment submits a payment for the product. The outcome is reported
// to the observer once the platform delivers a terminal transaction state.
func (m *PurchaseManager) RequestPayment(product *entity.Product) error {
	if product == nil || product.Identifier == "" {
		return domainErrors.NewValidationError("product", domainErrors.ErrInvalidProduct, "product with identifier is required")
	}
	if !m.queue.Async(func() { m.submitPayment(product) }) {
		return domainErrors.ErrManagerClosed
	}
	return nil
}

// RequestPaymentForIdentifier submits a payment for a product previously
// returned by RequestProducts
func (m *PurchaseManager) RequestPaymentForIdentifier(identifier string) error {
	product, ok := m.catalog.Product(identifier)
	if !ok {
		return fmt.Errorf("%w: %s", domainErrors.ErrProductNotFound, identifier)
	}
	return m.RequestPayment(product)
}

// RestoreTransactions opens a restore session. It fails with
// ErrRestoreInProgress while a previous session is still open.
func (m *PurchaseManager) RestoreTransactions() error {
	if !m.restoring.CompareAndSwap(false, true) {
		return domainErrors.ErrRestoreInProgress
	}
	if !m.queue.Async(m.startRestore) {
		m.restoring.Store(false)
		return domainErrors.ErrManagerClosed
	}
	return nil
}

// RestoreInProgress reports whether a restore session is open
func (m *PurchaseManager) RestoreInProgress() bool {
	return m.restoring.Load()
}

// LocalizedPrice formats the product price for the product's locale
func (m *PurchaseManager) LocalizedPrice(product *entity.Product) string {
	if product == nil {
		return ""
	}
	return product.LocalizedPrice()
}

// Products returns the products from the most recent successful catalog query
func (m *PurchaseManager) Products() []*entity.Product {
	return m.catalog.Products()
}

// Product looks up a product from a previous catalog query
func (m *PurchaseManager) Product(identifier string) (*entity.Product, bool) {
	return m.catalog.Product(identifier)
}

// Snapshot returns the current manager state once the queue serves the request
func (m *PurchaseManager) Snapshot(ctx context.Context) (Snapshot, error) {
	result := make(chan Snapshot, 1)
	if !m.queue.Async(func() { result <- m.snapshot() }) {
		return Snapshot{}, domainErrors.ErrManagerClosed
	}

	select {
	case s := <-result:
		return s, nil
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	}
}

func (m *PurchaseManager) snapshot() Snapshot {
	s := Snapshot{
		PendingCatalogRequests: len(m.requests),
		RestoreInProgress:      m.session != nil,
		FinishedTransactions:   len(m.finished),
	}
	if m.session != nil {
		s.ActiveRestore = m.session.Clone()
	}
	if m.lastSession != nil {
		s.LastRestore = m.lastSession.Clone()
	}
	return s
}

func (m *PurchaseManager) handleEvent(event Event) {
	switch e := event.(type) {
	case ProductsResponseEvent:
		m.completeCatalogRequest(e)
	case *ProductsResponseEvent:
		m.completeCatalogRequest(*e)
	case ProductsFailedEvent:
		m.failCatalogRequest(e.RequestID, e.Err)
	case *ProductsFailedEvent:
		m.failCatalogRequest(e.RequestID, e.Err)
	case TransactionsUpdatedEvent:
		m.routeTransactions(e.Transactions)
	case *TransactionsUpdatedEvent:
		m.routeTransactions(e.Transactions)
	case RestoreCompletedEvent, *RestoreCompletedEvent:
		m.closeRestore(true, nil)
	case RestoreFailedEvent:
		m.closeRestore(false, e.Err)
	case *RestoreFailedEvent:
		m.closeRestore(false, e.Err)
	default:
		m.logger.Warn("Ignoring unknown platform event", zap.String("type", fmt.Sprintf("%T", event)))
	}
}

// Product catalog

func (m *PurchaseManager) startCatalogRequest(req *entity.CatalogRequest) {
	m.requests[req.ID] = req
	m.logger.Debug("Submitting product query",
		zap.String("request_id", req.ID.String()),
		zap.Strings("identifiers", req.Identifiers),
	)

	if err := m.platform.QueryProducts(m.ctx, req.ID, req.Identifiers); err != nil {
		m.failCatalogRequest(req.ID, fmt.Errorf("failed to submit product query: %w", err))
	}
}

func (m *PurchaseManager) completeCatalogRequest(e ProductsResponseEvent) {
	req, ok := m.takeCatalogRequest(e.RequestID)
	if !ok {
		return
	}

	valid, invalid, unexpected := req.Partition(e.Products, e.InvalidIdentifiers)
	if len(unexpected) > 0 {
		m.logger.Warn("Platform returned products that were not requested",
			zap.String("request_id", req.ID.String()),
			zap.Strings("identifiers", unexpected),
		)
	}
	m.catalog.Store(valid)

	m.logger.Info("Product query completed",
		zap.String("request_id", req.ID.String()),
		zap.Int("valid", len(valid)),
		zap.Int("invalid", len(invalid)),
	)

	if req.Handlers.OnValid != nil {
		req.Handlers.OnValid(valid)
	}
	if req.Handlers.OnInvalid != nil {
		req.Handlers.OnInvalid(invalid)
	}
}

func (m *PurchaseManager) failCatalogRequest(requestID uuid.UUID, err error) {
	req, ok := m.takeCatalogRequest(requestID)
	if !ok {
		return
	}
	if err == nil {
		err = domainErrors.ErrPlatformUnavailable
	}

	m.logger.Error("Product query failed", zap.String("request_id", requestID.String()), zap.Error(err))

	if req.Handlers.OnFailure != nil {
		req.Handlers.OnFailure(err)
	}
}

// takeCatalogRequest releases the in-flight record so it resolves at most once
func (m *PurchaseManager) takeCatalogRequest(requestID uuid.UUID) (*entity.CatalogRequest, bool) {
	req, ok := m.requests[requestID]
	if !ok {
		m.logger.Warn("Ignoring response for unknown product query", zap.String("request_id", requestID.String()))
		return nil, false
	}
	delete(m.requests, requestID)
	return req, true
}

// Payments and transactions

func (m *PurchaseManager) submitPayment(product *entity.Product) {
	m.logger.Info("Submitting payment", zap.String("product_id", product.Identifier))

	if err := m.platform.AddPayment(m.ctx, product); err != nil {
		err = fmt.Errorf("failed to submit payment: %w", err)
		m.logger.Error("Payment submission failed", zap.String("product_id", product.Identifier), zap.Error(err))
		if m.observer != nil {
			m.observer.PurchaseCompleted(product, nil, false, err)
		}
	}
}

func (m *PurchaseManager) routeTransactions(txs []*entity.Transaction) {
	for _, tx := range txs {
		if tx != nil {
			m.routeTransaction(tx)
		}
	}
}

func (m *PurchaseManager) routeTransaction(tx *entity.Transaction) {
	logger := m.logger.With(
		zap.String("transaction_id", tx.ID),
		zap.String("product_id", tx.ProductIdentifier),
		zap.String("state", tx.State.String()),
	)

	if tx.IsTerminal() && tx.ID != "" {
		if _, done := m.finished[tx.ID]; done {
			logger.Debug("Ignoring redelivered finished transaction")
			return
		}
	}

	decision := Route(tx.State, m.session != nil)
	product := m.productFor(tx)

	switch decision.Action {
	case ActionRestore:
		m.session.Append(tx)
		logger.Info("Transaction restored", zap.String("session_id", m.session.ID.String()))
		if m.observer != nil {
			m.observer.RestoredTransaction(tx)
		}

	case ActionComplete:
		var err error
		if !decision.Success {
			err = tx.Err
			if err == nil {
				err = domainErrors.ErrPaymentFailed
			}
			logger.Info("Transaction failed",
				zap.Bool("cancelled", domainErrors.IsCancelled(err)),
				zap.Error(err),
			)
		} else {
			logger.Info("Transaction completed")
		}
		if m.observer != nil {
			m.observer.PurchaseCompleted(product, tx, decision.Success, err)
		}

	case ActionDefer:
		logger.Info("Transaction deferred, awaiting approval")
		if d, ok := m.observer.(DeferredObserver); ok {
			d.PurchaseDeferred(product, tx)
		}

	default:
		logger.Debug("Transaction in progress")
	}

	if decision.Finish {
		m.finish(tx, logger)
	}
}

func (m *PurchaseManager) productFor(tx *entity.Transaction) *entity.Product {
	if tx.Product != nil {
		return tx.Product
	}
	if p, ok := m.catalog.Product(tx.ProductIdentifier); ok {
		return p
	}
	return &entity.Product{Identifier: tx.ProductIdentifier}
}

func (m *PurchaseManager) finish(tx *entity.Transaction, logger *zap.Logger) {
	if err := m.platform.FinishTransaction(m.ctx, tx); err != nil {
		// Not remembered, so a redelivery retries the finish.
		logger.Error("Failed to finish transaction", zap.Error(err))
		return
	}
	if tx.ID != "" {
		m.finished[tx.ID] = struct{}{}
	}
	logger.Debug("Transaction finished")
}

// Restore

func (m *PurchaseManager) startRestore() {
	m.session = entity.NewRestoreSession()
	m.logger.Info("Restoring transactions", zap.String("session_id", m.session.ID.String()))

	if err := m.platform.RestoreCompletedTransactions(m.ctx); err != nil {
		m.closeRestore(false, fmt.Errorf("failed to submit restore: %w", err))
	}
}

func (m *PurchaseManager) closeRestore(success bool, err error) {
	session := m.session
	if session == nil {
		m.logger.Warn("Ignoring restore completion without an active session", zap.Bool("success", success))
		return
	}

	if success {
		session.Complete()
	} else {
		if err == nil {
			err = domainErrors.NewPlatformError(domainErrors.CodeUnknown, "restore failed")
		}
		session.Fail(err)
	}
	m.session = nil
	m.lastSession = session
	m.restoring.Store(false)

	m.logger.Info("Restore finished",
		zap.String("session_id", session.ID.String()),
		zap.String("outcome", string(session.Outcome)),
		zap.Int("restored", len(session.Transactions)),
		zap.Error(err),
	)

	if m.observer != nil {
		m.observer.RestoreCompleted(success, err)
	}
}

func validateIdentifiers(identifiers []string) error {
	if len(identifiers) == 0 {
		return domainErrors.NewValidationError("identifiers", domainErrors.ErrEmptyProductSet, "")
	}
	seen := make(map[string]struct{}, len(identifiers))
	for _, id := range identifiers {
		if strings.TrimSpace(id) == "" {
			return domainErrors.NewValidationError("identifiers", domainErrors.ErrInvalidInput, "blank product identifier")
		}
		if _, dup := seen[id]; dup {
			return domainErrors.NewValidationError("identifiers", domainErrors.ErrDuplicateIdentifier, "duplicate product identifier "+id)
		}
		seen[id] = struct{}{}
	}
	return nil
}

type noopCatalog struct{}

func (noopCatalog) Store([]*entity.Product)                {}
func (noopCatalog) Products() []*entity.Product            { return nil }
func (noopCatalog) Product(string) (*entity.Product, bool) { return nil, false }
