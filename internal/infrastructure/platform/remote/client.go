package remote

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bivex/storekit-manager/internal/domain/entity"
	domainErrors "github.com/bivex/storekit-manager/internal/domain/errors"
	"github.com/bivex/storekit-manager/internal/domain/service"
	"github.com/bivex/storekit-manager/internal/infrastructure/platform/events"
	"github.com/bivex/storekit-manager/internal/infrastructure/platform/wire"
)

const (
	apiKeyHeader = "X-Api-Key"

	// DefaultResponseTimeout bounds the wait for the event answering a product query
	DefaultResponseTimeout = time.Minute
)

var errNoSink = errors.New("no event sink registered")

// Client is a service.Platform backed by a remote payment gateway. Outbound
// calls go over HTTP; inbound events arrive through an events.Source.
type Client struct {
	http   *resty.Client
	sink   atomic.Value // service.EventSink
	logger *zap.Logger

	responseTimeout time.Duration
	mu              sync.Mutex
	queries         map[uuid.UUID]*time.Timer
}

type queryProductsRequest struct {
	RequestID   string   `json:"request_id"`
	Identifiers []string `json:"identifiers"`
}

type addPaymentRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// NewClient creates a gateway client for baseURL
func NewClient(baseURL, apiKey string, timeout time.Duration, logger *zap.Logger) *Client {
	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json")
	if apiKey != "" {
		httpClient.SetHeader(apiKeyHeader, apiKey)
	}

	return &Client{
		http:            httpClient,
		logger:          logger.With(zap.String("component", "remote_platform")),
		responseTimeout: DefaultResponseTimeout,
		queries:         make(map[uuid.UUID]*time.Timer),
	}
}

// SetResponseTimeout sets how long an accepted product query waits for its
// response event before it is reported as failed. Zero waits forever.
func (c *Client) SetResponseTimeout(timeout time.Duration) *Client {
	c.responseTimeout = timeout
	return c
}

// QueryProducts submits a catalog query
func (c *Client) QueryProducts(ctx context.Context, requestID uuid.UUID, identifiers []string) error {
	err := c.post(ctx, "/v1/products/query", nil, queryProductsRequest{
		RequestID:   requestID.String(),
		Identifiers: identifiers,
	})
	if err != nil {
		return err
	}
	c.watchQuery(requestID)
	return nil
}

// AddPayment submits a payment for one unit of the product
func (c *Client) AddPayment(ctx context.Context, product *entity.Product) error {
	return c.post(ctx, "/v1/payments", nil, addPaymentRequest{
		ProductID: product.Identifier,
		Quantity:  1,
	})
}

// RestoreCompletedTransactions asks the gateway to redeliver owned purchases
func (c *Client) RestoreCompletedTransactions(ctx context.Context) error {
	return c.post(ctx, "/v1/transactions/restore", nil, struct{}{})
}

// FinishTransaction acknowledges a transaction
func (c *Client) FinishTransaction(ctx context.Context, tx *entity.Transaction) error {
	return c.post(ctx, "/v1/transactions/{id}/finish", map[string]string{"id": tx.ID}, struct{}{})
}

// SetEventSink registers where inbound events are forwarded by Listen
func (c *Client) SetEventSink(sink service.EventSink) {
	c.sink.Store(sinkHolder{sink})
}

// Listen runs source, forwarding its events to the registered sink, until ctx is done
func (c *Client) Listen(ctx context.Context, source events.Source) error {
	holder, ok := c.sink.Load().(sinkHolder)
	if !ok || holder.sink == nil {
		return errNoSink
	}
	return source.Run(ctx, service.EventSinkFunc(func(event service.Event) {
		if id, ok := productsRequestID(event); ok {
			c.settleQuery(id)
		}
		holder.sink.HandleEvent(event)
	}))
}

// PendingQueries reports the product queries still waiting for a response event
func (c *Client) PendingQueries() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.queries)
}

func (c *Client) watchQuery(requestID uuid.UUID) {
	if c.responseTimeout <= 0 {
		return
	}
	c.mu.Lock()
	c.queries[requestID] = time.AfterFunc(c.responseTimeout, func() { c.expireQuery(requestID) })
	c.mu.Unlock()
}

// settleQuery reports whether requestID was still pending and stops its timer
func (c *Client) settleQuery(requestID uuid.UUID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	timer, ok := c.queries[requestID]
	if !ok {
		return false
	}
	timer.Stop()
	delete(c.queries, requestID)
	return true
}

func (c *Client) expireQuery(requestID uuid.UUID) {
	if !c.settleQuery(requestID) {
		return
	}
	c.logger.Warn("Product query got no response from gateway",
		zap.String("request_id", requestID.String()),
		zap.Duration("timeout", c.responseTimeout),
	)
	if holder, ok := c.sink.Load().(sinkHolder); ok && holder.sink != nil {
		holder.sink.HandleEvent(service.ProductsFailedEvent{
			RequestID: requestID,
			Err:       domainErrors.NewPlatformError(domainErrors.CodeNetwork, "no response from gateway"),
		})
	}
}

func productsRequestID(event service.Event) (uuid.UUID, bool) {
	switch e := event.(type) {
	case service.ProductsResponseEvent:
		return e.RequestID, true
	case *service.ProductsResponseEvent:
		if e != nil {
			return e.RequestID, true
		}
	case service.ProductsFailedEvent:
		return e.RequestID, true
	case *service.ProductsFailedEvent:
		if e != nil {
			return e.RequestID, true
		}
	}
	return uuid.Nil, false
}

func (c *Client) post(ctx context.Context, path string, pathParams map[string]string, body interface{}) error {
	var apiErr wire.Error
	req := c.http.R().
		SetContext(ctx).
		SetBody(body).
		SetError(&apiErr)
	if pathParams != nil {
		req.SetPathParams(pathParams)
	}

	resp, err := req.Post(path)
	if err != nil {
		// Transport failures surface as network errors.
		c.logger.Warn("Gateway request failed", zap.String("path", path), zap.Error(err))
		return fmt.Errorf("%s: %w", path, domainErrors.NewPlatformError(domainErrors.CodeNetwork, err.Error()))
	}

	if resp.IsError() {
		c.logger.Warn("Gateway rejected request",
			zap.String("path", path),
			zap.Int("status", resp.StatusCode()),
			zap.String("code", apiErr.Code),
		)
		if apiErr.Code == "" {
			return domainErrors.NewPlatformError(domainErrors.CodeUnknown, fmt.Sprintf("unexpected status %d", resp.StatusCode()))
		}
		return apiErr.ToError()
	}

	return nil
}

type sinkHolder struct {
	sink service.EventSink
}
