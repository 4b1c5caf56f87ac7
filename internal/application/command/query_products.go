package command

import (
	"context"
	"fmt"
	"time"

	"github.com/bivex/storekit-manager/internal/application/dto"
	"github.com/bivex/storekit-manager/internal/domain/entity"
	domainErrors "github.com/bivex/storekit-manager/internal/domain/errors"
)

// QueryProductsCommand submits a catalog query and waits for its callbacks
type QueryProductsCommand struct {
	manager Manager
	timeout time.Duration
}

// NewQueryProductsCommand creates a new query products command. timeout
// bounds the wait when the caller's context has no deadline.
func NewQueryProductsCommand(manager Manager, timeout time.Duration) *QueryProductsCommand {
	return &QueryProductsCommand{
		manager: manager,
		timeout: timeout,
	}
}

type catalogResult struct {
	resp *dto.ProductsResponse
	err  error
}

// Execute executes the query products command
func (c *QueryProductsCommand) Execute(ctx context.Context, identifiers []string) (*dto.ProductsResponse, error) {
	if _, ok := ctx.Deadline(); !ok && c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	// OnValid always precedes OnInvalid for the same request.
	done := make(chan catalogResult, 1)
	var valid []*entity.Product
	handlers := entity.CatalogHandlers{
		OnValid: func(products []*entity.Product) { valid = products },
		OnInvalid: func(invalid []string) {
			done <- catalogResult{resp: dto.NewProductsResponse(valid, invalid)}
		},
		OnFailure: func(err error) { done <- catalogResult{err: err} },
	}

	requestID, err := c.manager.RequestProducts(identifiers, handlers)
	if err != nil {
		return nil, err
	}

	select {
	case result := <-done:
		return result.resp, result.err
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: product query %s: %v", domainErrors.ErrPlatformTimeout, requestID, ctx.Err())
	}
}
