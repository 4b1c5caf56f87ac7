package entity

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

// CatalogHandlers receive the outcome of one product catalog query.
// On success both OnValid and OnInvalid are called once; on failure only OnFailure.
type CatalogHandlers struct {
	OnValid   func(products []*Product)
	OnInvalid func(identifiers []string)
	OnFailure func(err error)
}

// CatalogRequest is an in-flight product catalog query
type CatalogRequest struct {
	ID          uuid.UUID
	Identifiers []string
	Handlers    CatalogHandlers
	CreatedAt   time.Time
}

// NewCatalogRequest creates a catalog request for the given identifiers.
// Identifiers are expected to be validated and unique.
func NewCatalogRequest(identifiers []string, handlers CatalogHandlers) *CatalogRequest {
	ids := make([]string, len(identifiers))
	copy(ids, identifiers)
	sort.Strings(ids)

	return &CatalogRequest{
		ID:          uuid.New(),
		Identifiers: ids,
		Handlers:    handlers,
		CreatedAt:   time.Now(),
	}
}

// Partition splits a platform response into products matched to a requested
// identifier and the identifiers left unmatched. Returned products whose
// identifier was not requested are reported in unexpected.
func (r *CatalogRequest) Partition(products []*Product, invalid []string) (valid []*Product, unmatched []string, unexpected []string) {
	requested := make(map[string]bool, len(r.Identifiers))
	for _, id := range r.Identifiers {
		requested[id] = false
	}

	valid = make([]*Product, 0, len(products))
	for _, p := range products {
		if p == nil {
			continue
		}
		seen, ok := requested[p.Identifier]
		if !ok {
			unexpected = append(unexpected, p.Identifier)
			continue
		}
		if seen {
			continue
		}
		requested[p.Identifier] = true
		valid = append(valid, p)
	}

	unmatched = make([]string, 0, len(r.Identifiers)-len(valid))
	for _, id := range invalid {
		if seen, ok := requested[id]; ok && !seen {
			requested[id] = true
			unmatched = append(unmatched, id)
		}
	}
	// Identifiers the platform neither returned nor rejected are reported invalid.
	for _, id := range r.Identifiers {
		if !requested[id] {
			unmatched = append(unmatched, id)
		}
	}

	return valid, unmatched, unexpected
}
