package query

import (
	"context"
	"fmt"

	"github.com/bivex/storekit-manager/internal/application/dto"
	"github.com/bivex/storekit-manager/internal/domain/service"
)

// SnapshotSource is the subset of service.PurchaseManager used by GetStatusQuery
type SnapshotSource interface {
	Snapshot(ctx context.Context) (service.Snapshot, error)
}

// GetStatusQuery handles getting the manager status
type GetStatusQuery struct {
	manager SnapshotSource
}

// NewGetStatusQuery creates a new get status query
func NewGetStatusQuery(manager SnapshotSource) *GetStatusQuery {
	return &GetStatusQuery{manager: manager}
}

// Execute executes the get status query
func (q *GetStatusQuery) Execute(ctx context.Context) (*dto.StatusResponse, error) {
	snapshot, err := q.manager.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get manager status: %w", err)
	}
	return dto.NewStatusResponse(snapshot), nil
}
