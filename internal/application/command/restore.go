package command

import (
	"context"

	"github.com/bivex/storekit-manager/internal/application/dto"
)

// RestoreCommand opens a restore session
type RestoreCommand struct {
	manager Manager
}

// NewRestoreCommand creates a new restore command
func NewRestoreCommand(manager Manager) *RestoreCommand {
	return &RestoreCommand{manager: manager}
}

// Execute executes the restore command
func (c *RestoreCommand) Execute(ctx context.Context) (*dto.RestoreResponse, error) {
	if err := c.manager.RestoreTransactions(); err != nil {
		return nil, err
	}
	return &dto.RestoreResponse{Status: dto.StatusStarted}, nil
}
