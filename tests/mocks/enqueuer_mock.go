package mocks

import (
	"context"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/mock"
)

// MockTaskEnqueuer is a mock implementation of notify.TaskEnqueuer
type MockTaskEnqueuer struct {
	mock.Mock
}

// NewMockTaskEnqueuer creates a new mock task enqueuer
func NewMockTaskEnqueuer() *MockTaskEnqueuer {
	return &MockTaskEnqueuer{}
}

func (m *MockTaskEnqueuer) EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	args := m.Called(ctx, task, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*asynq.TaskInfo), args.Error(1)
}
