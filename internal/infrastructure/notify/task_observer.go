// Package notify fans manager notifications out to background workers.
package notify

import (
	"context"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"github.com/bivex/storekit-manager/internal/domain/entity"
	"github.com/bivex/storekit-manager/internal/infrastructure/dispatch"
	"github.com/bivex/storekit-manager/internal/worker/tasks"
)

const enqueueTimeout = 3 * time.Second

// TaskEnqueuer is the subset of *asynq.Client used to publish notifications
type TaskEnqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// TaskObserver is a service.Observer that enqueues every notification as an
// asynq task. Tasks are built on the caller's goroutine and published from a
// serial queue of their own, in order, so a slow Redis never holds up
// transaction routing.
type TaskObserver struct {
	client  TaskEnqueuer
	queue   string
	publish *dispatch.SerialQueue
	logger  *zap.Logger
}

// NewTaskObserver creates an observer publishing to the named queue. Close
// must be called before the client is closed.
func NewTaskObserver(client TaskEnqueuer, queue string, logger *zap.Logger) *TaskObserver {
	logger = logger.With(zap.String("component", "task_observer"))
	return &TaskObserver{
		client:  client,
		queue:   queue,
		publish: dispatch.NewSerialQueue(logger),
		logger:  logger,
	}
}

// Close stops accepting notifications and waits until the pending ones are published
func (o *TaskObserver) Close() {
	o.publish.Close()
}

// PurchaseCompleted enqueues purchase:completed
func (o *TaskObserver) PurchaseCompleted(product *entity.Product, tx *entity.Transaction, success bool, err error) {
	o.enqueue(tasks.NewPurchaseCompletedTask(product, tx, success, err))
}

// PurchaseDeferred enqueues purchase:deferred
func (o *TaskObserver) PurchaseDeferred(product *entity.Product, tx *entity.Transaction) {
	o.enqueue(tasks.NewPurchaseDeferredTask(product, tx))
}

// RestoredTransaction enqueues restore:transaction
func (o *TaskObserver) RestoredTransaction(tx *entity.Transaction) {
	o.enqueue(tasks.NewRestoreTransactionTask(tx))
}

// RestoreCompleted enqueues restore:completed
func (o *TaskObserver) RestoreCompleted(success bool, err error) {
	o.enqueue(tasks.NewRestoreCompletedTask(success, err))
}

// enqueue schedules the task for publishing. Failures are logged;
// notifications are best effort.
func (o *TaskObserver) enqueue(task *asynq.Task, err error) {
	if err != nil {
		o.logger.Error("Failed to build notification task", zap.Error(err))
		return
	}
	if !o.publish.Async(func() { o.send(task) }) {
		o.logger.Error("Dropping notification, observer closed", zap.String("type", task.Type()))
	}
}

func (o *TaskObserver) send(task *asynq.Task) {
	ctx, cancel := context.WithTimeout(context.Background(), enqueueTimeout)
	defer cancel()

	info, err := o.client.EnqueueContext(ctx, task,
		asynq.Queue(o.queue),
		asynq.MaxRetry(5),
	)
	if err != nil {
		o.logger.Error("Failed to enqueue notification", zap.String("type", task.Type()), zap.Error(err))
		return
	}
	o.logger.Debug("Notification enqueued", zap.String("type", task.Type()), zap.String("task_id", info.ID))
}
