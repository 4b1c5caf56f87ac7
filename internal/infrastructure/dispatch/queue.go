package dispatch

import (
	"sync"

	"go.uber.org/zap"
)

// SerialQueue runs scheduled functions one at a time, in submission order, on
// a single goroutine. Async never blocks: pending work is kept in an
// unbounded slice so callbacks may schedule more work from the queue itself.
type SerialQueue struct {
	mu      sync.Mutex
	pending []func()
	closed  bool
	wake    chan struct{}
	done    chan struct{}
	logger  *zap.Logger
}

// NewSerialQueue starts a serial queue
func NewSerialQueue(logger *zap.Logger) *SerialQueue {
	if logger == nil {
		logger = zap.NewNop()
	}
	q := &SerialQueue{
		wake:   make(chan struct{}, 1),
		done:   make(chan struct{}),
		logger: logger.With(zap.String("component", "callback_queue")),
	}
	go q.run()
	return q
}

// Async schedules fn; it returns false once the queue is closed
func (q *SerialQueue) Async(fn func()) bool {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return false
	}
	q.pending = append(q.pending, fn)
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
	return true
}

// Close stops accepting work and waits until already scheduled work has run
func (q *SerialQueue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		<-q.done
		return
	}
	q.closed = true
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
	<-q.done
}

func (q *SerialQueue) run() {
	defer close(q.done)
	for {
		q.mu.Lock()
		batch := q.pending
		q.pending = nil
		closed := q.closed
		q.mu.Unlock()

		for _, fn := range batch {
			q.invoke(fn)
		}

		if len(batch) > 0 {
			continue
		}
		if closed {
			return
		}
		<-q.wake
	}
}

func (q *SerialQueue) invoke(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			q.logger.Error("Recovered panic in queued callback", zap.Any("panic", r))
		}
	}()
	fn()
}

// InlineQueue runs functions immediately on the calling goroutine. Useful in
// tests and when the caller already serializes access.
type InlineQueue struct{}

// Async runs fn and always returns true
func (InlineQueue) Async(fn func()) bool {
	fn()
	return true
}
