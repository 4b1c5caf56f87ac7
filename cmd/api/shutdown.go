package main

import (
	"go.uber.org/zap"

	"github.com/bivex/storekit-manager/internal/infrastructure/dispatch"
	"github.com/bivex/storekit-manager/internal/infrastructure/notify"
)

type closer struct {
	name  string
	close func() error
}

// drainSteps orders shutdown so each component finishes feeding the next
// before that one closes: queued manager callbacks publish notifications,
// and the observer drains them while Redis is still open. The asynq client
// shares the Redis connection, which main closes last.
func drainSteps(queue *dispatch.SerialQueue, notifier *notify.TaskObserver) []closer {
	steps := []closer{{name: "callback queue", close: func() error { queue.Close(); return nil }}}
	if notifier != nil {
		steps = append(steps, closer{name: "task observer", close: func() error { notifier.Close(); return nil }})
	}
	return steps
}

func closeAll(logger *zap.Logger, steps []closer) {
	for _, step := range steps {
		if err := step.close(); err != nil {
			logger.Error("Failed to close", zap.String("component", step.name), zap.Error(err))
		}
	}
}
