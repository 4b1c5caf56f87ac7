package events

import (
	"context"

	"go.uber.org/zap"

	"github.com/bivex/storekit-manager/internal/domain/service"
	"github.com/bivex/storekit-manager/internal/infrastructure/platform/wire"
)

// Source delivers inbound platform events from a message broker
type Source interface {
	// Run blocks, forwarding decoded events to sink until ctx is done
	Run(ctx context.Context, sink service.EventSink) error
}

// deliver decodes one broker message and forwards it. Malformed messages are
// logged and dropped so one bad publisher cannot stall the stream.
func deliver(logger *zap.Logger, sink service.EventSink, data []byte) {
	event, err := wire.DecodeEvent(data)
	if err != nil {
		logger.Warn("Dropping malformed platform event", zap.Error(err), zap.ByteString("payload", data))
		return
	}
	logger.Debug("Platform event received", zap.String("event", service.EventName(event)))
	sink.HandleEvent(event)
}
