package events

import (
	"context"
	"fmt"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/bivex/storekit-manager/internal/domain/service"
)

// NATSSource reads platform events from a NATS subject
type NATSSource struct {
	conn    *nats.Conn
	subject string
	logger  *zap.Logger
}

// NewNATSSource creates a new NATS-backed event source
func NewNATSSource(conn *nats.Conn, subject string, logger *zap.Logger) *NATSSource {
	return &NATSSource{
		conn:    conn,
		subject: subject,
		logger:  logger.With(zap.String("component", "nats_event_source"), zap.String("subject", subject)),
	}
}

// Run subscribes to the subject and forwards events until ctx is done
func (s *NATSSource) Run(ctx context.Context, sink service.EventSink) error {
	sub, err := s.conn.Subscribe(s.subject, func(msg *nats.Msg) {
		deliver(s.logger, sink, msg.Data)
	})
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", s.subject, err)
	}
	s.logger.Info("Subscribed to platform events")

	<-ctx.Done()
	if err := sub.Unsubscribe(); err != nil {
		s.logger.Warn("Failed to unsubscribe", zap.Error(err))
	}
	return nil
}

// ConnectNATS dials NATS with the reconnect policy used for event sources
func ConnectNATS(url string, logger *zap.Logger) (*nats.Conn, error) {
	conn, err := nats.Connect(url,
		nats.Name("storekit-manager"),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("NATS disconnected", zap.Error(err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("NATS reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return conn, nil
}
