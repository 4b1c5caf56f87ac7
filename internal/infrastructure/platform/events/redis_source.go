package events

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/bivex/storekit-manager/internal/domain/service"
)

// RedisSource reads platform events from a Redis pub/sub channel
type RedisSource struct {
	client  *redis.Client
	channel string
	logger  *zap.Logger
}

// NewRedisSource creates a new Redis-backed event source
func NewRedisSource(client *redis.Client, channel string, logger *zap.Logger) *RedisSource {
	return &RedisSource{
		client:  client,
		channel: channel,
		logger:  logger.With(zap.String("component", "redis_event_source"), zap.String("channel", channel)),
	}
}

// Run subscribes to the channel and forwards events until ctx is done
func (s *RedisSource) Run(ctx context.Context, sink service.EventSink) error {
	pubsub := s.client.Subscribe(ctx, s.channel)
	defer pubsub.Close()

	// Wait for the subscription to be confirmed before reporting readiness.
	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", s.channel, err)
	}
	s.logger.Info("Subscribed to platform events")

	messages := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			deliver(s.logger, sink, []byte(msg.Payload))
		}
	}
}
