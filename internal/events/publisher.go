package events

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cuongbtq/employee-ingest/internal/metrics"
)

// Publisher sends events to the pub/sub channel. Delivery is fire-and-forget.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// ChannelPublisher is the transport used by RedisPublisher
type ChannelPublisher interface {
	Publish(ctx context.Context, channel string, payload []byte) error
}

// RedisPublisher publishes encoded events on one named channel
type RedisPublisher struct {
	client  ChannelPublisher
	channel string
	logger  *slog.Logger
}

// NewRedisPublisher creates a publisher for channel
func NewRedisPublisher(client ChannelPublisher, channel string, logger *slog.Logger) *RedisPublisher {
	if channel == "" {
		channel = DefaultChannel
	}
	return &RedisPublisher{client: client, channel: channel, logger: logger}
}

// Publish encodes ev and publishes it
func (p *RedisPublisher) Publish(ctx context.Context, ev Event) error {
	body, err := Encode(ev)
	if err != nil {
		return err
	}

	if err := p.client.Publish(ctx, p.channel, body); err != nil {
		metrics.PublishFailures.WithLabelValues(ev.Name()).Inc()
		return fmt.Errorf("failed to publish %s event: %w", ev.Name(), err)
	}

	p.logger.Debug("Event published",
		slog.String("event", ev.Name()),
		slog.String("job_id", ev.JobID()),
		slog.String("channel", p.channel),
	)
	return nil
}
