package events

import (
	"context"
	"errors"
	"log/slog"
)

// ErrSubscriptionClosed is returned by Bridge.Run when the channel subscription ends
var ErrSubscriptionClosed = errors.New("event subscription closed")

// Subscription yields raw payloads from the pub/sub channel
type Subscription interface {
	Messages() <-chan []byte
	Close() error
}

// Broadcaster fans one frame out to every connected client
type Broadcaster interface {
	Broadcast(event string, data []byte) int
}

// Bridge relays pub/sub messages to the connected subscribers of this process
type Bridge struct {
	sub         Subscription
	broadcaster Broadcaster
	logger      *slog.Logger
}

// NewBridge creates a bridge. The subscription is owned by the bridge from here on.
func NewBridge(sub Subscription, broadcaster Broadcaster, logger *slog.Logger) *Bridge {
	return &Bridge{sub: sub, broadcaster: broadcaster, logger: logger}
}

// Run relays messages until ctx is canceled or the subscription ends
func (b *Bridge) Run(ctx context.Context) error {
	b.logger.Info("Event bridge started")
	defer b.sub.Close()

	messages := b.sub.Messages()
	for {
		select {
		case <-ctx.Done():
			b.logger.Info("Event bridge stopped - context canceled")
			return nil

		case body, ok := <-messages:
			if !ok {
				b.logger.Warn("Event subscription closed")
				return ErrSubscriptionClosed
			}
			b.relay(body)
		}
	}
}

func (b *Bridge) relay(body []byte) {
	env, err := Decode(body)
	if err != nil {
		b.logger.Error("Failed to decode event, dropping",
			slog.String("error", err.Error()),
			slog.String("body", string(body)),
		)
		return
	}

	delivered := b.broadcaster.Broadcast(env.Event, env.Data)
	b.logger.Debug("Event forwarded to subscribers",
		slog.String("event", env.Event),
		slog.Int("delivered", delivered),
	)
}
