package redis

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-redis/redis"
)

// Config holds Redis connection configuration
type Config struct {
	Host          string
	Port          int
	Password      string
	DB            int
	RetryAttempts int
	RetryInterval time.Duration
	DialTimeout   time.Duration
}

// Client wraps a go-redis client for publish/subscribe
type Client struct {
	client *redis.Client
	config *Config
	logger *slog.Logger
}

// NewClient creates a Redis client and verifies it with PING
func NewClient(config *Config, logger *slog.Logger) (*Client, error) {
	addr := fmt.Sprintf("%s:%d", config.Host, config.Port)

	rdb := redis.NewClient(&redis.Options{
		Addr:        addr,
		Password:    config.Password,
		DB:          config.DB,
		DialTimeout: config.DialTimeout,
	})

	attempts := config.RetryAttempts
	if attempts <= 0 {
		attempts = 1
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		logger.Info("Connecting to Redis",
			slog.String("addr", addr),
			slog.Int("attempt", attempt),
			slog.Int("max_attempts", attempts),
		)

		if err = rdb.Ping().Err(); err == nil {
			break
		}

		logger.Error("Failed to ping Redis",
			slog.Any("error", err),
			slog.Int("attempt", attempt),
		)

		if attempt < attempts {
			time.Sleep(config.RetryInterval)
		}
	}

	if err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis after %d attempts: %w", attempts, err)
	}

	logger.Info("Successfully connected to Redis", slog.String("addr", addr))

	return &Client{client: rdb, config: config, logger: logger}, nil
}

// Publish sends payload to every subscriber of channel
func (c *Client) Publish(ctx context.Context, channel string, payload []byte) error {
	receivers, err := c.client.WithContext(ctx).Publish(channel, payload).Result()
	if err != nil {
		return fmt.Errorf("failed to publish to %s: %w", channel, err)
	}

	c.logger.Debug("Message published to Redis",
		slog.String("channel", channel),
		slog.Int64("receivers", receivers),
		slog.Int("body_size", len(payload)),
	)
	return nil
}

// Subscribe subscribes to channel and waits for the server confirmation
func (c *Client) Subscribe(channel string) (*Subscription, error) {
	pubsub := c.client.Subscribe(channel)

	if _, err := pubsub.Receive(); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", channel, err)
	}

	c.logger.Info("Subscribed to Redis channel", slog.String("channel", channel))

	sub := &Subscription{
		pubsub:   pubsub,
		messages: make(chan []byte),
		done:     make(chan struct{}),
	}
	go sub.pump()

	return sub, nil
}

// Ping checks the connection
func (c *Client) Ping(ctx context.Context) error {
	return c.client.WithContext(ctx).Ping().Err()
}

// Close closes the underlying connection pool
func (c *Client) Close() error {
	c.logger.Info("Closing Redis connection")
	if err := c.client.Close(); err != nil {
		c.logger.Error("Failed to close Redis connection", slog.Any("error", err))
		return err
	}
	return nil
}

// Subscription delivers raw payloads from one Redis channel
type Subscription struct {
	pubsub    *redis.PubSub
	messages  chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

func (s *Subscription) pump() {
	defer close(s.messages)

	for msg := range s.pubsub.Channel() {
		select {
		case s.messages <- []byte(msg.Payload):
		case <-s.done:
			return
		}
	}
}

// Messages is closed once the subscription is closed
func (s *Subscription) Messages() <-chan []byte {
	return s.messages
}

// Close unsubscribes and stops delivery
func (s *Subscription) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.done)
		err = s.pubsub.Close()
	})
	return err
}
