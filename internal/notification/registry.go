// Package notification keeps the server-push connections of the API process
// and fans progress events out to them.
package notification

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cuongbtq/employee-ingest/internal/metrics"
)

// DefaultHeartbeatInterval keeps idle streams open through proxies
const DefaultHeartbeatInterval = 30 * time.Second

// ErrSubscriberClosed is returned when writing to a disconnected subscriber
var ErrSubscriberClosed = errors.New("subscriber closed")

// Subscriber is one long-lived client stream
type Subscriber interface {
	ID() string
	Send(event string, data []byte) error
	Heartbeat() error
	// Done is closed once the subscriber is closed or the client goes away
	Done() <-chan struct{}
	Close() error
}

// Registry holds the connected subscribers. It is safe for concurrent use.
type Registry struct {
	mu          sync.RWMutex
	subscribers map[string]Subscriber
	logger      *slog.Logger
}

func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		subscribers: make(map[string]Subscriber),
		logger:      logger,
	}
}

// Add registers sub
func (r *Registry) Add(sub Subscriber) {
	r.mu.Lock()
	r.subscribers[sub.ID()] = sub
	count := len(r.subscribers)
	r.mu.Unlock()

	metrics.Subscribers.Inc()
	r.logger.Info("Subscriber connected",
		slog.String("subscriber_id", sub.ID()),
		slog.Int("subscribers", count),
	)
}

// Remove unregisters and closes the subscriber with id. It reports whether
// the subscriber was registered.
func (r *Registry) Remove(id string) bool {
	r.mu.Lock()
	sub, ok := r.subscribers[id]
	delete(r.subscribers, id)
	count := len(r.subscribers)
	r.mu.Unlock()

	if !ok {
		return false
	}

	_ = sub.Close()
	metrics.Subscribers.Dec()
	r.logger.Info("Subscriber disconnected",
		slog.String("subscriber_id", id),
		slog.Int("subscribers", count),
	)
	return true
}

// Len returns the number of connected subscribers
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.subscribers)
}

// Broadcast writes one frame to every subscriber and returns how many received
// it. Writes run in parallel so a slow client only delays its own frame.
// Subscribers whose write fails are removed; the others are unaffected.
func (r *Registry) Broadcast(event string, data []byte) int {
	r.mu.RLock()
	snapshot := make([]Subscriber, 0, len(r.subscribers))
	for _, sub := range r.subscribers {
		snapshot = append(snapshot, sub)
	}
	r.mu.RUnlock()

	var (
		wg        sync.WaitGroup
		delivered atomic.Int64
	)
	for _, sub := range snapshot {
		wg.Add(1)
		go func(sub Subscriber) {
			defer wg.Done()
			if err := sub.Send(event, data); err != nil {
				metrics.BroadcastFrames.WithLabelValues("failed").Inc()
				r.logger.Warn("Failed to write to subscriber, removing",
					slog.String("subscriber_id", sub.ID()),
					slog.String("event", event),
					slog.String("error", err.Error()),
				)
				r.Remove(sub.ID())
				return
			}
			metrics.BroadcastFrames.WithLabelValues("delivered").Inc()
			delivered.Add(1)
		}(sub)
	}
	wg.Wait()
	return int(delivered.Load())
}

// Serve registers sub and keeps it alive with heartbeats until ctx ends, the
// subscriber closes, or a heartbeat fails. sub is removed on return.
func (r *Registry) Serve(ctx context.Context, sub Subscriber, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultHeartbeatInterval
	}

	r.Add(sub)
	defer r.Remove(sub.ID())

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-sub.Done():
			return
		case <-ticker.C:
			if err := sub.Heartbeat(); err != nil {
				r.logger.Warn("Heartbeat failed, removing subscriber",
					slog.String("subscriber_id", sub.ID()),
					slog.String("error", err.Error()),
				)
				return
			}
		}
	}
}

// CloseAll disconnects every subscriber
func (r *Registry) CloseAll() {
	r.mu.RLock()
	ids := make([]string, 0, len(r.subscribers))
	for id := range r.subscribers {
		ids = append(ids, id)
	}
	r.mu.RUnlock()

	for _, id := range ids {
		r.Remove(id)
	}
}
