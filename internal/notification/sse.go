package notification

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrWriteTimeout is returned when a client does not accept a frame in time
var ErrWriteTimeout = errors.New("write timed out")

// SSESubscriber writes text/event-stream frames to one HTTP response
type SSESubscriber struct {
	id           string
	w            http.ResponseWriter
	rc           *http.ResponseController
	writeTimeout time.Duration

	// writeMu is held while a frame is on the wire, mu guards the state below
	writeMu    sync.Mutex
	mu         sync.Mutex
	closed     bool
	done       chan struct{}
	lastActive time.Time
}

// NewSSESubscriber prepares w for streaming and sends the connected frame
func NewSSESubscriber(w http.ResponseWriter) (*SSESubscriber, error) {
	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache, no-transform")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")

	rc := http.NewResponseController(w)
	// the stream stays open indefinitely
	if err := rc.SetReadDeadline(time.Time{}); err != nil && !errors.Is(err, http.ErrNotSupported) {
		return nil, fmt.Errorf("failed to clear read deadline: %w", err)
	}
	if err := rc.SetWriteDeadline(time.Time{}); err != nil && !errors.Is(err, http.ErrNotSupported) {
		return nil, fmt.Errorf("failed to clear write deadline: %w", err)
	}

	s := &SSESubscriber{
		id:           uuid.New().String(),
		w:            w,
		rc:           rc,
		writeTimeout: writeWait,
		done:         make(chan struct{}),
	}

	w.WriteHeader(http.StatusOK)
	if err := s.Send("connected", []byte("connected")); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SSESubscriber) ID() string {
	return s.id
}

// Send writes one event frame. Multi-line data is split into data lines.
func (s *SSESubscriber) Send(event string, data []byte) error {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "event: %s\n", event)
	for _, line := range bytes.Split(data, []byte("\n")) {
		buf.WriteString("data: ")
		buf.Write(line)
		buf.WriteByte('\n')
	}
	buf.WriteByte('\n')
	return s.write(buf.Bytes())
}

// Heartbeat writes a comment frame
func (s *SSESubscriber) Heartbeat() error {
	return s.write([]byte(": heartbeat\n\n"))
}

func (s *SSESubscriber) Done() <-chan struct{} {
	return s.done
}

// LastActive is the time of the last successful write
func (s *SSESubscriber) LastActive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}

// Close stops further writes. The response itself ends when the handler returns.
func (s *SSESubscriber) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.done)
	}
	return nil
}

// Wait blocks until no frame is being written. The handler calls it before
// returning so a timed out write never touches a finished response.
func (s *SSESubscriber) Wait() {
	s.writeMu.Lock()
	s.writeMu.Unlock()
}

func (s *SSESubscriber) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// write sends frame within writeTimeout. A client that does not drain its
// connection in time is closed so the caller can drop it.
func (s *SSESubscriber) write(frame []byte) error {
	if s.isClosed() {
		return ErrSubscriberClosed
	}

	result := make(chan error, 1)
	go func() {
		s.writeMu.Lock()
		defer s.writeMu.Unlock()
		result <- s.writeFrame(frame)
	}()

	timer := time.NewTimer(s.writeTimeout)
	defer timer.Stop()

	select {
	case err := <-result:
		if err != nil {
			return err
		}
		s.mu.Lock()
		s.lastActive = time.Now()
		s.mu.Unlock()
		return nil
	case <-timer.C:
		_ = s.Close()
		return fmt.Errorf("failed to write frame: %w", ErrWriteTimeout)
	}
}

func (s *SSESubscriber) writeFrame(frame []byte) error {
	if s.isClosed() {
		return ErrSubscriberClosed
	}

	if err := s.rc.SetWriteDeadline(time.Now().Add(s.writeTimeout)); err != nil && !errors.Is(err, http.ErrNotSupported) {
		return fmt.Errorf("failed to set write deadline: %w", err)
	}
	defer func() { _ = s.rc.SetWriteDeadline(time.Time{}) }()

	if _, err := s.w.Write(frame); err != nil {
		return fmt.Errorf("failed to write frame: %w", err)
	}
	if err := s.rc.Flush(); err != nil {
		return fmt.Errorf("failed to flush frame: %w", err)
	}
	return nil
}
