package notification

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/cuongbtq/employee-ingest/internal/events"
)

const writeWait = 10 * time.Second

// Upgrader accepts any origin; the stream carries no user data
var Upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WebSocketSubscriber sends each event as a JSON envelope text frame
type WebSocketSubscriber struct {
	id        string
	conn      *websocket.Conn
	mu        sync.Mutex
	done      chan struct{}
	closeOnce sync.Once
}

// NewWebSocketSubscriber takes ownership of conn. Client frames are read and
// discarded so that a close from the client is noticed.
func NewWebSocketSubscriber(conn *websocket.Conn) *WebSocketSubscriber {
	s := &WebSocketSubscriber{
		id:   uuid.New().String(),
		conn: conn,
		done: make(chan struct{}),
	}
	go s.readLoop()
	return s
}

func (s *WebSocketSubscriber) ID() string {
	return s.id
}

func (s *WebSocketSubscriber) Send(event string, data []byte) error {
	if !json.Valid(data) {
		data, _ = json.Marshal(string(data))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isClosed() {
		return ErrSubscriberClosed
	}
	if err := s.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return fmt.Errorf("failed to set write deadline: %w", err)
	}
	if err := s.conn.WriteJSON(events.Envelope{Event: event, Data: data}); err != nil {
		return fmt.Errorf("failed to write frame: %w", err)
	}
	return nil
}

// Heartbeat sends a ping control frame
func (s *WebSocketSubscriber) Heartbeat() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isClosed() {
		return ErrSubscriberClosed
	}
	if err := s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
		return fmt.Errorf("failed to write ping: %w", err)
	}
	return nil
}

func (s *WebSocketSubscriber) Done() <-chan struct{} {
	return s.done
}

func (s *WebSocketSubscriber) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.done)
		err = s.conn.Close()
	})
	return err
}

func (s *WebSocketSubscriber) isClosed() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

func (s *WebSocketSubscriber) readLoop() {
	defer s.Close()
	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			return
		}
	}
}
