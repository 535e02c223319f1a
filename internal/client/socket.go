package client

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"nhooyr.io/websocket"
)

const (
	dialAttempts = 5
	dialDelay    = time.Second
)

// Handler receives the payload of a named server event.
type Handler func(payload json.RawMessage)

// Socket is a long-lived duplex stream whose inbound events are dispatched
// to a subscription table keyed by event name. Subscribe and unsubscribe
// are deterministic and idempotent: one handler per event name, the latest
// registration wins.
type Socket struct {
	conn *websocket.Conn

	mu       sync.Mutex
	handlers map[string]Handler

	done      chan struct{}
	closeOnce sync.Once
}

type socketEvent struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// DialSocket connects to the real-time channel, presenting the claimed user
// id in the handshake. Connection establishment uses bounded retry: up to 5
// attempts with a fixed delay, then gives up.
func DialSocket(ctx context.Context, wsURL string, userID uuid.UUID) (*Socket, error) {
	target := fmt.Sprintf("%s/ws?userId=%s", wsURL, userID)

	var conn *websocket.Conn
	var err error
	for attempt := 1; attempt <= dialAttempts; attempt++ {
		conn, _, err = websocket.Dial(ctx, target, nil)
		if err == nil {
			break
		}
		log.Printf("socket: connect attempt %d/%d failed: %v", attempt, dialAttempts, err)
		if attempt == dialAttempts {
			return nil, fmt.Errorf("connecting after %d attempts: %w", dialAttempts, err)
		}
		select {
		case <-time.After(dialDelay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	s := &Socket{
		conn:     conn,
		handlers: make(map[string]Handler),
		done:     make(chan struct{}),
	}
	go s.readLoop()
	return s, nil
}

// On registers the handler for an event name, replacing any previous one.
func (s *Socket) On(event string, h Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[event] = h
}

// Off removes the handler for an event name. No-op if none is registered.
func (s *Socket) Off(event string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.handlers, event)
}

// Close removes all handlers before discarding the connection, so nothing
// fires into a torn-down state. Safe to call more than once.
func (s *Socket) Close() {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.handlers = make(map[string]Handler)
		s.mu.Unlock()

		close(s.done)
		s.conn.Close(websocket.StatusNormalClosure, "")
	})
}

// Alive reports whether the socket has not been closed locally or by the
// read loop detecting a dropped connection.
func (s *Socket) Alive() bool {
	select {
	case <-s.done:
		return false
	default:
		return true
	}
}

func (s *Socket) readLoop() {
	defer s.Close()

	for {
		_, data, err := s.conn.Read(context.Background())
		if err != nil {
			select {
			case <-s.done:
			default:
				log.Printf("socket: connection lost: %v", err)
			}
			return
		}

		var evt socketEvent
		if err := json.Unmarshal(data, &evt); err != nil {
			log.Printf("socket: bad event frame: %v", err)
			continue
		}

		s.mu.Lock()
		h := s.handlers[evt.Type]
		s.mu.Unlock()

		if h != nil {
			h(evt.Payload)
		}
	}
}
