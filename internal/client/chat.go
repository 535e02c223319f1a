package client

import (
	"context"
	"encoding/json"
	"log"
	"sync"

	"github.com/google/uuid"

	"beam/internal/domain"
)

// ChatStore holds the active peer selection, the loaded message list for
// that peer, and the live-event subscription scoped to it. Events from any
// other peer are discarded; a peer switch re-fetches history instead of
// replaying buffered events.
type ChatStore struct {
	api     *API
	session *SessionStore

	// OnMessage fires for each live message appended to the active
	// conversation. Optional.
	OnMessage func(msg domain.Message)

	mu       sync.Mutex
	selected uuid.UUID
	messages []domain.Message
}

func NewChatStore(api *API, session *SessionStore) *ChatStore {
	return &ChatStore{api: api, session: session}
}

// SelectPeer switches the active conversation: unsubscribe the old peer,
// fetch the new peer's history, subscribe to its live events.
func (c *ChatStore) SelectPeer(ctx context.Context, peerID uuid.UUID) error {
	c.Unsubscribe()

	history, err := c.api.History(ctx, peerID)
	if err != nil {
		c.mu.Lock()
		c.selected = uuid.Nil
		c.messages = nil
		c.mu.Unlock()
		return err
	}

	c.mu.Lock()
	c.selected = peerID
	c.messages = history
	c.mu.Unlock()

	c.subscribe()
	return nil
}

// Send posts a message to the selected peer and appends the persisted
// result to the local list.
func (c *ChatStore) Send(ctx context.Context, text, image string) (*domain.Message, error) {
	c.mu.Lock()
	peer := c.selected
	c.mu.Unlock()

	msg, err := c.api.SendMessage(ctx, peer, text, image)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.messages = append(c.messages, *msg)
	c.mu.Unlock()
	return msg, nil
}

func (c *ChatStore) Messages() []domain.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]domain.Message, len(c.messages))
	copy(out, c.messages)
	return out
}

func (c *ChatStore) SelectedPeer() uuid.UUID {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selected
}

// Unsubscribe tears down the live subscription. Must run before switching
// peers so handlers do not accumulate across conversation switches.
func (c *ChatStore) Unsubscribe() {
	socket := c.session.Socket()
	if socket != nil {
		socket.Off("newMessage")
	}
}

func (c *ChatStore) subscribe() {
	socket := c.session.Socket()
	if socket == nil {
		log.Printf("chat: no socket connection, live updates disabled")
		return
	}

	socket.On("newMessage", func(payload json.RawMessage) {
		var msg domain.Message
		if err := json.Unmarshal(payload, &msg); err != nil {
			log.Printf("chat: bad message payload: %v", err)
			return
		}

		c.mu.Lock()
		// Only the active conversation is live; anything else re-fetches
		// on selection.
		if msg.SenderID != c.selected {
			c.mu.Unlock()
			return
		}
		// Appended as delivered; history refetch restores total order.
		c.messages = append(c.messages, msg)
		c.mu.Unlock()

		if c.OnMessage != nil {
			c.OnMessage(msg)
		}
	})
}
