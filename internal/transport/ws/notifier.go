package ws

import (
	"encoding/json"
	"log"

	"beam/internal/domain"
	"beam/internal/presence"
)

// PushNotifier implements chat.Notifier over the presence registry. A push
// is attempted only when the receiver is online and is never retried: the
// durable write already succeeded, so failures are logged and swallowed.
type PushNotifier struct {
	registry *presence.Registry
}

func NewPushNotifier(registry *presence.Registry) *PushNotifier {
	return &PushNotifier{registry: registry}
}

func (n *PushNotifier) NotifyNewMessage(msg *domain.Message) {
	conn, ok := n.registry.Lookup(msg.ReceiverID)
	if !ok {
		log.Printf("ws: receiver %s offline, message %s stored only", msg.ReceiverID, msg.ID)
		return
	}

	evt, err := NewEvent(EventNewMessage, msg)
	if err != nil {
		log.Printf("ws: marshal error: %v", err)
		return
	}
	data, err := json.Marshal(evt)
	if err != nil {
		log.Printf("ws: marshal error: %v", err)
		return
	}

	if !conn.TrySend(data) {
		log.Printf("ws: push to %s dropped, buffer full", msg.ReceiverID)
	}
}
