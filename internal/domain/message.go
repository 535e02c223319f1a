package domain

import (
	"time"

	"github.com/google/uuid"
)

// Message is immutable once created. At least one of Text/ImageURL is set.
type Message struct {
	ID         uuid.UUID `json:"id"`
	SenderID   uuid.UUID `json:"senderId"`
	ReceiverID uuid.UUID `json:"receiverId"`
	Text       *string   `json:"text,omitempty"`
	ImageURL   *string   `json:"image,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}
