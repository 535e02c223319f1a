// Package chat validates, persists and fans out direct messages.
package chat

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"beam/internal/domain"
	"beam/internal/repository"
)

var (
	ErrMissingReceiver = errors.New("receiver id is required")
	ErrMissingContent  = errors.New("message text or image is required")
	ErrInvalidImage    = errors.New("invalid image payload")
	ErrUploadFailed    = errors.New("image upload failed")
)

// Notifier delivers a persisted message to the receiver if they hold a live
// connection. Best-effort, at-most-once: implementations never report back.
type Notifier interface {
	NotifyNewMessage(msg *domain.Message)
}

// Uploader stores an image blob and returns its public URL.
type Uploader interface {
	Upload(ctx context.Context, data []byte, contentType, folder string) (string, error)
}

type Service struct {
	messages repository.MessageRepository
	users    repository.UserRepository
	uploader Uploader
	notifier Notifier
}

func NewService(messages repository.MessageRepository, users repository.UserRepository, uploader Uploader) *Service {
	return &Service{
		messages: messages,
		users:    users,
		uploader: uploader,
	}
}

// SetNotifier sets the real-time notifier (optional dependency).
func (s *Service) SetNotifier(n Notifier) {
	s.notifier = n
}

type SendInput struct {
	Text  string `json:"text"`
	Image string `json:"image"` // base64, optionally a data: URI
}

// Send validates, uploads any image, persists the message and pushes it to
// the receiver when they are online. The durable write is the commit point;
// the push outcome never reaches the sender.
func (s *Service) Send(ctx context.Context, senderID, receiverID uuid.UUID, input SendInput) (*domain.Message, error) {
	if receiverID == uuid.Nil {
		return nil, ErrMissingReceiver
	}
	if input.Text == "" && input.Image == "" {
		return nil, ErrMissingContent
	}

	msg := &domain.Message{
		ID:         uuid.New(),
		SenderID:   senderID,
		ReceiverID: receiverID,
		CreatedAt:  time.Now(),
	}
	if input.Text != "" {
		text := input.Text
		msg.Text = &text
	}

	// Upload before persisting so a storage failure leaves no partial write.
	if input.Image != "" {
		data, contentType, err := decodeImagePayload(input.Image)
		if err != nil {
			return nil, err
		}
		url, err := s.uploader.Upload(ctx, data, contentType, "chat-images")
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUploadFailed, err)
		}
		msg.ImageURL = &url
	}

	if err := s.messages.Create(ctx, msg); err != nil {
		return nil, fmt.Errorf("creating message: %w", err)
	}

	if s.notifier != nil {
		s.notifier.NotifyNewMessage(msg)
	}

	return msg, nil
}

// History returns the conversation between two users, oldest first. The
// result is symmetric in its arguments.
func (s *Service) History(ctx context.Context, userA, userB uuid.UUID) ([]domain.Message, error) {
	messages, err := s.messages.ListBetween(ctx, userA, userB)
	if err != nil {
		return nil, err
	}
	if messages == nil {
		messages = []domain.Message{}
	}
	return messages, nil
}

// ListPeers returns every user except the caller.
func (s *Service) ListPeers(ctx context.Context, excluding uuid.UUID) ([]domain.User, error) {
	users, err := s.users.ListExcluding(ctx, excluding)
	if err != nil {
		return nil, err
	}
	if users == nil {
		users = []domain.User{}
	}
	return users, nil
}

// decodeImagePayload accepts either raw base64 or a data: URI and returns
// the decoded bytes with their content type.
func decodeImagePayload(payload string) ([]byte, string, error) {
	contentType := "image/png"

	if strings.HasPrefix(payload, "data:") {
		meta, b64, ok := strings.Cut(payload, ",")
		if !ok {
			return nil, "", ErrInvalidImage
		}
		meta = strings.TrimPrefix(meta, "data:")
		if ct, _, found := strings.Cut(meta, ";"); found && ct != "" {
			contentType = ct
		}
		payload = b64
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, "", ErrInvalidImage
	}
	return data, contentType, nil
}
