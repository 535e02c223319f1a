package repository

import (
	"context"

	"github.com/google/uuid"

	"beam/internal/domain"
)

type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	ListExcluding(ctx context.Context, id uuid.UUID) ([]domain.User, error)
	UpdateAvatar(ctx context.Context, id uuid.UUID, avatarURL string) (*domain.User, error)
}

type MessageRepository interface {
	Create(ctx context.Context, msg *domain.Message) error
	ListBetween(ctx context.Context, userA, userB uuid.UUID) ([]domain.Message, error)
}
