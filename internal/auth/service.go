// Package auth owns accounts and session tokens: signup/login, stateless
// JWT issue/verify, and profile updates.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"beam/internal/domain"
	"beam/internal/repository"
)

var (
	ErrEmailTaken   = errors.New("email already registered")
	ErrInvalidCreds = errors.New("invalid email or password")
	ErrUserNotFound = errors.New("user not found")
	ErrUploadFailed = errors.New("image upload failed")
)

// Uploader stores an image blob and returns its public URL.
type Uploader interface {
	Upload(ctx context.Context, data []byte, contentType, folder string) (string, error)
}

type Service struct {
	users     repository.UserRepository
	jwtSecret []byte
	uploader  Uploader
}

func NewService(users repository.UserRepository, jwtSecret string, uploader Uploader) *Service {
	return &Service{
		users:     users,
		jwtSecret: []byte(jwtSecret),
		uploader:  uploader,
	}
}

type SignupInput struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse carries the token in the body as well as the cookie, for
// clients that cannot rely on cross-site cookies.
type AuthResponse struct {
	User  *domain.User `json:"user"`
	Token string       `json:"token"`
}

func (s *Service) Signup(ctx context.Context, input SignupInput) (*AuthResponse, error) {
	existing, err := s.users.GetByEmail(ctx, input.Email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrEmailTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	now := time.Now()
	user := &domain.User{
		ID:           uuid.New(),
		FullName:     input.FullName,
		Email:        input.Email,
		PasswordHash: string(hash),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("creating user: %w", err)
	}

	token, err := s.Issue(user.ID)
	if err != nil {
		return nil, fmt.Errorf("generating token: %w", err)
	}

	return &AuthResponse{User: user, Token: token}, nil
}

func (s *Service) Login(ctx context.Context, input LoginInput) (*AuthResponse, error) {
	user, err := s.users.GetByEmail(ctx, input.Email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrInvalidCreds
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)) != nil {
		return nil, ErrInvalidCreds
	}

	token, err := s.Issue(user.ID)
	if err != nil {
		return nil, fmt.Errorf("generating token: %w", err)
	}

	return &AuthResponse{User: user, Token: token}, nil
}

// UpdateAvatar uploads the picture first; the user row is only touched once
// the blob store accepted the upload.
func (s *Service) UpdateAvatar(ctx context.Context, userID uuid.UUID, data []byte, contentType string) (*domain.User, error) {
	url, err := s.uploader.Upload(ctx, data, contentType, "profile-pics")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}

	user, err := s.users.UpdateAvatar(ctx, userID, url)
	if err != nil {
		return nil, fmt.Errorf("updating avatar: %w", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}
