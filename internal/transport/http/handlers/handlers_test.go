package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"beam/internal/auth"
	"beam/internal/chat"
	"beam/internal/config"
	"beam/internal/domain"
	"beam/internal/transport/http/middleware"
)

// ---- in-memory repos ----

type memUserRepo struct {
	users map[uuid.UUID]*domain.User
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{users: make(map[uuid.UUID]*domain.User)}
}

func (r *memUserRepo) Create(ctx context.Context, u *domain.User) error {
	cp := *u
	r.users[u.ID] = &cp
	return nil
}

func (r *memUserRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	return r.users[id], nil
}

func (r *memUserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	for _, u := range r.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, nil
}

func (r *memUserRepo) ListExcluding(ctx context.Context, id uuid.UUID) ([]domain.User, error) {
	var out []domain.User
	for _, u := range r.users {
		if u.ID != id {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (r *memUserRepo) UpdateAvatar(ctx context.Context, id uuid.UUID, url string) (*domain.User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, nil
	}
	u.AvatarURL = &url
	return u, nil
}

type memMessageRepo struct {
	messages []domain.Message
}

func (r *memMessageRepo) Create(ctx context.Context, msg *domain.Message) error {
	r.messages = append(r.messages, *msg)
	return nil
}

func (r *memMessageRepo) ListBetween(ctx context.Context, a, b uuid.UUID) ([]domain.Message, error) {
	var out []domain.Message
	for _, m := range r.messages {
		if (m.SenderID == a && m.ReceiverID == b) || (m.SenderID == b && m.ReceiverID == a) {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

type stubUploader struct{}

func (stubUploader) Upload(ctx context.Context, data []byte, contentType, folder string) (string, error) {
	return "https://img.test/blob", nil
}

// ---- fixture ----

func newAPI(t *testing.T) http.Handler {
	t.Helper()

	cfg := &config.Config{Env: "development"}
	userRepo := newMemUserRepo()
	msgRepo := &memMessageRepo{}

	authService := auth.NewService(userRepo, "test-secret", stubUploader{})
	chatService := chat.NewService(msgRepo, userRepo, stubUploader{})

	authHandler := NewAuthHandler(authService, cfg)
	messageHandler := NewMessageHandler(chatService)
	session := middleware.Session(authService)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/signup", authHandler.Signup)
	mux.HandleFunc("POST /api/auth/login", authHandler.Login)
	mux.HandleFunc("POST /api/auth/logout", authHandler.Logout)
	mux.Handle("GET /api/auth/check", session(http.HandlerFunc(authHandler.Check)))
	mux.Handle("GET /api/message/users", session(http.HandlerFunc(messageHandler.ListUsers)))
	mux.Handle("GET /api/message/{id}", session(http.HandlerFunc(messageHandler.History)))
	mux.Handle("POST /api/message/send/{id}", session(http.HandlerFunc(messageHandler.Send)))
	return mux
}

func doJSON(t *testing.T, h http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var envelope struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	return envelope.Error.Code
}

func signup(t *testing.T, h http.Handler, fullName, email, password string) auth.AuthResponse {
	t.Helper()
	rec := doJSON(t, h, http.MethodPost, "/api/auth/signup", "", map[string]string{
		"fullName": fullName, "email": email, "password": password,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp auth.AuthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

// ---- tests ----

func TestSignupLoginRoundtrip(t *testing.T) {
	h := newAPI(t)

	created := signup(t, h, "Ann", "ann@x.com", "secret1")
	require.NotEmpty(t, created.Token)
	require.Equal(t, "Ann", created.User.FullName)

	rec := doJSON(t, h, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "ann@x.com", "password": "secret1",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var logged auth.AuthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &logged))
	require.Equal(t, created.User.ID, logged.User.ID)

	rec = doJSON(t, h, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "ann@x.com", "password": "wrong",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "INVALID_CREDENTIALS", errorCode(t, rec))
}

func TestSignupValidationCodes(t *testing.T) {
	h := newAPI(t)

	rec := doJSON(t, h, http.MethodPost, "/api/auth/signup", "", map[string]string{
		"fullName": "Ann", "email": "ann@x.com",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "MISSING_FIELDS", errorCode(t, rec))

	rec = doJSON(t, h, http.MethodPost, "/api/auth/signup", "", map[string]string{
		"fullName": "Ann", "email": "ann@x.com", "password": "short",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "PASSWORD_TOO_SHORT", errorCode(t, rec))

	signup(t, h, "Ann", "ann@x.com", "secret1")
	rec = doJSON(t, h, http.MethodPost, "/api/auth/signup", "", map[string]string{
		"fullName": "Ann Again", "email": "ann@x.com", "password": "secret2",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "EMAIL_EXISTS", errorCode(t, rec))
}

func TestSignupSetsSessionCookie(t *testing.T) {
	h := newAPI(t)

	rec := doJSON(t, h, http.MethodPost, "/api/auth/signup", "", map[string]string{
		"fullName": "Ann", "email": "ann@x.com", "password": "secret1",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	c := cookies[0]
	require.Equal(t, "token", c.Name)
	require.NotEmpty(t, c.Value)
	require.True(t, c.HttpOnly)
	require.False(t, c.Secure, "secure only in production")
	require.Equal(t, http.SameSiteLaxMode, c.SameSite)
	require.InDelta(t, 7*24*time.Hour/time.Second, c.MaxAge, 1)
}

func TestCheckRequiresSession(t *testing.T) {
	h := newAPI(t)

	rec := doJSON(t, h, http.MethodGet, "/api/auth/check", "", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	require.Equal(t, "NOT_AUTHENTICATED", errorCode(t, rec))

	created := signup(t, h, "Ann", "ann@x.com", "secret1")
	rec = doJSON(t, h, http.MethodGet, "/api/auth/check", created.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var user domain.User
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &user))
	require.Equal(t, created.User.ID, user.ID)
	require.NotContains(t, rec.Body.String(), "password")
}

func TestCheckAcceptsCookie(t *testing.T) {
	h := newAPI(t)
	created := signup(t, h, "Ann", "ann@x.com", "secret1")

	req := httptest.NewRequest(http.MethodGet, "/api/auth/check", nil)
	req.AddCookie(&http.Cookie{Name: "token", Value: created.Token})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestLogout(t *testing.T) {
	h := newAPI(t)

	rec := doJSON(t, h, http.MethodPost, "/api/auth/logout", "", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "NO_TOKEN", errorCode(t, rec))

	created := signup(t, h, "Ann", "ann@x.com", "secret1")
	req := httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil)
	req.AddCookie(&http.Cookie{Name: "token", Value: created.Token})
	out := httptest.NewRecorder()
	h.ServeHTTP(out, req)
	require.Equal(t, http.StatusOK, out.Code)

	cleared := out.Result().Cookies()
	require.Len(t, cleared, 1)
	require.Negative(t, cleared[0].MaxAge)
}

func TestSendAndHistory(t *testing.T) {
	h := newAPI(t)
	ann := signup(t, h, "Ann", "ann@x.com", "secret1")
	bob := signup(t, h, "Bob", "bob@x.com", "secret1")

	rec := doJSON(t, h, http.MethodPost, "/api/message/send/"+bob.User.ID.String(), ann.Token, map[string]string{"text": "hi"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var sent domain.Message
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sent))
	require.Equal(t, ann.User.ID, sent.SenderID)
	require.Equal(t, "hi", *sent.Text)

	// Both participants see the same single-entry history.
	for _, tok := range []string{ann.Token, bob.Token} {
		var peer uuid.UUID
		if tok == ann.Token {
			peer = bob.User.ID
		} else {
			peer = ann.User.ID
		}
		rec = doJSON(t, h, http.MethodGet, "/api/message/"+peer.String(), tok, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var msgs []domain.Message
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &msgs))
		require.Len(t, msgs, 1)
		require.Equal(t, sent.ID, msgs[0].ID)
	}
}

func TestSendRejectsEmptyBody(t *testing.T) {
	h := newAPI(t)
	ann := signup(t, h, "Ann", "ann@x.com", "secret1")
	bob := signup(t, h, "Bob", "bob@x.com", "secret1")

	rec := doJSON(t, h, http.MethodPost, "/api/message/send/"+bob.User.ID.String(), ann.Token, map[string]string{})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "MISSING_CONTENT", errorCode(t, rec))

	// History unchanged.
	rec = doJSON(t, h, http.MethodGet, "/api/message/"+bob.User.ID.String(), ann.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, "[]", rec.Body.String())
}

func TestHistoryRejectsMalformedID(t *testing.T) {
	h := newAPI(t)
	ann := signup(t, h, "Ann", "ann@x.com", "secret1")

	rec := doJSON(t, h, http.MethodGet, "/api/message/not-a-uuid", ann.Token, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "INVALID_ID_FORMAT", errorCode(t, rec))
}

func TestListUsersExcludesCallerAndPasswords(t *testing.T) {
	h := newAPI(t)
	ann := signup(t, h, "Ann", "ann@x.com", "secret1")
	signup(t, h, "Bob", "bob@x.com", "secret1")

	rec := doJSON(t, h, http.MethodGet, "/api/message/users", ann.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var users []domain.User
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &users))
	require.Len(t, users, 1)
	require.Equal(t, "Bob", users[0].FullName)
	require.NotContains(t, rec.Body.String(), "password")
}
