// Package client implements the consumer side of the service: a REST API
// client, a live event socket, and the session/chat state stores driving
// them.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/cookiejar"

	"github.com/google/uuid"

	"beam/internal/domain"
)

// APIError is a REST failure decoded from the server's error envelope.
// Errors never cross the store boundary as panics; every call returns one.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api: %d %s: %s", e.Status, e.Code, e.Message)
}

// Session is the authenticated user plus the token mirrored in the body for
// cookie-less contexts.
type Session struct {
	User  domain.User `json:"user"`
	Token string      `json:"token"`
}

type API struct {
	baseURL string
	http    *http.Client
	token   string // Bearer fallback when cookies cannot round-trip
}

func NewAPI(baseURL string) (*API, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	return &API{
		baseURL: baseURL,
		http:    &http.Client{Jar: jar},
	}, nil
}

func (a *API) Signup(ctx context.Context, fullName, email, password string) (*Session, error) {
	var out Session
	err := a.do(ctx, http.MethodPost, "/api/auth/signup", map[string]string{
		"fullName": fullName,
		"email":    email,
		"password": password,
	}, &out)
	if err != nil {
		return nil, err
	}
	a.token = out.Token
	return &out, nil
}

func (a *API) Login(ctx context.Context, email, password string) (*Session, error) {
	var out Session
	err := a.do(ctx, http.MethodPost, "/api/auth/login", map[string]string{
		"email":    email,
		"password": password,
	}, &out)
	if err != nil {
		return nil, err
	}
	a.token = out.Token
	return &out, nil
}

func (a *API) Logout(ctx context.Context) error {
	err := a.do(ctx, http.MethodPost, "/api/auth/logout", nil, nil)
	if err == nil {
		a.token = ""
	}
	return err
}

func (a *API) Check(ctx context.Context) (*domain.User, error) {
	var out domain.User
	if err := a.do(ctx, http.MethodGet, "/api/auth/check", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (a *API) Peers(ctx context.Context) ([]domain.User, error) {
	var out []domain.User
	if err := a.do(ctx, http.MethodGet, "/api/message/users", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (a *API) History(ctx context.Context, peerID uuid.UUID) ([]domain.Message, error) {
	var out []domain.Message
	if err := a.do(ctx, http.MethodGet, "/api/message/"+peerID.String(), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (a *API) SendMessage(ctx context.Context, peerID uuid.UUID, text, image string) (*domain.Message, error) {
	var out domain.Message
	err := a.do(ctx, http.MethodPost, "/api/message/send/"+peerID.String(), map[string]string{
		"text":  text,
		"image": image,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (a *API) do(ctx context.Context, method, path string, body, out any) error {
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if a.token != "" {
		req.Header.Set("Authorization", "Bearer "+a.token)
	}

	resp, err := a.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return decodeError(resp)
	}

	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode, Code: "UNKNOWN", Message: resp.Status}

	var envelope struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err == nil && envelope.Error.Code != "" {
		apiErr.Code = envelope.Error.Code
		apiErr.Message = envelope.Error.Message
	}
	return apiErr
}
