package client

import (
	"context"
	"encoding/json"
	"log"
	"sync"

	"beam/internal/domain"
)

type State int

const (
	StateUnauthenticated State = iota
	StateChecking
	StateAuthenticated
)

// SessionStore drives login/logout/session-restore and owns the socket
// handle the chat store subscribes through.
type SessionStore struct {
	api   *API
	wsURL string

	// Notify receives short user-facing messages (toasts). Optional.
	Notify func(message string)

	mu     sync.Mutex
	state  State
	user   *domain.User
	busy   bool
	socket *Socket
	online []string
}

func NewSessionStore(api *API, wsURL string) *SessionStore {
	return &SessionStore{api: api, wsURL: wsURL}
}

// CheckAuth attempts to restore the current session. A 401 is the expected
// first-load case and surfaces nothing; any other failure is logged as an
// anomaly. Success connects the socket.
func (s *SessionStore) CheckAuth(ctx context.Context) {
	s.setState(StateChecking)

	user, err := s.api.Check(ctx)
	if err != nil {
		if apiErr, ok := err.(*APIError); ok && apiErr.Status == 401 {
			// Not logged in yet; nothing to report.
		} else {
			log.Printf("session: unexpected auth check failure: %v", err)
		}
		s.setUser(nil)
		s.setState(StateUnauthenticated)
		return
	}

	s.setUser(user)
	s.setState(StateAuthenticated)
	s.connectSocket(ctx)
}

func (s *SessionStore) Login(ctx context.Context, email, password string) error {
	s.setBusy(true)
	defer s.setBusy(false)

	sess, err := s.api.Login(ctx, email, password)
	if err != nil {
		s.notifyError(err)
		return err
	}

	s.setUser(&sess.User)
	s.setState(StateAuthenticated)
	s.connectSocket(ctx)
	return nil
}

func (s *SessionStore) Signup(ctx context.Context, fullName, email, password string) error {
	s.setBusy(true)
	defer s.setBusy(false)

	sess, err := s.api.Signup(ctx, fullName, email, password)
	if err != nil {
		s.notifyError(err)
		return err
	}

	s.setUser(&sess.User)
	s.setState(StateAuthenticated)
	s.connectSocket(ctx)
	return nil
}

// Logout clears authenticated state and tears down the socket. Idempotent
// if already disconnected.
func (s *SessionStore) Logout(ctx context.Context) {
	if err := s.api.Logout(ctx); err != nil {
		s.notifyError(err)
	}

	s.mu.Lock()
	socket := s.socket
	s.socket = nil
	s.user = nil
	s.state = StateUnauthenticated
	s.online = nil
	s.mu.Unlock()

	if socket != nil {
		socket.Close()
	}
}

// connectSocket is idempotent: a no-op if a live connection already exists
// for the current session.
func (s *SessionStore) connectSocket(ctx context.Context) {
	s.mu.Lock()
	user := s.user
	if user == nil || (s.socket != nil && s.socket.Alive()) {
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	socket, err := DialSocket(ctx, s.wsURL, user.ID)
	if err != nil {
		// Real-time failures never block REST functionality.
		log.Printf("session: socket connect failed: %v", err)
		s.notify("Connection failed - some features may not work")
		return
	}

	socket.On("getOnlineUsers", func(payload json.RawMessage) {
		var ids []string
		if err := json.Unmarshal(payload, &ids); err != nil {
			log.Printf("session: bad online-users payload: %v", err)
			return
		}
		s.mu.Lock()
		s.online = ids
		s.mu.Unlock()
	})

	s.mu.Lock()
	s.socket = socket
	s.mu.Unlock()
}

func (s *SessionStore) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *SessionStore) User() *domain.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user
}

func (s *SessionStore) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.busy
}

func (s *SessionStore) OnlineUsers() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.online))
	copy(out, s.online)
	return out
}

// Socket returns the live socket handle, or nil when disconnected.
func (s *SessionStore) Socket() *Socket {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.socket
}

func (s *SessionStore) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

func (s *SessionStore) setUser(u *domain.User) {
	s.mu.Lock()
	s.user = u
	s.mu.Unlock()
}

func (s *SessionStore) setBusy(b bool) {
	s.mu.Lock()
	s.busy = b
	s.mu.Unlock()
}

func (s *SessionStore) notify(message string) {
	if s.Notify != nil {
		s.Notify(message)
	}
}

// notifyError maps known reason codes to user-facing copy, with a generic
// fallback for anything unmapped.
func (s *SessionStore) notifyError(err error) {
	apiErr, ok := err.(*APIError)
	if !ok {
		s.notify("Network error - please check your connection")
		return
	}

	switch apiErr.Code {
	case "INVALID_CREDENTIALS":
		s.notify("Invalid email or password")
	case "EMAIL_EXISTS":
		s.notify("An account with this email already exists")
	case "PASSWORD_TOO_SHORT":
		s.notify("Password must be at least 6 characters long")
	case "MISSING_FIELDS":
		s.notify("Please fill in all required fields")
	default:
		if apiErr.Message != "" {
			s.notify(apiErr.Message)
		} else {
			s.notify("Something went wrong")
		}
	}
}
