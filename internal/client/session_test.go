package client

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type noticeRecorder struct {
	mu      sync.Mutex
	notices []string
}

func (n *noticeRecorder) record(msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notices = append(n.notices, msg)
}

func (n *noticeRecorder) all() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.notices...)
}

func newSession(t *testing.T, ts *testServer) (*SessionStore, *noticeRecorder) {
	t.Helper()
	api, err := NewAPI(ts.URL)
	require.NoError(t, err)

	rec := &noticeRecorder{}
	store := NewSessionStore(api, ts.URL)
	store.Notify = rec.record
	return store, rec
}

func TestCheckAuthUnauthenticatedIsSilent(t *testing.T) {
	ts := newTestServer(t)
	ts.handle("GET /api/auth/check", func(w http.ResponseWriter, r *http.Request) {
		writeTestError(w, http.StatusUnauthorized, "NOT_AUTHENTICATED", "no token")
	})

	store, rec := newSession(t, ts)
	store.CheckAuth(context.Background())

	require.Equal(t, StateUnauthenticated, store.State())
	require.Nil(t, store.User())
	require.Empty(t, rec.all(), "first-load 401 is expected, no toast")
}

func TestCheckAuthRestoresSessionAndConnects(t *testing.T) {
	ts := newTestServer(t)
	user := testUser()
	ts.handle("GET /api/auth/check", func(w http.ResponseWriter, r *http.Request) {
		writeTestJSON(w, http.StatusOK, user)
	})

	store, _ := newSession(t, ts)
	store.CheckAuth(context.Background())

	require.Equal(t, StateAuthenticated, store.State())
	require.Equal(t, user.ID, store.User().ID)
	require.NotNil(t, store.Socket())

	// Presence snapshots flow into the store.
	conn := ts.waitConn(t)
	ts.push(t, conn, "getOnlineUsers", []string{user.ID.String()})
	require.Eventually(t, func() bool {
		return len(store.OnlineUsers()) == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestLoginMapsKnownErrorCodes(t *testing.T) {
	ts := newTestServer(t)
	ts.handle("POST /api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		writeTestError(w, http.StatusBadRequest, "INVALID_CREDENTIALS", "Invalid credentials")
	})

	store, rec := newSession(t, ts)
	err := store.Login(context.Background(), "ann@x.com", "wrong")

	require.Error(t, err)
	require.Equal(t, StateUnauthenticated, store.State())
	require.Equal(t, []string{"Invalid email or password"}, rec.all())
	require.False(t, store.Busy())
}

func TestSignupMapsKnownErrorCodes(t *testing.T) {
	ts := newTestServer(t)
	ts.handle("POST /api/auth/signup", func(w http.ResponseWriter, r *http.Request) {
		writeTestError(w, http.StatusBadRequest, "EMAIL_EXISTS", "User already exists")
	})

	store, rec := newSession(t, ts)
	err := store.Signup(context.Background(), "Ann", "ann@x.com", "secret1")

	require.Error(t, err)
	require.Equal(t, []string{"An account with this email already exists"}, rec.all())
}

func TestUnknownErrorFallsBackToServerMessage(t *testing.T) {
	ts := newTestServer(t)
	ts.handle("POST /api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		writeTestError(w, http.StatusInternalServerError, "SOMETHING_NEW", "Strange failure")
	})

	store, rec := newSession(t, ts)
	_ = store.Login(context.Background(), "ann@x.com", "pw")

	require.Equal(t, []string{"Strange failure"}, rec.all())
}

func TestLoginConnectsSocketOnce(t *testing.T) {
	ts := newTestServer(t)
	user := testUser()
	ts.handle("POST /api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		writeTestJSON(w, http.StatusOK, Session{User: user, Token: "jwt"})
	})

	store, _ := newSession(t, ts)
	require.NoError(t, store.Login(context.Background(), "ann@x.com", "secret1"))
	first := store.Socket()
	require.NotNil(t, first)

	// A second login with a live socket must not replace the connection.
	require.NoError(t, store.Login(context.Background(), "ann@x.com", "secret1"))
	require.Same(t, first, store.Socket())
}

func TestLogoutTearsDownAndIsIdempotent(t *testing.T) {
	ts := newTestServer(t)
	user := testUser()
	ts.handle("POST /api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		writeTestJSON(w, http.StatusOK, Session{User: user, Token: "jwt"})
	})
	ts.handle("POST /api/auth/logout", func(w http.ResponseWriter, r *http.Request) {
		writeTestJSON(w, http.StatusOK, map[string]string{"message": "Logout successful"})
	})

	store, _ := newSession(t, ts)
	require.NoError(t, store.Login(context.Background(), "ann@x.com", "secret1"))
	socket := store.Socket()
	require.True(t, socket.Alive())

	store.Logout(context.Background())
	require.Equal(t, StateUnauthenticated, store.State())
	require.Nil(t, store.Socket())
	require.False(t, socket.Alive())
	require.Empty(t, store.OnlineUsers())

	// Second logout with no connection left.
	store.Logout(context.Background())
	require.Equal(t, StateUnauthenticated, store.State())
}
