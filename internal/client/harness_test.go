package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"nhooyr.io/websocket"

	"beam/internal/domain"
)

// testServer fakes the REST surface and the real-time channel so the stores
// can be exercised end to end without a database.
type testServer struct {
	*httptest.Server
	mux *http.ServeMux

	// conns receives each accepted websocket so tests can push events.
	conns chan *websocket.Conn
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	ts := &testServer{
		mux:   http.NewServeMux(),
		conns: make(chan *websocket.Conn, 4),
	}
	ts.mux.HandleFunc("GET /ws", func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{InsecureSkipVerify: true})
		if err != nil {
			return
		}
		ts.conns <- conn
		// Drain until the peer goes away.
		for {
			if _, _, err := conn.Read(context.Background()); err != nil {
				return
			}
		}
	})

	ts.Server = httptest.NewServer(ts.mux)
	t.Cleanup(ts.Server.Close)
	return ts
}

func (ts *testServer) handle(pattern string, h http.HandlerFunc) {
	ts.mux.HandleFunc(pattern, h)
}

// waitConn returns the next accepted websocket connection.
func (ts *testServer) waitConn(t *testing.T) *websocket.Conn {
	t.Helper()
	select {
	case c := <-ts.conns:
		return c
	case <-time.After(2 * time.Second):
		t.Fatal("no websocket connection arrived")
		return nil
	}
}

// push sends a named event over an accepted connection.
func (ts *testServer) push(t *testing.T, conn *websocket.Conn, event string, payload any) {
	t.Helper()
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	frame, err := json.Marshal(socketEvent{Type: event, Payload: data})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, conn.Write(ctx, websocket.MessageText, frame))
}

func writeTestJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeTestError(w http.ResponseWriter, status int, code, message string) {
	writeTestJSON(w, status, map[string]any{
		"error": map[string]string{"code": code, "message": message},
	})
}

func testUser() domain.User {
	return domain.User{ID: uuid.New(), FullName: "Ann", Email: "ann@x.com"}
}
