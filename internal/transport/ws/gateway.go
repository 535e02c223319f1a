package ws

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/google/uuid"
	"nhooyr.io/websocket"

	"beam/internal/presence"
)

// Gateway accepts real-time connections, binds claimed identities to the
// presence registry and broadcasts presence snapshots to every connected
// client. All registry mutation goes through its run loop.
type Gateway struct {
	registry *presence.Registry

	// clients holds every live connection, anonymous ones included.
	clients map[*Client]struct{}

	register   chan *Client
	unregister chan *Client
}

func NewGateway(registry *presence.Registry) *Gateway {
	return &Gateway{
		registry:   registry,
		clients:    make(map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

// Run starts the Gateway's main event loop. Call this in a goroutine.
func (g *Gateway) Run() {
	for {
		select {
		case client := <-g.register:
			g.clients[client] = struct{}{}
			if client.userID != uuid.Nil {
				client.connID = g.registry.Register(client.userID, client)
				log.Printf("ws: user %s online (%d connections)", client.userID, len(g.clients))
			} else {
				log.Printf("ws: anonymous connection accepted (%d connections)", len(g.clients))
			}
			g.broadcastSnapshot()

		case client := <-g.unregister:
			if _, ok := g.clients[client]; !ok {
				continue
			}
			delete(g.clients, client)
			close(client.done)
			if client.userID != uuid.Nil {
				g.registry.Unregister(client.userID, client.connID)
				log.Printf("ws: user %s offline (%d connections)", client.userID, len(g.clients))
			}
			g.broadcastSnapshot()
		}
	}
}

// broadcastSnapshot pushes the full online-user list to every connected
// client. Clients with a full buffer are dropped, as they are no longer
// keeping up. Dropping an identified client changes presence, so the
// snapshot is rebuilt and resent until a round completes without drops.
func (g *Gateway) broadcastSnapshot() {
	for {
		ids := g.registry.Snapshot()
		online := make([]string, len(ids))
		for i, id := range ids {
			online[i] = id.String()
		}

		evt, err := NewEvent(EventOnlineUsers, online)
		if err != nil {
			log.Printf("ws: marshal error: %v", err)
			return
		}
		data, err := json.Marshal(evt)
		if err != nil {
			log.Printf("ws: marshal error: %v", err)
			return
		}

		dropped := false
		for client := range g.clients {
			if client.TrySend(data) {
				continue
			}
			log.Printf("ws: dropping %s, send buffer full", client.label())
			delete(g.clients, client)
			close(client.done)
			if client.userID != uuid.Nil {
				g.registry.Unregister(client.userID, client.connID)
			}
			dropped = true
		}
		if !dropped {
			return
		}
	}
}

// ServeWS returns an HTTP handler that upgrades to WebSocket. The claimed
// identity arrives as a ?userId= query param and is not verified; an empty
// or malformed value leaves the connection anonymous.
func ServeWS(g *Gateway) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := uuid.Nil
		if claimed := r.URL.Query().Get("userId"); claimed != "" {
			id, err := uuid.Parse(claimed)
			if err != nil {
				log.Printf("ws: connection with unparseable userId %q, staying anonymous", claimed)
			} else {
				userID = id
			}
		}

		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			InsecureSkipVerify: true, // cross-origin clients carry no auth here anyway
		})
		if err != nil {
			log.Printf("ws: accept error: %v", err)
			return
		}

		client := NewClient(g, conn, userID)
		g.register <- client

		go client.WritePump()
		go client.ReadPump()
	}
}
