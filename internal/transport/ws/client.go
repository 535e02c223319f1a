package ws

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"
	"nhooyr.io/websocket"
)

const (
	writeWait    = 10 * time.Second
	pingInterval = 30 * time.Second
	sendBufSize  = 256
)

// Client represents a single WebSocket connection. userID is uuid.Nil for
// anonymous connections (no claimed identity in the handshake).
type Client struct {
	gw     *Gateway
	conn   *websocket.Conn
	userID uuid.UUID
	connID uuid.UUID // set by the gateway when the client registers presence

	send chan []byte
	done chan struct{}
}

func NewClient(gw *Gateway, conn *websocket.Conn, userID uuid.UUID) *Client {
	return &Client{
		gw:     gw,
		conn:   conn,
		userID: userID,
		send:   make(chan []byte, sendBufSize),
		done:   make(chan struct{}),
	}
}

// TrySend queues a payload without blocking. Reports false if the client is
// being torn down or its buffer is full.
func (c *Client) TrySend(data []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

// ReadPump drains the connection until it drops. Inbound frames carry no
// client→server events in this protocol; the read loop exists to detect
// disconnects and keep the connection's flow control moving.
func (c *Client) ReadPump() {
	defer func() {
		c.gw.unregister <- c
		c.conn.Close(websocket.StatusNormalClosure, "")
	}()

	for {
		_, _, err := c.conn.Read(context.Background())
		if err != nil {
			if websocket.CloseStatus(err) != -1 {
				log.Printf("ws: client %s disconnected", c.label())
			} else {
				log.Printf("ws: read error from %s: %v", c.label(), err)
			}
			return
		}
	}
}

// WritePump writes messages from the send channel to the WebSocket.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close(websocket.StatusNormalClosure, "")
	}()

	for {
		select {
		case message, ok := <-c.send:
			if !ok {
				return
			}
			ctx, cancel := context.WithTimeout(context.Background(), writeWait)
			err := c.conn.Write(ctx, websocket.MessageText, message)
			cancel()
			if err != nil {
				log.Printf("ws: write error to %s: %v", c.label(), err)
				return
			}

		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), writeWait)
			err := c.conn.Ping(ctx)
			cancel()
			if err != nil {
				log.Printf("ws: ping error to %s: %v", c.label(), err)
				return
			}

		case <-c.done:
			return
		}
	}
}

func (c *Client) label() string {
	if c.userID == uuid.Nil {
		return "anonymous"
	}
	return c.userID.String()
}
