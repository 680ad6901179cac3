package realtime

import (
	"math/rand"
	"time"

	"github.com/AtRiskMedia/orderstack-go/pkg/config"
	"github.com/gorilla/websocket"
	"github.com/oklog/ulid/v2"
)

// Client represents a single connected dashboard client. UserID is the
// connection's verified identity, or empty for anonymous (public)
// dashboards. Room membership lives for the lifetime of the connection.
type Client struct {
	ID     string
	UserID string
	Send   chan []byte

	hub   *Hub
	conn  *websocket.Conn
	rooms map[string]bool
}

// NewClient wraps an upgraded websocket connection. userID may be empty.
func NewClient(hub *Hub, conn *websocket.Conn, userID string) *Client {
	entropy := ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0)
	return &Client{
		ID:     ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String(),
		UserID: userID,
		Send:   make(chan []byte, config.ClientSendBuffer),
		hub:    hub,
		conn:   conn,
		rooms:  make(map[string]bool),
	}
}

// ReadPump consumes control frames from the client until the connection
// drops, then unregisters. Run as a goroutine, one per connection.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(config.ClientMaxFrameSize)
	c.conn.SetReadDeadline(time.Now().Add(config.ClientPongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(config.ClientPongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		c.hub.handleControl(c, raw)
	}
}

// WritePump drains the send buffer to the connection and keeps it alive
// with pings. Run as a goroutine, one per connection.
func (c *Client) WritePump() {
	ticker := time.NewTicker(config.ClientPingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.conn.SetWriteDeadline(time.Now().Add(config.ClientWriteWait))
			if !ok {
				// Hub closed the channel.
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(config.ClientWriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
