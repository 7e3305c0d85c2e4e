package notifications

import (
	"log/slog"
	"time"

	"inkwell/internal/observability"

	"github.com/gofiber/websocket/v2"
)

// Socket timings. The ping interval stays below the pong deadline so a
// healthy reader never times out.
const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = pongWait * 9 / 10
	maxMessageSize = 4096
	sendBuffer     = 64
)

// Client is one activity socket registered with the hub.
type Client struct {
	hub *Hub

	// Conn is nil in tests that only exercise fan-out.
	Conn *websocket.Conn

	// Send queues encoded events; the hub closes it on unregister.
	Send chan []byte

	UserID string
}

func newClient(hub *Hub, conn *websocket.Conn, userID string) *Client {
	return &Client{
		hub:    hub,
		Conn:   conn,
		UserID: userID,
		Send:   make(chan []byte, sendBuffer),
	}
}

// ReadPump blocks until the peer goes away, then unregisters the client.
// The stream is one-way, so inbound frames are discarded.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.UnregisterClient(c)
		_ = c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.extendReadDeadline()
	c.Conn.SetPongHandler(func(string) error {
		c.extendReadDeadline()
		return nil
	})

	for {
		_, _, err := c.Conn.ReadMessage()
		if err == nil {
			continue
		}
		if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
			observability.Logger.Warn("activity socket read error",
				slog.String("user_id", c.UserID),
				slog.String("error", err.Error()),
			)
		}
		return
	}
}

// WritePump forwards queued events and keeps the connection alive with pings.
// It sends a close frame once Send is closed.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.Conn.Close()
	}()

	for {
		var err error
		select {
		case event, ok := <-c.Send:
			if !ok {
				_ = c.write(websocket.CloseMessage, []byte{})
				return
			}
			err = c.write(websocket.TextMessage, event)
		case <-ticker.C:
			err = c.write(websocket.PingMessage, nil)
		}
		if err != nil {
			return
		}
	}
}

func (c *Client) write(messageType int, payload []byte) error {
	_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.Conn.WriteMessage(messageType, payload)
}

func (c *Client) extendReadDeadline() {
	_ = c.Conn.SetReadDeadline(time.Now().Add(pongWait))
}

// trySend queues message without blocking; a full buffer drops it.
func (c *Client) trySend(message []byte) {
	select {
	case c.Send <- message:
	default:
		observability.ActivityDrops.Inc()
	}
}
