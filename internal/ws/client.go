package ws

import (
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"

	"github.com/parleychat/parley-backend/pkg/logger"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
)

// FrameHandler processes one inbound client frame. It runs on the
// client's read pump goroutine, so one slow sender never blocks other
// connections.
type FrameHandler func(c *Client, frame *Frame)

// Client represents a single WebSocket connection of one user
type Client struct {
	hub     *Hub
	conn    *websocket.Conn
	send    chan []byte
	userID  string
	handler FrameHandler
}

// NewClient creates a new WebSocket client
func NewClient(hub *Hub, conn *websocket.Conn, userID string, handler FrameHandler) *Client {
	return &Client{
		hub:     hub,
		conn:    conn,
		send:    make(chan []byte, 256),
		userID:  userID,
		handler: handler,
	}
}

// UserID returns the authenticated user this connection belongs to
func (c *Client) UserID() string {
	return c.userID
}

// SendEvent queues an event for this connection only (acks, snapshots)
func (c *Client) SendEvent(event *Event) {
	data, err := json.Marshal(event)
	if err != nil {
		logger.Get().Error().Err(err).Str("type", event.Type).Msg("event marshal failed")
		return
	}
	select {
	case c.send <- data:
	default:
		// Buffer full: drop the connection, the client recovers via
		// join-room catch-up after reconnect.
		if c.conn != nil {
			c.conn.Close()
		}
	}
}

// ReadPump reads frames from the WebSocket and dispatches them
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait)) //nolint:errcheck
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait)) //nolint:errcheck
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			break
		}

		var frame Frame
		if err := json.Unmarshal(data, &frame); err != nil {
			c.SendEvent(&Event{Type: EventError, Payload: map[string]string{"error": "malformed frame"}})
			continue
		}
		c.handler(c, &frame)
	}
}

// WritePump sends queued events to the WebSocket
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait)) //nolint:errcheck
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{}) //nolint:errcheck
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message) //nolint:errcheck
			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait)) //nolint:errcheck
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
