// Package broadcast fans out ProgressEvents for one scrape run to any
// number of subscribers: a register/unregister/broadcast channel loop
// per run, with an optional Redis Streams mirror for out-of-process
// observers.
package broadcast

import (
	"context"
	"time"

	"github.com/gorilla/websocket"

	"github.com/palimpsest-sports/scrapecore/internal/domain"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBufferSize = 64
)

// Client is one subscriber to a run's progress stream, either a
// WebSocket connection or an in-process channel consumer.
type Client struct {
	ID   string
	conn *websocket.Conn
	Send chan domain.ProgressEvent
	hub  *Hub
}

// NewWebSocketClient wraps an upgraded connection as a broadcast client.
func NewWebSocketClient(id string, conn *websocket.Conn, hub *Hub) *Client {
	return &Client{ID: id, conn: conn, Send: make(chan domain.ProgressEvent, sendBufferSize), hub: hub}
}

// NewChannelClient exposes Send directly to a Go consumer with no
// websocket attached (used by in-process subscribers like tests or a
// CLI --follow flag).
func NewChannelClient(id string, hub *Hub) *Client {
	return &Client{ID: id, Send: make(chan domain.ProgressEvent, sendBufferSize), hub: hub}
}

// TrySend delivers an event without blocking; returns false if the
// client's buffer is full.
func (c *Client) TrySend(ev domain.ProgressEvent) bool {
	select {
	case c.Send <- ev:
		return true
	default:
		return false
	}
}

// WritePump drains Send to the websocket connection. No-op for
// channel-only clients.
func (c *Client) WritePump(ctx context.Context) {
	if c.conn == nil {
		return
	}
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case ev, ok := <-c.Send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(ev); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// ReadPump drains (and discards) inbound frames to keep the connection
// alive and detect client-initiated close; the ops endpoint is
// publish-only.
func (c *Client) ReadPump(ctx context.Context) {
	if c.conn == nil {
		return
	}
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
