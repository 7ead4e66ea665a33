// Package transport adapts a websocket connection to the relay's
// transport contract: one read half, one write half, text frames only.
package transport

import (
	"context"
	"time"

	"github.com/gorilla/websocket"

	"chat-relay/contract"
)

// Conn wraps one upgraded websocket. The inbound duty is the only
// reader and the outbound duty the only writer, so no internal locking
// is needed.
type Conn struct {
	ws          *websocket.Conn
	readTimeout time.Duration
}

// NewConn wraps an upgraded connection. readTimeout > 0 enables the
// idle-connection hardening extension; zero keeps the original
// wait-forever behavior.
func NewConn(ws *websocket.Conn, readTimeout time.Duration) *Conn {
	return &Conn{ws: ws, readTimeout: readTimeout}
}

var _ contract.Transport = (*Conn)(nil)

// ReadFrame blocks until the next text frame, a transport failure, or
// context cancellation. Non-text frames are skipped.
func (c *Conn) ReadFrame(ctx context.Context) ([]byte, error) {
	// Cancellation fires a deadline so the blocked read returns.
	stop := context.AfterFunc(ctx, func() {
		_ = c.ws.SetReadDeadline(time.Now())
	})
	defer stop()

	for {
		if c.readTimeout > 0 {
			if err := c.ws.SetReadDeadline(time.Now().Add(c.readTimeout)); err != nil {
				return nil, err
			}
		}
		messageType, data, err := c.ws.ReadMessage()
		if err != nil {
			return nil, err
		}
		if messageType != websocket.TextMessage {
			continue
		}
		return data, nil
	}
}

// WriteFrame sends one text frame.
func (c *Conn) WriteFrame(data []byte) error {
	return c.ws.WriteMessage(websocket.TextMessage, data)
}

func (c *Conn) RemoteAddr() string {
	return c.ws.RemoteAddr().String()
}

func (c *Conn) Close() error {
	return c.ws.Close()
}
