// internal/ws/conn.go
package ws

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/sprachduell/coordinator/internal/protocol"
)

// Conn wraps a single accepted websocket connection. It is referenced, never
// owned, by the lobby set and by at most one room's connection set; the
// gateway goroutine that accepted it is the only reader and the only writer
// of UserID.
type Conn struct {
	ID       uuid.UUID
	GameType string

	// UserID is the identity the client asserted on its join message.
	// Empty until a join is processed.
	UserID string

	sock   *websocket.Conn
	out    chan any
	cancel context.CancelFunc
	log    *logrus.Logger
}

// New wraps an accepted websocket connection for the given game type.
func New(sock *websocket.Conn, gameType string, cancel context.CancelFunc, logger *logrus.Logger) *Conn {
	return &Conn{
		ID:       uuid.New(),
		GameType: gameType,
		sock:     sock,
		out:      make(chan any, 16),
		cancel:   cancel,
		log:      logger,
	}
}

// Send enqueues a message for the write pump without blocking. A slow or dead
// client must not stall room processing, so a full channel drops the message.
func (c *Conn) Send(msg any) {
	select {
	case c.out <- msg:
	default:
		c.log.Warnf("conn %s: out channel full, dropping message", c.ID)
	}
}

// WritePump drains the out channel onto the socket, pinging periodically.
// Exits when the context is cancelled or a write fails.
func (c *Conn) WritePump(ctx context.Context) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-c.out:
			data, err := json.Marshal(msg)
			if err != nil {
				c.log.Warnf("conn %s: failed to marshal outgoing message: %v", c.ID, err)
				continue
			}
			writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err = c.sock.Write(writeCtx, websocket.MessageText, data)
			cancel()
			if err != nil {
				c.log.Warnf("conn %s: write failed: %v", c.ID, err)
				return
			}
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
			err := c.sock.Ping(pingCtx)
			cancel()
			if err != nil {
				c.log.Warnf("conn %s: ping failed, assuming disconnect: %v", c.ID, err)
				return
			}
		}
	}
}

// ReadPump reads envelopes off the socket and hands them to handle, one at a
// time, until the connection closes. Malformed frames are dropped with a
// warning; they never terminate the connection.
func (c *Conn) ReadPump(ctx context.Context, handle func(protocol.Envelope)) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		typ, msg, err := c.sock.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
				c.log.Infof("conn %s: closed normally", c.ID)
			} else if !strings.Contains(err.Error(), "context canceled") {
				c.log.Warnf("conn %s: read error: %v", c.ID, err)
			}
			return
		}
		if typ != websocket.MessageText {
			c.log.Warnf("conn %s: ignoring non-text frame", c.ID)
			continue
		}

		var env protocol.Envelope
		if err := json.Unmarshal(msg, &env); err != nil {
			c.log.Warnf("conn %s: invalid json: %v", c.ID, err)
			continue
		}
		if env.Type == "" {
			c.log.Warnf("conn %s: message missing type, dropped", c.ID)
			continue
		}
		handle(env)
	}
}

// Close tears down the socket and stops both pumps.
func (c *Conn) Close(code websocket.StatusCode, reason string) {
	_ = c.sock.Close(code, reason)
	if c.cancel != nil {
		c.cancel()
	}
}
