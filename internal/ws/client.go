// Package ws is the WebSocket transport for real-time notifications. Clients
// connect, announce their user id with a join frame, and from then on receive
// new-interest events until the socket closes.
package ws

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/calebwray/interest-radar/internal/domain"
)

const (
	// writeWait is the deadline for a single write to the peer.
	writeWait = 10 * time.Second

	// pongWait is how long to wait for a pong before dropping the peer.
	pongWait = 60 * time.Second

	// pingPeriod must be shorter than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// maxMessageSize bounds inbound frames; clients only ever send the tiny
	// join frame.
	maxMessageSize = 512

	// sendBuffer is the per-connection outbound queue. When it fills, further
	// deliveries to this connection are dropped rather than blocking a fanout.
	sendBuffer = 32
)

var (
	errClosed     = errors.New("connection closed")
	errBufferFull = errors.New("outbound buffer full")
)

// envelope is the outbound wire frame.
type envelope struct {
	Event string               `json:"event"`
	Data  *domain.Notification `json:"data"`
}

// joinFrame is the single inbound frame clients send after connecting.
type joinFrame struct {
	Action string `json:"action"`
	UserID string `json:"userId"`
}

// Client owns one websocket session. It implements domain.Connection: the
// dispatcher enqueues payloads via Deliver and a dedicated write pump drains
// them, so no fanout ever blocks on this peer's network.
type Client struct {
	conn     *websocket.Conn
	registry *domain.Registry
	logger   *slog.Logger

	send   chan *domain.Notification
	closed chan struct{}

	once sync.Once

	mu     sync.Mutex
	userID string // set at most once, by the join frame
	done   bool   // teardown has run; no further registration allowed
}

func newClient(conn *websocket.Conn, registry *domain.Registry, logger *slog.Logger) *Client {
	return &Client{
		conn:     conn,
		registry: registry,
		logger:   logger,
		send:     make(chan *domain.Notification, sendBuffer),
		closed:   make(chan struct{}),
	}
}

// Deliver enqueues a payload for this connection without blocking. The
// payload is dropped with an error if the session has ended or the outbound
// buffer is full.
func (c *Client) Deliver(n *domain.Notification) error {
	select {
	case c.send <- n:
		return nil
	case <-c.closed:
		return errClosed
	default:
		return errBufferFull
	}
}

// readPump consumes inbound frames. The first join frame binds the session to
// a user id and registers the connection; everything else only serves the
// keepalive machinery. It tears the session down on any read error.
func (c *Client) readPump() {
	defer c.teardown()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var frame joinFrame
		if err := c.conn.ReadJSON(&frame); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Warn("websocket read failed", "user_id", c.currentUserID(), "error", err)
			}
			return
		}

		if frame.Action == "join" && frame.UserID != "" && c.join(frame.UserID) {
			c.logger.Info("user joined", "user_id", frame.UserID)
		}
	}
}

// join binds the session to a user id and registers the connection. It
// refuses repeat joins and joins racing a concurrent teardown.
func (c *Client) join(userID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.done || c.userID != "" {
		return false
	}
	c.userID = userID
	c.registry.Register(userID, c)
	return true
}

func (c *Client) currentUserID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.userID
}

// writePump serializes all writes to the peer: queued notifications and
// periodic pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.teardown()
	}()

	for {
		select {
		case n := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(envelope{Event: "new-interest", Data: n}); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.closed:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, nil)
			return
		}
	}
}

// teardown unregisters and closes the session exactly once. After it runs the
// connection is terminal; a reconnect gets a fresh Client.
func (c *Client) teardown() {
	c.once.Do(func() {
		c.mu.Lock()
		c.done = true
		userID := c.userID
		c.mu.Unlock()

		if userID != "" {
			c.registry.Unregister(userID, c)
			c.logger.Info("user disconnected", "user_id", userID)
		}
		close(c.closed)
		c.conn.Close()
	})
}
