package relay

import (
	"encoding/json"
	"log/slog"
	"time"

	"e2ee-chat/internal/domain"
	"e2ee-chat/internal/dto"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	// Ciphertext plus base64 overhead; still far below anything a
	// two-party chat produces legitimately.
	maxMessageSize = 256 << 10
	sendBuffer     = 64
)

// Client is one authenticated relay connection. The user id is fixed at
// upgrade time and never changes; the rooms set is owned by the Router
// and only touched under its lock.
type Client struct {
	router *Router
	conn   *websocket.Conn
	send   chan []byte
	userID domain.UserID
	rooms  map[string]struct{}
}

func NewClient(router *Router, conn *websocket.Conn, userID domain.UserID) *Client {
	return &Client{
		router: router,
		conn:   conn,
		send:   make(chan []byte, sendBuffer),
		userID: userID,
		rooms:  make(map[string]struct{}),
	}
}

func (c *Client) UserID() domain.UserID { return c.userID }

func (c *Client) Join(room string) { c.router.Join(c, room) }

// Send queues one event for this connection only. Delivery is
// best-effort, like a room publish.
func (c *Client) Send(event string, payload any) {
	data, err := json.Marshal(dto.Outbound{Event: event, Data: payload})
	if err != nil {
		slog.Error("relay: marshal direct send", "event", event, "error", err)
		return
	}
	defer func() {
		// The send channel closes on unregister; losing that race is
		// the same as the client having disconnected a moment earlier.
		_ = recover()
	}()
	select {
	case c.send <- data:
	default:
	}
}

// Close terminates the connection. The read pump notices and unregisters.
func (c *Client) Close() { c.closeConn() }

func (c *Client) closeConn() {
	if c.conn != nil {
		_ = c.conn.Close()
	}
}

// ReadPump consumes inbound frames and hands them to the dispatcher. It
// owns unregistration: whenever the connection dies, for any reason, the
// client leaves every room here.
func (c *Client) ReadPump(handle func(c *Client, raw []byte)) {
	defer func() {
		c.router.Unregister(c)
		c.closeConn()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				slog.Warn("relay: read failed", "user_id", c.userID, "error", err)
			}
			return
		}
		handle(c, raw)
	}
}

// WritePump drains the send channel onto the socket and keeps the
// connection alive with pings. Channel close is the shutdown signal.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.closeConn()
	}()

	for {
		select {
		case data, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
