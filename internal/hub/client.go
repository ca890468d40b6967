package hub

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"collab-engine/internal/domain"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer. Edit batches carry document
	// text, so this is far above a chat-sized limit.
	maxMessageSize = 64 * 1024

	// Outbound buffer per client. A client that stays this far behind the
	// room is disconnected rather than allowed to stall everyone else.
	sendBufferSize = 256
)

// Client is one WebSocket session bound to a room.
type Client struct {
	hub         *Hub
	conn        *websocket.Conn
	room        *domain.Room
	participant domain.Participant

	send   chan []byte
	sendMu sync.Mutex
	closed bool
}

// NewClient wraps an upgraded connection. The caller registers it with the
// hub and then starts the pumps via Run.
func NewClient(h *Hub, conn *websocket.Conn, room *domain.Room, participant domain.Participant) *Client {
	return &Client{
		hub:         h,
		conn:        conn,
		room:        room,
		participant: participant,
		send:        make(chan []byte, sendBufferSize),
	}
}

// Run starts the read and write pumps.
func (c *Client) Run() {
	go c.WritePump()
	go c.ReadPump()
}

// RoomID returns the room this session is bound to.
func (c *Client) RoomID() uint { return c.room.ID }

// UserID returns the authenticated user behind this session.
func (c *Client) UserID() string { return c.participant.UserID }

// closeSend closes the outbound channel exactly once, which makes the write
// pump exit and close the connection. The mutex orders it against trySend so
// no goroutine can write to a closed channel.
func (c *Client) closeSend() {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// trySend queues one serialized frame without blocking. It reports false when
// the session is closed or the buffer is full; the caller decides whether
// that disconnects the client.
func (c *Client) trySend(data []byte) bool {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

// ReadPump pumps inbound frames into the room's processing queue. It runs in
// its own goroutine; exit triggers unregistration.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		messageType, message, err := c.conn.ReadMessage()
		if err != nil {
			logCtx := logrus.WithFields(logrus.Fields{"room_id": c.room.ID, "user_id": c.participant.UserID})
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logCtx.WithError(err).Warn("WebSocket read error")
			} else {
				logCtx.Debug("WebSocket connection closed")
			}
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}
		c.hub.route(c, message)
	}
}

// WritePump pumps outbound frames from the send channel to the connection
// and keeps the peer alive with periodic pings.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				logrus.WithFields(logrus.Fields{"room_id": c.room.ID, "user_id": c.participant.UserID}).WithError(err).Warn("Failed to write message to websocket")
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
