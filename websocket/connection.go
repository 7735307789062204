package websocket

import (
	"encoding/json"
	"errors"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 8192

	sendBufferSize = 64
)

var (
	ErrClientBufferFull = errors.New("client send buffer is full")
	ErrClientClosed     = errors.New("client connection is closed")
)

// ConnState is the lifecycle state of one realtime connection.
type ConnState int32

const (
	StateConnecting ConnState = iota
	StateAuthenticating
	StateJoined
	StateActive
	StateIdle
	StateDisconnected
)

func (s ConnState) String() string {
	switch s {
	case StateConnecting:
		return "CONNECTING"
	case StateAuthenticating:
		return "AUTHENTICATING"
	case StateJoined:
		return "JOINED"
	case StateActive:
		return "ACTIVE"
	case StateIdle:
		return "IDLE"
	case StateDisconnected:
		return "DISCONNECTED"
	default:
		return "UNKNOWN"
	}
}

// Client is one authenticated connection. Several clients may share a UserID.
type Client struct {
	ID     string
	UserID uint
	Role   string
	Hub    *Hub
	Conn   *websocket.Conn
	Send   chan []byte

	state  atomic.Int32
	closed bool // guarded by Hub.mu
	logger *zap.Logger
}

func newClient(hub *Hub, conn *websocket.Conn, userID uint, role string) *Client {
	c := &Client{
		ID:     uuid.NewString(),
		UserID: userID,
		Role:   role,
		Hub:    hub,
		Conn:   conn,
		Send:   make(chan []byte, sendBufferSize),
	}
	c.logger = hub.logger.With(zap.String("client_id", c.ID), zap.Uint("user_id", userID))
	c.setState(StateAuthenticating)
	return c
}

func (c *Client) State() ConnState {
	return ConnState(c.state.Load())
}

func (c *Client) setState(s ConnState) {
	c.state.Store(int32(s))
}

// SendMessage queues a message for this client only.
func (c *Client) SendMessage(message *Message) error {
	data, err := json.Marshal(message)
	if err != nil {
		return err
	}

	c.Hub.mu.RLock()
	defer c.Hub.mu.RUnlock()
	if c.closed {
		return ErrClientClosed
	}
	select {
	case c.Send <- data:
		return nil
	default:
		return ErrClientBufferFull
	}
}

// SendError sends an error event to the client
func (c *Client) SendError(eventType, message string) error {
	errorMessage, err := NewMessage(EventError, map[string]string{
		"event":   eventType,
		"message": message,
	})
	if err != nil {
		return err
	}
	return c.SendMessage(errorMessage)
}

// readPump dispatches inbound events until the connection fails, then leaves
// the hub.
func (c *Client) readPump() {
	defer func() {
		c.Hub.Leave(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	c.setState(StateIdle)
	for {
		_, messageBytes, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				c.logger.Warn("❌ WebSocket read error", zap.Error(err))
			}
			break
		}

		c.setState(StateActive)
		c.dispatch(messageBytes)
		c.setState(StateIdle)
	}
}

func (c *Client) dispatch(raw []byte) {
	var message Message
	if err := json.Unmarshal(raw, &message); err != nil {
		c.logger.Debug("Malformed event", zap.Error(err))
		_ = c.SendError("", "malformed event")
		return
	}
	message.Timestamp = time.Now().UTC()

	handler, ok := c.Hub.handler(message.Type)
	if !ok {
		c.logger.Debug("⚠️ Unknown event type", zap.String("type", message.Type))
		_ = c.SendError(message.Type, "unknown event type")
		return
	}
	if err := handler(c, &message); err != nil {
		c.logger.Warn("❌ Error handling event", zap.String("type", message.Type), zap.Error(err))
		_ = c.SendError(message.Type, err.Error())
	}
}

// writePump is the only writer on the connection. It drains Send and keeps
// the transport alive with pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
