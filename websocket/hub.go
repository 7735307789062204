package websocket

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Message is the envelope of every realtime event, inbound and outbound.
type Message struct {
	Type      string          `json:"type"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// NewMessage builds an outbound event. A nil payload is sent as JSON null.
func NewMessage(eventType string, payload interface{}) (*Message, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	return &Message{Type: eventType, Data: data, Timestamp: time.Now().UTC()}, nil
}

// MessageHandler handles one inbound event type. A returned error is reported
// to the sending client as an error event.
type MessageHandler func(*Client, *Message) error

// Hub tracks connected clients in one room per user id. A user may hold any
// number of connections (phone, watch, browser).
type Hub struct {
	rooms map[uint]map[*Client]struct{}

	// Message handlers
	MessageHandlers map[string]MessageHandler

	logger *zap.Logger
	mu     sync.RWMutex
}

// NewHub creates a new WebSocket hub
func NewHub(logger *zap.Logger) *Hub {
	hub := &Hub{
		rooms:           make(map[uint]map[*Client]struct{}),
		MessageHandlers: make(map[string]MessageHandler),
		logger:          logger,
	}
	hub.MessageHandlers[EventPing] = hub.handlePing
	return hub
}

// Handle registers h for eventType, replacing any previous handler.
func (h *Hub) Handle(eventType string, handler MessageHandler) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.MessageHandlers[eventType] = handler
}

func (h *Hub) handler(eventType string) (MessageHandler, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	handler, ok := h.MessageHandlers[eventType]
	return handler, ok
}

// Join adds client to its user's room.
func (h *Hub) Join(client *Client) {
	h.mu.Lock()
	room, ok := h.rooms[client.UserID]
	if !ok {
		room = make(map[*Client]struct{})
		h.rooms[client.UserID] = room
	}
	room[client] = struct{}{}
	size := len(room)
	h.mu.Unlock()

	client.setState(StateJoined)
	h.logger.Info("🔌 Client joined",
		zap.String("client_id", client.ID),
		zap.Uint("user_id", client.UserID),
		zap.Int("room_size", size))
}

// Leave removes client from its room and closes its send queue. Safe to call
// more than once.
func (h *Hub) Leave(client *Client) {
	h.mu.Lock()
	if room, ok := h.rooms[client.UserID]; ok {
		delete(room, client)
		if len(room) == 0 {
			delete(h.rooms, client.UserID)
		}
	}
	if !client.closed {
		client.closed = true
		close(client.Send)
	}
	h.mu.Unlock()

	client.setState(StateDisconnected)
	h.logger.Info("🔌 Client left", zap.String("client_id", client.ID), zap.Uint("user_id", client.UserID))
}

// SendToUser queues message on every connection of userID except exclude and
// returns how many connections it was queued on.
func (h *Hub) SendToUser(userID uint, message *Message, exclude *Client) int {
	data, err := json.Marshal(message)
	if err != nil {
		h.logger.Error("❌ Error marshaling message", zap.String("type", message.Type), zap.Error(err))
		return 0
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := 0
	for client := range h.rooms[userID] {
		if client == exclude || client.closed {
			continue
		}
		select {
		case client.Send <- data:
			delivered++
		default:
			h.logger.Warn("⚠️ Client send buffer is full, dropping event",
				zap.String("client_id", client.ID),
				zap.String("type", message.Type))
		}
	}
	return delivered
}

// IsUserConnected checks if a user has at least one open connection
func (h *Hub) IsUserConnected(userID uint) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[userID]) > 0
}

// HubStats is a point-in-time connection count.
type HubStats struct {
	Users       int `json:"users"`
	Connections int `json:"connections"`
}

func (h *Hub) Stats() HubStats {
	h.mu.RLock()
	defer h.mu.RUnlock()

	stats := HubStats{Users: len(h.rooms)}
	for _, room := range h.rooms {
		stats.Connections += len(room)
	}
	return stats
}

// handlePing answers the application-level heartbeat.
func (h *Hub) handlePing(client *Client, _ *Message) error {
	pong, err := NewMessage(EventPong, map[string]int64{"timestamp": time.Now().UnixMilli()})
	if err != nil {
		return err
	}
	return client.SendMessage(pong)
}
