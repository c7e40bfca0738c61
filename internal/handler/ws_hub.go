package handler

import (
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// Server-originated event types that are not game events.
const (
	EventConnected = "connected"
	EventError     = "error"
)

// maxSubscriptions caps how many games one connection may watch at once.
const maxSubscriptions = 8

// WSEvent is the envelope for all WebSocket messages.
type WSEvent struct {
	Type   string `json:"type"`
	GameID string `json:"game_id"`
	Data   any    `json:"data"`
}

// ClientMessage is the envelope for messages sent from the client.
type ClientMessage struct {
	Action string `json:"action"` // "subscribe" or "unsubscribe"
	GameID string `json:"game_id"`
}

// WSConn is one client socket. gameID and seat come from its seat token;
// subs lists every game it currently watches and is guarded by Hub.mu.
type WSConn struct {
	conn   *websocket.Conn
	gameID string
	seat   int
	send   chan []byte
	subs   map[string]struct{}
}

// Hub fans game events out to subscribed connections.
type Hub struct {
	mu          sync.RWMutex
	connections map[*WSConn]struct{}
	games       map[string]map[*WSConn]struct{}
}

func NewHub() *Hub {
	return &Hub{
		connections: make(map[*WSConn]struct{}),
		games:       make(map[string]map[*WSConn]struct{}),
	}
}

func (h *Hub) Register(c *WSConn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.connections[c] = struct{}{}
}

// Unregister drops c and its subscriptions and closes its send channel.
// Calling it twice is harmless.
func (h *Hub) Unregister(c *WSConn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.connections[c]; !ok {
		return
	}
	delete(h.connections, c)
	for gameID := range c.subs {
		h.removeLocked(c, gameID)
	}
	c.subs = nil
	close(c.send)
}

// Subscribe adds c to a game's channel. It reports false when c already
// watches maxSubscriptions other games.
func (h *Hub) Subscribe(c *WSConn, gameID string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if c.subs == nil {
		c.subs = make(map[string]struct{})
	}
	if _, ok := c.subs[gameID]; ok {
		return true
	}
	if len(c.subs) >= maxSubscriptions {
		return false
	}
	c.subs[gameID] = struct{}{}
	if h.games[gameID] == nil {
		h.games[gameID] = make(map[*WSConn]struct{})
	}
	h.games[gameID][c] = struct{}{}
	return true
}

func (h *Hub) Unsubscribe(c *WSConn, gameID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(c.subs, gameID)
	h.removeLocked(c, gameID)
}

func (h *Hub) removeLocked(c *WSConn, gameID string) {
	conns, ok := h.games[gameID]
	if !ok {
		return
	}
	delete(conns, c)
	if len(conns) == 0 {
		delete(h.games, gameID)
	}
}

// BroadcastToGame sends an event to all connections subscribed to a game.
func (h *Hub) BroadcastToGame(gameID string, event WSEvent) {
	h.deliver(gameID, event, func(*WSConn) bool { return true })
}

// BroadcastToSeat sends an event only to subscribers holding a token for
// the given seat of that game.
func (h *Hub) BroadcastToSeat(gameID string, seat int, event WSEvent) {
	h.deliver(gameID, event, func(c *WSConn) bool { return c.gameID == gameID && c.seat == seat })
}

func (h *Hub) deliver(gameID string, event WSEvent, want func(*WSConn) bool) {
	data, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Str("gameId", gameID).Str("type", event.Type).Msg("Failed to marshal WebSocket event")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.games[gameID] {
		if !want(c) {
			continue
		}
		select {
		case c.send <- data:
		default:
			log.Warn().Str("gameId", gameID).Int("seat", c.seat).Str("type", event.Type).
				Msg("Dropping WebSocket message, buffer full")
		}
	}
}

// ConnectionCount returns the total number of active connections.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections)
}

// GameSubscriberCount returns the number of connections subscribed to a game.
func (h *Hub) GameSubscriberCount(gameID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.games[gameID])
}
