package handler

import "github.com/freeeve/elemental-conquest/api/internal/service"

var _ service.Broadcaster = (*Hub)(nil)

// BroadcastGameEvent fans a service event out to the game's subscribers.
func (h *Hub) BroadcastGameEvent(gameID string, eventType string, data any) {
	h.BroadcastToGame(gameID, WSEvent{Type: eventType, GameID: gameID, Data: data})
}
