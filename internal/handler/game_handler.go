package handler

import (
	"net/http"

	"github.com/freeeve/elemental-conquest/api/internal/auth"
	"github.com/freeeve/elemental-conquest/api/internal/logger"
	"github.com/freeeve/elemental-conquest/api/internal/model"
	"github.com/freeeve/elemental-conquest/api/internal/service"
)

// GameHandler handles game and room endpoints.
type GameHandler struct {
	gameSvc *service.GameService
	jwtMgr  *auth.JWTManager
}

// NewGameHandler creates a GameHandler.
func NewGameHandler(gameSvc *service.GameService, jwtMgr *auth.JWTManager) *GameHandler {
	return &GameHandler{gameSvc: gameSvc, jwtMgr: jwtMgr}
}

// SeatResponse is returned whenever a caller takes a seat.
type SeatResponse struct {
	Game *model.Game     `json:"game"`
	Seat *auth.SeatToken `json:"seat"`
}

func (h *GameHandler) seatResponse(w http.ResponseWriter, r *http.Request, status int, g *model.Game, seat int) {
	token, err := h.jwtMgr.IssueSeat(g.ID, seat)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, status, SeatResponse{Game: g, Seat: token})
}

// CreateGame handles POST /api/v1/games
func (h *GameHandler) CreateGame(w http.ResponseWriter, r *http.Request) {
	var req service.CreateGameRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	game, seat, err := h.gameSvc.CreateGame(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	h.seatResponse(w, r, http.StatusCreated, game, seat)
}

// ListGames handles GET /api/v1/games and lists rooms that can be joined.
func (h *GameHandler) ListGames(w http.ResponseWriter, r *http.Request) {
	games, err := h.gameSvc.ListOpen(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if games == nil {
		writeJSON(w, http.StatusOK, []struct{}{})
		return
	}
	writeJSON(w, http.StatusOK, games)
}

// GetGame handles GET /api/v1/games/{id}
func (h *GameHandler) GetGame(w http.ResponseWriter, r *http.Request) {
	game, err := h.gameSvc.GetGame(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, game)
}

// GetState handles GET /api/v1/games/{id}/state
func (h *GameHandler) GetState(w http.ResponseWriter, r *http.Request) {
	gs, err := h.gameSvc.GetState(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, gs)
}

// GetStatus handles GET /api/v1/games/{id}/status
func (h *GameHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.gameSvc.Status(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

// GetRoom handles GET /api/v1/rooms/{code}
func (h *GameHandler) GetRoom(w http.ResponseWriter, r *http.Request) {
	game, err := h.gameSvc.GetGameByRoom(r.Context(), r.PathValue("code"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, game)
}

// JoinRoom handles POST /api/v1/rooms/{code}/join. The body is optional;
// without an element the first free one is taken.
func (h *GameHandler) JoinRoom(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Element string `json:"element"`
	}
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	game, seat, err := h.gameSvc.JoinRoom(r.Context(), r.PathValue("code"), req.Element)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	l := logger.ForGame(r.Context(), game.ID, seat)
	l.Info().Msg("Seat issued")
	h.seatResponse(w, r, http.StatusOK, game, seat)
}

// StopGame handles POST /api/v1/games/{id}/stop. Requires the host's seat token.
func (h *GameHandler) StopGame(w http.ResponseWriter, r *http.Request) {
	gameID := r.PathValue("id")
	seat, ok := auth.SeatFor(r.Context(), gameID)
	if !ok {
		writeError(w, http.StatusForbidden, "token is not for this game")
		return
	}

	if err := h.gameSvc.StopGame(r.Context(), gameID, seat); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "stopped"})
}
