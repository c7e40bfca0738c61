package handler

import (
	"net/http"

	"github.com/freeeve/elemental-conquest/api/internal/auth"
	"github.com/freeeve/elemental-conquest/api/internal/service"
	"github.com/freeeve/elemental-conquest/api/pkg/conquest"
)

// MoveHandler handles move submission and move history.
type MoveHandler struct {
	moveSvc *service.MoveService
}

// NewMoveHandler creates a MoveHandler.
func NewMoveHandler(moveSvc *service.MoveService) *MoveHandler {
	return &MoveHandler{moveSvc: moveSvc}
}

// SubmitMove handles POST /api/v1/games/{id}/moves
func (h *MoveHandler) SubmitMove(w http.ResponseWriter, r *http.Request) {
	gameID := r.PathValue("id")
	seat, ok := auth.SeatFor(r.Context(), gameID)
	if !ok {
		writeError(w, http.StatusForbidden, "token is not for this game")
		return
	}

	var move conquest.WireMove
	if err := decodeJSON(r, &move); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.moveSvc.SubmitMove(r.Context(), gameID, seat, move)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// LegalMoves handles GET /api/v1/games/{id}/legal-moves
func (h *MoveHandler) LegalMoves(w http.ResponseWriter, r *http.Request) {
	gameID := r.PathValue("id")
	seat, ok := auth.SeatFor(r.Context(), gameID)
	if !ok {
		writeError(w, http.StatusForbidden, "token is not for this game")
		return
	}

	moves, err := h.moveSvc.LegalMoves(r.Context(), gameID, seat)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, moves)
}

// ListMoves handles GET /api/v1/games/{id}/moves
func (h *MoveHandler) ListMoves(w http.ResponseWriter, r *http.Request) {
	moves, err := h.moveSvc.History(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if moves == nil {
		writeJSON(w, http.StatusOK, []struct{}{})
		return
	}
	writeJSON(w, http.StatusOK, moves)
}
