package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/freeeve/elemental-conquest/api/internal/logger"
	"github.com/freeeve/elemental-conquest/api/internal/service"
	"github.com/freeeve/elemental-conquest/api/pkg/conquest"
)

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Error encoding response")
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// decodeJSON reads and decodes JSON from a request body.
func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

// errorStatus pairs a sentinel with the HTTP status and machine-readable
// code it is reported as. Order matters: the first match wins, so engine
// sentinels come before the service errors that wrap them.
var errorStatus = []struct {
	err    error
	status int
	code   string
}{
	{conquest.ErrNotYourTurn, http.StatusConflict, "not_your_turn"},
	{conquest.ErrWrongPhase, http.StatusConflict, "wrong_phase"},
	{conquest.ErrGameNotActive, http.StatusConflict, "game_not_active"},
	{conquest.ErrAlreadyOccupied, http.StatusConflict, "already_occupied"},
	{conquest.ErrOutOfBounds, http.StatusBadRequest, "out_of_bounds"},
	{conquest.ErrIllegalAdjacency, http.StatusBadRequest, "illegal_adjacency"},
	{conquest.ErrInsufficientForce, http.StatusBadRequest, "insufficient_force"},
	{conquest.ErrNotOwner, http.StatusBadRequest, "not_owner"},
	{conquest.ErrBadMove, http.StatusBadRequest, "malformed_move"},
	{service.ErrInvalidMove, http.StatusBadRequest, "invalid_move"},
	{service.ErrInvalidRequest, http.StatusBadRequest, "invalid_request"},
	{service.ErrGameNotFound, http.StatusNotFound, "game_not_found"},
	{service.ErrGameNotWaiting, http.StatusConflict, "game_not_waiting"},
	{service.ErrGameFull, http.StatusConflict, "game_full"},
	{service.ErrElementTaken, http.StatusConflict, "element_taken"},
	{service.ErrGameNotActive, http.StatusConflict, "game_not_active"},
	{service.ErrVersionConflict, http.StatusConflict, "version_conflict"},
	{service.ErrNotInGame, http.StatusForbidden, "not_in_game"},
	{service.ErrNotHost, http.StatusForbidden, "not_host"},
}

// writeServiceError maps a service or engine error to an HTTP response.
// Unknown errors are logged and reported as 500 without details.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	for _, e := range errorStatus {
		if errors.Is(err, e.err) {
			writeJSON(w, e.status, map[string]string{"error": err.Error(), "code": e.code})
			return
		}
	}
	l := logger.ForRequest(r.Context())
	l.Error().Err(err).Str("path", r.URL.Path).Msg("Request failed")
	writeError(w, http.StatusInternalServerError, "internal error")
}
