package conquest

import (
	"errors"
	"fmt"
)

// Rejection reasons. Every rejected move leaves the state untouched and
// returns a *MoveError wrapping one of these.
var (
	ErrOutOfBounds       = errors.New("coordinates out of bounds")
	ErrNotYourTurn       = errors.New("not your turn")
	ErrWrongPhase        = errors.New("move not allowed in this phase")
	ErrAlreadyOccupied   = errors.New("already occupied")
	ErrIllegalAdjacency  = errors.New("cells are not adjacent")
	ErrInsufficientForce = errors.New("insufficient force")
	ErrGameNotActive     = errors.New("game is not active")
	ErrNotOwner          = errors.New("cell not owned by player")
	ErrInvalidSetup      = errors.New("invalid game setup")
)

// MoveError describes why a move was rejected.
type MoveError struct {
	Move   Move
	Err    error
	Detail string
}

func (e *MoveError) Error() string {
	desc := "move"
	if e.Move != nil {
		desc = e.Move.Describe()
	}
	if e.Detail == "" {
		return fmt.Sprintf("invalid %s: %s", desc, e.Err)
	}
	return fmt.Sprintf("invalid %s: %s: %s", desc, e.Err, e.Detail)
}

func (e *MoveError) Unwrap() error { return e.Err }

func reject(m Move, err error, format string, args ...any) error {
	return &MoveError{Move: m, Err: err, Detail: fmt.Sprintf(format, args...)}
}

// rejectLookup wraps a board lookup failure, which already carries its sentinel.
func rejectLookup(m Move, err error) error {
	return &MoveError{Move: m, Err: err}
}
