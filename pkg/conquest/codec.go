package conquest

import (
	"errors"
	"fmt"
)

// ErrBadMove reports a wire move that cannot be decoded.
var ErrBadMove = errors.New("malformed move")

// WireMove is the flat JSON form of a Move used by the HTTP API, the
// websocket feed and move history storage. Fields that do not apply to
// the kind are left zero.
type WireMove struct {
	Kind        MoveKind    `json:"kind"`
	Orientation Orientation `json:"orientation,omitempty"`
	X           int         `json:"x"`
	Y           int         `json:"y"`
	ToX         int         `json:"to_x,omitempty"`
	ToY         int         `json:"to_y,omitempty"`
	Count       int         `json:"count,omitempty"`
}

// EncodeMove flattens m.
func EncodeMove(m Move) WireMove {
	switch mv := m.(type) {
	case LineMove:
		return WireMove{Kind: KindLine, Orientation: mv.Orientation, X: mv.X, Y: mv.Y}
	case ArmyMove:
		return WireMove{Kind: KindArmy, X: mv.From.X, Y: mv.From.Y, ToX: mv.To.X, ToY: mv.To.Y, Count: mv.Count}
	case PlaceArmyMove:
		return WireMove{Kind: KindPlace, X: mv.Cell.X, Y: mv.Cell.Y, Count: mv.Count}
	case PassMove:
		return WireMove{Kind: KindPass}
	}
	return WireMove{}
}

// Decode turns w back into a typed Move. Only the shape is checked here;
// legality is up to Validate.
func (w WireMove) Decode() (Move, error) {
	switch w.Kind {
	case KindLine:
		if w.Orientation != Horizontal && w.Orientation != Vertical {
			return nil, fmt.Errorf("%w: orientation %q", ErrBadMove, w.Orientation)
		}
		return LineMove{Orientation: w.Orientation, X: w.X, Y: w.Y}, nil
	case KindArmy:
		return ArmyMove{From: Point{w.X, w.Y}, To: Point{w.ToX, w.ToY}, Count: w.Count}, nil
	case KindPlace:
		return PlaceArmyMove{Cell: Point{w.X, w.Y}, Count: w.Count}, nil
	case KindPass:
		return PassMove{}, nil
	}
	return nil, fmt.Errorf("%w: kind %q", ErrBadMove, w.Kind)
}
