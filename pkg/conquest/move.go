package conquest

import "fmt"

// MoveKind names a move variant on the wire.
type MoveKind string

const (
	KindLine  MoveKind = "line"
	KindArmy  MoveKind = "army_move"
	KindPlace MoveKind = "place_army"
	KindPass  MoveKind = "pass"
)

// Move is one of LineMove, ArmyMove, PlaceArmyMove or PassMove.
type Move interface {
	Kind() MoveKind
	Describe() string
	isMove()
}

// LineMove draws the edge at X,Y with the given orientation.
type LineMove struct {
	Orientation Orientation
	X, Y        int
}

// ArmyMove moves Count armies from one cell to an adjacent one, attacking
// if the destination belongs to an opponent.
type ArmyMove struct {
	From, To Point
	Count    int
}

// PlaceArmyMove places Count armies from the player's pool onto an owned cell.
type PlaceArmyMove struct {
	Cell  Point
	Count int
}

// PassMove ends the turn without acting. Only legal in the army phase.
type PassMove struct{}

func (LineMove) Kind() MoveKind      { return KindLine }
func (ArmyMove) Kind() MoveKind      { return KindArmy }
func (PlaceArmyMove) Kind() MoveKind { return KindPlace }
func (PassMove) Kind() MoveKind      { return KindPass }

func (LineMove) isMove()      {}
func (ArmyMove) isMove()      {}
func (PlaceArmyMove) isMove() {}
func (PassMove) isMove()      {}

func (m LineMove) Describe() string {
	tag := "h"
	if m.Orientation == Vertical {
		tag = "v"
	}
	return fmt.Sprintf("line %s%s", tag, Point{m.X, m.Y})
}

func (m ArmyMove) Describe() string {
	return fmt.Sprintf("army %d %s -> %s", m.Count, m.From, m.To)
}

func (m PlaceArmyMove) Describe() string {
	return fmt.Sprintf("place %d at %s", m.Count, m.Cell)
}

func (PassMove) Describe() string { return "pass" }

// CellDelta reports a cell claimed by a line move.
type CellDelta struct {
	Cell    Point   `json:"cell"`
	Owner   int     `json:"owner"`
	Element Element `json:"element"`
}
