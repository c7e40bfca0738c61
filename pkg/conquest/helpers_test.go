package conquest

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
)

// activeGame returns an active drawing-phase game with n players.
func activeGame(t *testing.T, size GridSize, n int, rules Rules) *GameState {
	t.Helper()
	seats := make([]Seat, n)
	for i := range seats {
		seats[i] = Seat{Element: AllElements()[i]}
	}
	gs, err := NewGame(size, seats, rules)
	if err != nil {
		t.Fatalf("new game: %v", err)
	}
	gs.Status = StatusActive
	return gs
}

// armyGame returns an active army-phase game on a small board where every
// edge is drawn and owner(x, y) decides who holds each cell. Every owned
// cell starts with one army.
func armyGame(t *testing.T, n int, owner func(x, y int) int) *GameState {
	t.Helper()
	gs := activeGame(t, Small, n, DefaultRules())
	for i := range gs.Board.Horizontal {
		gs.Board.Horizontal[i].State = EdgeDrawn
		gs.Board.Horizontal[i].Owner = 0
	}
	for i := range gs.Board.Vertical {
		gs.Board.Vertical[i].State = EdgeDrawn
		gs.Board.Vertical[i].Owner = 0
	}
	for i := range gs.Board.Cells {
		c := &gs.Board.Cells[i]
		id := owner(c.X, c.Y)
		if id == NoPlayer {
			continue
		}
		c.State = CellClaimed
		c.Owner = id
		c.Element = gs.Players[id].Element
		c.Armies = 1
		gs.Players[id].Territories++
	}
	gs.Phase = PhaseArmy
	return gs
}

// setArmies overwrites the army count of a cell.
func setArmies(gs *GameState, x, y, n int) {
	gs.Board.cell(Point{x, y}).Armies = n
}

// mustLine applies a line move that is expected to succeed.
func mustLine(t *testing.T, gs *GameState, player int, o Orientation, x, y int) (*GameState, []CellDelta) {
	t.Helper()
	next, deltas, err := ApplyLineMove(gs, player, o, x, y)
	if err != nil {
		t.Fatalf("line %s %d,%d by %d: %v", o, x, y, player, err)
	}
	return next, deltas
}

func snapshot(t *testing.T, gs *GameState) []byte {
	t.Helper()
	data, err := json.Marshal(gs)
	if err != nil {
		t.Fatalf("marshal state: %v", err)
	}
	return data
}

// assertUnchanged fails if gs no longer encodes to before.
func assertUnchanged(t *testing.T, before []byte, gs *GameState) {
	t.Helper()
	if after := snapshot(t, gs); !bytes.Equal(before, after) {
		t.Errorf("state changed after rejected move")
	}
}

func assertRejected(t *testing.T, err, want error) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %v, got nil", want)
	}
	if !errors.Is(err, want) {
		t.Fatalf("expected %v, got %v", want, err)
	}
	var me *MoveError
	if !errors.As(err, &me) {
		t.Errorf("expected *MoveError, got %T", err)
	}
}

// cellEdges lists the four edges of cell x,y as line moves.
func cellEdges(x, y int) []LineMove {
	return []LineMove{
		{Horizontal, x, y},
		{Horizontal, x, y + 1},
		{Vertical, x, y},
		{Vertical, x + 1, y},
	}
}
