package conquest

import (
	"testing"
)

func TestLegalMovesDrawing(t *testing.T) {
	gs := activeGame(t, Small, 2, DefaultRules())
	gs, _ = mustLine(t, gs, 0, Horizontal, 0, 0)

	moves := LegalMoves(gs, 1)
	if len(moves) != gs.Board.EdgeCount()-1 {
		t.Fatalf("expected %d moves, got %d", gs.Board.EdgeCount()-1, len(moves))
	}
	for _, m := range moves {
		if err := Validate(gs, 1, m); err != nil {
			t.Errorf("%s listed but rejected: %v", m.Describe(), err)
		}
	}
	if LegalMoves(gs, 0) != nil {
		t.Error("expected no moves for the waiting player")
	}
}

func TestLegalMovesArmyAgreesWithValidate(t *testing.T) {
	gs := armyGame(t, 2, splitRows)
	setArmies(gs, 2, 3, 4)
	setArmies(gs, 2, 4, 2)
	setArmies(gs, 5, 1, 0)
	gs.Players[0].ArmyPool = 3

	listed := make(map[Move]bool)
	for _, m := range LegalMoves(gs, 0) {
		if err := Validate(gs, 0, m); err != nil {
			t.Errorf("%s listed but rejected: %v", m.Describe(), err)
		}
		listed[m] = true
	}
	if !listed[PassMove{}] {
		t.Error("pass missing from army-phase moves")
	}
	if !listed[PlaceArmyMove{Cell: Point{2, 3}, Count: 1}] || !listed[PlaceArmyMove{Cell: Point{2, 3}, Count: 3}] {
		t.Error("placement options missing")
	}

	// Every valid army move out of an owned cell must be listed.
	for _, c := range gs.CellsOf(0) {
		for _, d := range directions {
			to := Point{c.X + d.X, c.Y + d.Y}
			for n := 1; n <= c.Armies; n++ {
				m := ArmyMove{From: c.Pos(), To: to, Count: n}
				valid := Validate(gs, 0, m) == nil
				if valid != listed[m] {
					t.Errorf("%s: valid=%v listed=%v", m.Describe(), valid, listed[m])
				}
			}
		}
	}
	if listed[ArmyMove{From: Point{2, 3}, To: Point{2, 4}, Count: 2}] {
		t.Error("tie attack listed")
	}
	if !listed[ArmyMove{From: Point{2, 3}, To: Point{2, 4}, Count: 3}] {
		t.Error("winning attack missing")
	}
}

func TestCompletingLines(t *testing.T) {
	gs := activeGame(t, Small, 2, DefaultRules())
	for _, e := range cellEdges(2, 2)[:3] {
		gs, _ = mustLine(t, gs, gs.CurrentPlayer, e.Orientation, e.X, e.Y)
	}
	got := CompletingLines(gs)
	if len(got) != 1 || got[LineMove{Vertical, 3, 2}] != 1 {
		t.Errorf("expected V(3,2) to complete one cell, got %v", got)
	}
	if n := gs.Board.DrawnSides(Point{2, 2}); n != 3 {
		t.Errorf("expected 3 drawn sides, got %d", n)
	}
}

func TestCurrentStatus(t *testing.T) {
	gs := armyGame(t, 2, splitRows)
	setArmies(gs, 0, 0, 4)
	gs.Players[1].ArmyPool = 7

	v := CurrentStatus(gs)
	if v.Phase != PhaseArmy || v.Status != StatusActive || v.EdgesDrawn != v.EdgesTotal {
		t.Errorf("unexpected header %+v", v)
	}
	if len(v.Players) != 2 {
		t.Fatalf("expected 2 players, got %d", len(v.Players))
	}
	if p := v.Players[0]; p.Territories != 32 || p.ArmiesOnBoard != 35 || p.Color != "#ff5722" {
		t.Errorf("player 0 summary %+v", p)
	}
	if p := v.Players[1]; p.ArmyPool != 7 || p.Element != Water || p.Color != "#2196f3" {
		t.Errorf("player 1 summary %+v", p)
	}
}
