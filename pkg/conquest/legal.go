package conquest

// LegalMoves enumerates the moves the player may make now. It returns nil
// when the game is not active or it is someone else's turn.
//
// Placements are compressed to two options per owned cell (one army, or the
// whole pool) to keep the list small for search-based bots.
func LegalMoves(gs *GameState, playerID int) []Move {
	if gs.Status != StatusActive || playerID != gs.CurrentPlayer {
		return nil
	}
	if gs.Phase == PhaseDrawing {
		return legalLines(gs)
	}

	var moves []Move
	pool := gs.Players[playerID].ArmyPool
	for _, c := range gs.Board.Cells {
		if c.Owner != playerID {
			continue
		}
		if pool > 0 {
			moves = append(moves, PlaceArmyMove{Cell: c.Pos(), Count: 1})
			if pool > 1 {
				moves = append(moves, PlaceArmyMove{Cell: c.Pos(), Count: pool})
			}
		}
		if c.Armies == 0 {
			continue
		}
		for _, d := range directions {
			to := Point{c.X + d.X, c.Y + d.Y}
			dst := gs.Board.cell(to)
			if dst == nil {
				continue
			}
			least := 1
			if dst.Owner != NoPlayer && dst.Owner != playerID {
				least = dst.Armies + 1
			}
			for n := least; n <= c.Armies; n++ {
				moves = append(moves, ArmyMove{From: c.Pos(), To: to, Count: n})
			}
		}
	}
	return append(moves, PassMove{})
}

func legalLines(gs *GameState) []Move {
	var moves []Move
	for _, e := range gs.Board.Horizontal {
		if e.State == EdgeEmpty {
			moves = append(moves, LineMove{Orientation: Horizontal, X: e.X, Y: e.Y})
		}
	}
	for _, e := range gs.Board.Vertical {
		if e.State == EdgeEmpty {
			moves = append(moves, LineMove{Orientation: Vertical, X: e.X, Y: e.Y})
		}
	}
	return moves
}

// CompletingLines returns the empty edges that would claim at least one cell
// if drawn now, with the number of cells each would claim.
func CompletingLines(gs *GameState) map[LineMove]int {
	out := make(map[LineMove]int)
	for _, m := range legalLines(gs) {
		lm := m.(LineMove)
		if n := gs.Board.claimsIfDrawn(lm.Orientation, lm.X, lm.Y); n > 0 {
			out[lm] = n
		}
	}
	return out
}

// claimsIfDrawn counts the unclaimed cells next to an empty edge that already
// have their other three sides drawn.
func (b *Board) claimsIfDrawn(o Orientation, x, y int) int {
	pts, err := b.edgeCells(o, x, y)
	if err != nil {
		return 0
	}
	n := 0
	for _, p := range pts {
		if b.cell(p).State == CellClaimed {
			continue
		}
		if b.DrawnSides(p) == 3 {
			n++
		}
	}
	return n
}

// DrawnSides returns how many of the cell's four edges are drawn.
func (b *Board) DrawnSides(p Point) int {
	edges, err := b.BoundingEdges(p.X, p.Y)
	if err != nil {
		return 0
	}
	n := 0
	for _, e := range edges {
		if e.State == EdgeDrawn {
			n++
		}
	}
	return n
}
