package conquest

// Apply validates and applies any move variant. CellDeltas are only
// produced by line moves.
func Apply(gs *GameState, playerID int, m Move) (*GameState, []CellDelta, error) {
	switch mv := m.(type) {
	case LineMove:
		return ApplyLineMove(gs, playerID, mv.Orientation, mv.X, mv.Y)
	case ArmyMove:
		next, err := ApplyArmyMove(gs, playerID, mv.From, mv.To, mv.Count)
		return next, nil, err
	case PlaceArmyMove:
		next, err := PlaceArmy(gs, playerID, mv.Cell, mv.Count)
		return next, nil, err
	case PassMove:
		next, err := Pass(gs, playerID)
		return next, nil, err
	}
	return gs, nil, Validate(gs, playerID, m)
}

// ApplyLineMove draws an edge and claims every cell it completes for the
// drawing player. On error the input state is returned unchanged.
func ApplyLineMove(gs *GameState, playerID int, o Orientation, x, y int) (*GameState, []CellDelta, error) {
	if err := ValidateLineMove(gs, playerID, o, x, y); err != nil {
		return gs, nil, err
	}
	next := gs.Clone()
	e := next.Board.edge(o, x, y)
	e.State = EdgeDrawn
	e.Owner = playerID

	deltas := next.resolveCompletions(playerID, o, x, y)
	next.endTurn(len(deltas) > 0)
	return next, deltas, nil
}

// resolveCompletions claims the cells bordering the edge whose four sides
// are now drawn. The player who drew the final edge owns the cell no matter
// who drew the other three. Cells claimed earlier are left alone.
func (gs *GameState) resolveCompletions(playerID int, o Orientation, x, y int) []CellDelta {
	pts, _ := gs.Board.edgeCells(o, x, y)
	p := &gs.Players[playerID]
	var deltas []CellDelta
	for _, pt := range pts {
		c := gs.Board.cell(pt)
		if c.State == CellClaimed || !gs.Board.complete(pt) {
			continue
		}
		c.State = CellClaimed
		c.Owner = playerID
		c.Element = p.Element
		c.Armies = gs.Rules.ClaimGarrison
		p.Territories++
		deltas = append(deltas, CellDelta{Cell: pt, Owner: playerID, Element: p.Element})
	}
	return deltas
}

// ApplyArmyMove moves armies between adjacent cells. Moving onto an own or
// unowned cell reinforces it; moving onto an opponent's cell with more
// armies than it holds captures it with the surplus.
func ApplyArmyMove(gs *GameState, playerID int, from, to Point, count int) (*GameState, error) {
	if err := ValidateArmyMove(gs, playerID, from, to, count); err != nil {
		return gs, err
	}
	next := gs.Clone()
	next.moveArmies(playerID, from, to, count)
	next.endTurn(false)
	return next, nil
}

// PlaceArmy puts armies from the player's pool onto one of their cells.
func PlaceArmy(gs *GameState, playerID int, cell Point, count int) (*GameState, error) {
	if err := ValidatePlacement(gs, playerID, cell, count); err != nil {
		return gs, err
	}
	next := gs.Clone()
	next.Players[playerID].ArmyPool -= count
	next.Board.cell(cell).Armies += count
	next.endTurn(false)
	return next, nil
}

// Pass ends an army-phase turn without acting.
func Pass(gs *GameState, playerID int) (*GameState, error) {
	if err := ValidatePass(gs, playerID); err != nil {
		return gs, err
	}
	next := gs.Clone()
	next.endTurn(false)
	return next, nil
}

// Stop ends an active game with no result. Every later move is rejected
// with ErrGameNotActive.
func Stop(gs *GameState) (*GameState, error) {
	if gs.Status != StatusActive {
		return gs, ErrGameNotActive
	}
	next := gs.Clone()
	next.Status = StatusFinished
	next.Outcome = OutcomeNone
	next.Winner = NoPlayer
	next.Version++
	return next, nil
}

// Conclude ends an active army-phase game now and decides the result as the
// round limit does: the unique territory leader wins, a shared lead draws.
func Conclude(gs *GameState) (*GameState, error) {
	if gs.Status != StatusActive {
		return gs, ErrGameNotActive
	}
	if gs.Phase != PhaseArmy {
		return gs, ErrWrongPhase
	}
	next := gs.Clone()
	next.Version++
	next.finish()
	return next, nil
}
