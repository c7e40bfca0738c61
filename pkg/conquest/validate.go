package conquest

// Validate checks whether the player may make the move right now. It never
// mutates gs and is safe to call concurrently with other readers.
func Validate(gs *GameState, playerID int, m Move) error {
	switch mv := m.(type) {
	case LineMove:
		return ValidateLineMove(gs, playerID, mv.Orientation, mv.X, mv.Y)
	case ArmyMove:
		return ValidateArmyMove(gs, playerID, mv.From, mv.To, mv.Count)
	case PlaceArmyMove:
		return ValidatePlacement(gs, playerID, mv.Cell, mv.Count)
	case PassMove:
		return ValidatePass(gs, playerID)
	case nil:
		return &MoveError{Err: ErrWrongPhase, Detail: "no move"}
	default:
		return reject(m, ErrWrongPhase, "unsupported move kind %s", m.Kind())
	}
}

// checkTurn runs the gates shared by every move: active status, phase, turn.
func checkTurn(gs *GameState, playerID int, m Move, want Phase) error {
	if gs.Status != StatusActive {
		return reject(m, ErrGameNotActive, "status is %s", gs.Status)
	}
	if gs.Phase != want {
		return reject(m, ErrWrongPhase, "phase is %s", gs.Phase)
	}
	if playerID != gs.CurrentPlayer {
		return reject(m, ErrNotYourTurn, "player %d to move, not %d", gs.CurrentPlayer, playerID)
	}
	return nil
}

// ValidateLineMove checks a drawing-phase edge claim.
func ValidateLineMove(gs *GameState, playerID int, o Orientation, x, y int) error {
	m := LineMove{Orientation: o, X: x, Y: y}
	if err := checkTurn(gs, playerID, m, PhaseDrawing); err != nil {
		return err
	}
	e, err := gs.Board.EdgeAt(o, x, y)
	if err != nil {
		return rejectLookup(m, err)
	}
	if e.State == EdgeDrawn {
		return reject(m, ErrAlreadyOccupied, "edge drawn by player %d", e.Owner)
	}
	return nil
}

// ValidateArmyMove checks an army-phase move or attack. An attack must
// strictly outnumber the defenders; ties and smaller forces are rejected.
// A source cell the player does not own is rejected with ErrNotOwner.
func ValidateArmyMove(gs *GameState, playerID int, from, to Point, count int) error {
	m := ArmyMove{From: from, To: to, Count: count}
	if err := checkTurn(gs, playerID, m, PhaseArmy); err != nil {
		return err
	}
	src, err := gs.Board.CellAt(from.X, from.Y)
	if err != nil {
		return rejectLookup(m, err)
	}
	dst, err := gs.Board.CellAt(to.X, to.Y)
	if err != nil {
		return rejectLookup(m, err)
	}
	if src.Owner != playerID {
		return reject(m, ErrNotOwner, "source %s owned by %d", from, src.Owner)
	}
	if count < 1 {
		return reject(m, ErrInsufficientForce, "must move at least one army")
	}
	if count > src.Armies {
		return reject(m, ErrInsufficientForce, "%d armies at %s", src.Armies, from)
	}
	if !Adjacent(from, to) {
		return reject(m, ErrIllegalAdjacency, "%s does not border %s", from, to)
	}
	if dst.Owner != NoPlayer && dst.Owner != playerID && count <= dst.Armies {
		return reject(m, ErrInsufficientForce, "%d attackers against %d defenders", count, dst.Armies)
	}
	return nil
}

// ValidatePlacement checks placing armies from the pool onto an owned cell.
func ValidatePlacement(gs *GameState, playerID int, cell Point, count int) error {
	m := PlaceArmyMove{Cell: cell, Count: count}
	if err := checkTurn(gs, playerID, m, PhaseArmy); err != nil {
		return err
	}
	c, err := gs.Board.CellAt(cell.X, cell.Y)
	if err != nil {
		return rejectLookup(m, err)
	}
	if c.Owner != playerID {
		return reject(m, ErrNotOwner, "%s owned by %d", cell, c.Owner)
	}
	if count < 1 {
		return reject(m, ErrInsufficientForce, "must place at least one army")
	}
	if pool := gs.Players[playerID].ArmyPool; count > pool {
		return reject(m, ErrAlreadyOccupied, "pool has %d armies left", pool)
	}
	return nil
}

// ValidatePass checks ending an army-phase turn without acting.
func ValidatePass(gs *GameState, playerID int) error {
	return checkTurn(gs, playerID, PassMove{}, PhaseArmy)
}
