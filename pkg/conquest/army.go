package conquest

// grantArmyPools hands each player ArmiesPerTerritory armies per owned cell.
// Called once, when the drawing phase ends.
func (gs *GameState) grantArmyPools() {
	for i := range gs.Players {
		gs.Players[i].ArmyPool = gs.Rules.ArmiesPerTerritory * gs.Players[i].Territories
	}
}

// moveArmies applies an already validated army move.
func (gs *GameState) moveArmies(playerID int, from, to Point, count int) {
	src := gs.Board.cell(from)
	dst := gs.Board.cell(to)
	src.Armies -= count

	switch dst.Owner {
	case playerID:
		dst.Armies += count
	case NoPlayer:
		gs.claim(dst, playerID)
		dst.Armies = count
	default:
		// Validation guarantees count > dst.Armies.
		gs.Players[dst.Owner].Territories--
		gs.claim(dst, playerID)
		dst.Armies = count - dst.Armies
	}
}

func (gs *GameState) claim(c *Cell, playerID int) {
	c.State = CellClaimed
	c.Owner = playerID
	c.Element = gs.Players[playerID].Element
	gs.Players[playerID].Territories++
}
