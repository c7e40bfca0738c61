package conquest

// endTurn runs after every applied move: bumps the version, flips the
// phase once the last edge is drawn, rotates the turn and checks for the
// end of the game.
func (gs *GameState) endTurn(claimed bool) {
	gs.Version++

	if gs.Phase == PhaseDrawing {
		if gs.Board.Full() {
			gs.Phase = PhaseArmy
			gs.grantArmyPools()
			gs.advance(false)
			gs.ArmyStartSeat = gs.CurrentPlayer
			gs.checkTerminal()
			return
		}
		if claimed && gs.Rules.ExtraTurnOnClaim {
			return
		}
		gs.advance(false)
		return
	}

	gs.advance(true)
	gs.checkTerminal()
}

// advance passes the turn to the next seat. During the army phase a round
// completes when the turn returns to ArmyStartSeat.
func (gs *GameState) advance(countRound bool) {
	gs.CurrentPlayer = (gs.CurrentPlayer + 1) % len(gs.Players)
	if countRound && gs.CurrentPlayer == gs.ArmyStartSeat {
		gs.ArmyRound++
	}
}

// checkTerminal finishes an army-phase game when at most one player still
// holds territory or the round limit is reached.
func (gs *GameState) checkTerminal() {
	if gs.Phase != PhaseArmy || gs.Status != StatusActive {
		return
	}
	alive := 0
	for _, p := range gs.Players {
		if p.Territories > 0 {
			alive++
		}
	}
	limitReached := gs.Rules.MaxArmyRounds > 0 && gs.ArmyRound >= gs.Rules.MaxArmyRounds
	if alive > 1 && !limitReached {
		return
	}
	gs.finish()
}

// finish decides the result: the unique leader in territories wins, a shared
// lead is a draw.
func (gs *GameState) finish() {
	gs.Status = StatusFinished
	best, leader, tied := -1, NoPlayer, false
	for _, p := range gs.Players {
		switch {
		case p.Territories > best:
			best, leader, tied = p.Territories, p.ID, false
		case p.Territories == best:
			tied = true
		}
	}
	if tied || best <= 0 {
		gs.Outcome = OutcomeDraw
		gs.Winner = NoPlayer
		return
	}
	gs.Outcome = OutcomeWin
	gs.Winner = leader
}
