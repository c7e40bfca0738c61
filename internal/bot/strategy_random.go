package bot

import "github.com/freeeve/elemental-conquest/api/pkg/conquest"

// RandomStrategy draws a random open line, and in the army phase expands or
// attacks from the first cell that can spare an army, placing its pool
// when no such move exists.
type RandomStrategy struct{}

func (RandomStrategy) Name() string { return "random" }

func (RandomStrategy) ChooseMove(gs *conquest.GameState, player int) (conquest.Move, bool) {
	if gs.Status != conquest.StatusActive || gs.CurrentPlayer != player {
		return nil, false
	}
	if gs.Phase == conquest.PhaseDrawing {
		lines := conquest.LegalMoves(gs, player)
		if len(lines) == 0 {
			return nil, false
		}
		return lines[botIntn(len(lines))], true
	}

	cells := ownCells(gs, player)
	for _, c := range cells {
		if c.Armies <= 1 {
			continue
		}
		spare := c.Armies - 1
		for _, n := range neighbors(gs, c) {
			if n.Owner == player {
				continue
			}
			if n.Owner == conquest.NoPlayer || spare > n.Armies {
				return checked(gs, player, conquest.ArmyMove{From: c.Pos(), To: n.Pos(), Count: spare})
			}
		}
	}

	if pool := gs.Players[player].ArmyPool; pool > 0 && len(cells) > 0 {
		return checked(gs, player, conquest.PlaceArmyMove{Cell: cells[0].Pos(), Count: pool})
	}
	return checked(gs, player, conquest.PassMove{})
}
