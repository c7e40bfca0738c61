package bot

import (
	"github.com/freeeve/elemental-conquest/api/pkg/conquest"
)

// GreedyStrategy takes every cell it can close, avoids drawing the third
// side of a cell, reinforces its most threatened border and attacks where
// it wins by the widest margin.
//
// Cautious bots keep one army behind on every attack and only expand into
// cells they can hold against the strongest adjacent enemy.
type GreedyStrategy struct {
	Cautious bool
}

func (g GreedyStrategy) Name() string {
	if g.Cautious {
		return "greedy-cautious"
	}
	return "greedy"
}

func (g GreedyStrategy) ChooseMove(gs *conquest.GameState, player int) (conquest.Move, bool) {
	if gs.Status != conquest.StatusActive || gs.CurrentPlayer != player {
		return nil, false
	}
	if gs.Phase == conquest.PhaseDrawing {
		return checked(gs, player, g.chooseLine(gs))
	}
	if m := g.place(gs, player); m != nil {
		return checked(gs, player, m)
	}
	if m := g.attack(gs, player); m != nil {
		return checked(gs, player, m)
	}
	if m := g.expand(gs, player); m != nil {
		return checked(gs, player, m)
	}
	return checked(gs, player, conquest.PassMove{})
}

// chooseLine prefers the edge that closes the most cells, then an edge that
// hands nothing to the next player, then the edge that gives away the fewest.
func (g GreedyStrategy) chooseLine(gs *conquest.GameState) conquest.Move {
	best, bestClaims := conquest.LineMove{}, 0
	for lm, n := range conquest.CompletingLines(gs) {
		if n > bestClaims || (n == bestClaims && lineLess(lm, best)) {
			best, bestClaims = lm, n
		}
	}
	if bestClaims > 0 {
		return best
	}

	var safe []conquest.Move
	var fallback conquest.Move
	leastRisk := 3
	for _, m := range conquest.LegalMoves(gs, gs.CurrentPlayer) {
		lm := m.(conquest.LineMove)
		risk := giveaways(gs.Board, lm)
		if risk == 0 {
			safe = append(safe, lm)
			continue
		}
		if risk < leastRisk {
			fallback, leastRisk = lm, risk
		}
	}
	if len(safe) > 0 {
		return safe[botIntn(len(safe))]
	}
	return fallback
}

// giveaways counts the open cells next to the edge that would be left with
// three sides drawn.
func giveaways(b *conquest.Board, lm conquest.LineMove) int {
	cells, err := b.CellsAdjacentToEdge(lm.Orientation, lm.X, lm.Y)
	if err != nil {
		return 0
	}
	n := 0
	for _, c := range cells {
		if c.State == conquest.CellEmpty && b.DrawnSides(c.Pos()) == 2 {
			n++
		}
	}
	return n
}

func lineLess(a, b conquest.LineMove) bool {
	if a.Orientation != b.Orientation {
		return a.Orientation < b.Orientation
	}
	if a.Y != b.Y {
		return a.Y < b.Y
	}
	return a.X < b.X
}

// threat is how many more armies the strongest enemy of player next to c
// has than the garrison would.
func threat(gs *conquest.GameState, c conquest.Cell, player, garrison int) (int, bool) {
	worst, frontier := 0, false
	for _, n := range neighbors(gs, c) {
		if n.Owner == conquest.NoPlayer || n.Owner == player {
			continue
		}
		frontier = true
		if d := n.Armies - garrison; d > worst {
			worst = d
		}
	}
	return worst, frontier
}

// place drops the whole pool on the most threatened border cell.
func (g GreedyStrategy) place(gs *conquest.GameState, player int) conquest.Move {
	pool := gs.Players[player].ArmyPool
	if pool == 0 {
		return nil
	}
	cells := ownCells(gs, player)
	if len(cells) == 0 {
		return nil
	}
	target, worst := cells[0], -1
	for _, c := range cells {
		t, frontier := threat(gs, c, player, c.Armies)
		if frontier && t > worst {
			target, worst = c, t
		}
	}
	return conquest.PlaceArmyMove{Cell: target.Pos(), Count: pool}
}

// attack picks the capture with the largest surviving margin.
func (g GreedyStrategy) attack(gs *conquest.GameState, player int) conquest.Move {
	var best conquest.Move
	bestMargin := 0
	for _, c := range ownCells(gs, player) {
		force := c.Armies
		if g.Cautious {
			force--
		}
		for _, n := range neighbors(gs, c) {
			if n.Owner == player || n.Owner == conquest.NoPlayer {
				continue
			}
			if margin := force - n.Armies; margin > bestMargin {
				best = conquest.ArmyMove{From: c.Pos(), To: n.Pos(), Count: force}
				bestMargin = margin
			}
		}
	}
	return best
}

// expand moves spare armies into unowned neighbors.
func (g GreedyStrategy) expand(gs *conquest.GameState, player int) conquest.Move {
	for _, c := range ownCells(gs, player) {
		if c.Armies < 2 {
			continue
		}
		for _, n := range neighbors(gs, c) {
			if n.Owner != conquest.NoPlayer {
				continue
			}
			count := c.Armies - 1
			if g.Cautious {
				count = c.Armies / 2
				if t, _ := threat(gs, n, player, count); t > 0 {
					continue
				}
			}
			return conquest.ArmyMove{From: c.Pos(), To: n.Pos(), Count: count}
		}
	}
	return nil
}
