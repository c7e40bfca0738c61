package bot

import (
	"github.com/rs/zerolog/log"

	"github.com/freeeve/elemental-conquest/api/pkg/conquest"
)

// Strategy picks the next move for a seat.
type Strategy interface {
	Name() string
	// ChooseMove returns false when the player has nothing to play: the game
	// is over or it is not their turn.
	ChooseMove(gs *conquest.GameState, player int) (conquest.Move, bool)
}

// StrategyForDifficulty returns the appropriate strategy for a bot difficulty level.
func StrategyForDifficulty(difficulty string) Strategy {
	switch difficulty {
	case "easy", "random":
		return &RandomStrategy{}
	case "hard":
		return &GreedyStrategy{Cautious: true}
	case "medium", "":
		return &GreedyStrategy{}
	default:
		log.Warn().Str("difficulty", difficulty).Msg("Unknown bot difficulty, using medium")
		return &GreedyStrategy{}
	}
}

// ParseMatchup splits "greedy-vs-random" style tier names into two difficulties.
func ParseMatchup(s string) (string, string, bool) {
	for i := 0; i+4 <= len(s); i++ {
		if s[i:i+4] == "-vs-" {
			return s[:i], s[i+4:], s[:i] != "" && s[i+4:] != ""
		}
	}
	return "", "", false
}

// checked returns m when the engine accepts it, otherwise the first legal
// move. Strategies run through it so a heuristic bug never stalls a game.
func checked(gs *conquest.GameState, player int, m conquest.Move) (conquest.Move, bool) {
	if m != nil && conquest.Validate(gs, player, m) == nil {
		return m, true
	}
	legal := conquest.LegalMoves(gs, player)
	if len(legal) == 0 {
		return nil, false
	}
	if m != nil {
		log.Warn().Str("move", m.Describe()).Int("player", player).Msg("Bot chose an illegal move, falling back")
	}
	return legal[len(legal)-1], true
}

// ownCells returns the player's cells in random order.
func ownCells(gs *conquest.GameState, player int) []conquest.Cell {
	cells := gs.CellsOf(player)
	botShuffle(len(cells), func(i, j int) { cells[i], cells[j] = cells[j], cells[i] })
	return cells
}

func neighbors(gs *conquest.GameState, c conquest.Cell) []conquest.Cell {
	ns, err := gs.Board.NeighborsOf(c.X, c.Y)
	if err != nil {
		return nil
	}
	return ns
}
