// Package conquest implements the rules engine for Elemental Conquest: a
// territory game where players draw grid edges to claim cells, then fight
// over the claimed cells with armies.
//
// The engine is pure and synchronous. Every Apply* function returns a new
// *GameState and leaves its input untouched, so callers may keep the old
// snapshot around (for retries or optimistic compare-and-swap on Version).
// Callers must ensure at most one move application per game at a time;
// the engine does no locking of its own. Distinct games share nothing.
package conquest

import "fmt"

// Phase is the global stage of a game.
type Phase string

const (
	PhaseDrawing Phase = "drawing"
	PhaseArmy    Phase = "army"
)

// GameStatus is the match lifecycle. The matchmaking layer moves a game from
// waiting to active; the engine only ever moves it to finished.
type GameStatus string

const (
	StatusWaiting  GameStatus = "waiting"
	StatusActive   GameStatus = "active"
	StatusFinished GameStatus = "finished"
)

// Outcome is the result of a finished game.
type Outcome string

const (
	OutcomeNone Outcome = "none"
	OutcomeWin  Outcome = "win"
	OutcomeDraw Outcome = "draw"
)

// Rules holds the tunable constants of a game.
type Rules struct {
	// ExtraTurnOnClaim keeps the turn with a player whose line completes a cell.
	ExtraTurnOnClaim bool `json:"extra_turn_on_claim"`
	// ArmiesPerTerritory is the pool granted per owned cell when the army phase starts.
	ArmiesPerTerritory int `json:"armies_per_territory"`
	// ClaimGarrison is the army count placed on a cell when it is claimed by drawing.
	ClaimGarrison int `json:"claim_garrison"`
	// MaxArmyRounds ends the game after this many full army-phase rounds. Zero means no limit.
	MaxArmyRounds int `json:"max_army_rounds"`
}

// DefaultRules returns the standard rule set.
func DefaultRules() Rules {
	return Rules{
		ArmiesPerTerritory: 3,
		ClaimGarrison:      1,
	}
}

// GameState is the complete snapshot of a game.
type GameState struct {
	Board         *Board     `json:"board"`
	Players       []Player   `json:"players"`
	CurrentPlayer int        `json:"current_player"`
	Phase         Phase      `json:"phase"`
	Status        GameStatus `json:"status"`
	Rules         Rules      `json:"rules"`
	Version       uint64     `json:"version"`
	ArmyRound     int        `json:"army_round"`
	// ArmyStartSeat took the first army-phase turn; a round completes each
	// time the turn comes back to it.
	ArmyStartSeat int        `json:"army_start_seat"`
	Outcome       Outcome    `json:"outcome"`
	Winner        int        `json:"winner"`
}

// NewGame creates a waiting game with an empty board. Colors are assigned by seat order.
func NewGame(size GridSize, seats []Seat, rules Rules) (*GameState, error) {
	if !size.valid() {
		return nil, fmt.Errorf("%w: grid size %d", ErrInvalidSetup, int(size))
	}
	if len(seats) < MinPlayers || len(seats) > MaxPlayers {
		return nil, fmt.Errorf("%w: need %d-%d players, got %d", ErrInvalidSetup, MinPlayers, MaxPlayers, len(seats))
	}
	if rules.ArmiesPerTerritory < 0 || rules.ClaimGarrison < 0 || rules.MaxArmyRounds < 0 {
		return nil, fmt.Errorf("%w: negative rule value", ErrInvalidSetup)
	}
	seen := make(map[Element]bool, len(seats))
	players := make([]Player, 0, len(seats))
	for i, s := range seats {
		if !s.Element.Valid() {
			return nil, fmt.Errorf("%w: unknown element %q", ErrInvalidSetup, s.Element)
		}
		if seen[s.Element] {
			return nil, fmt.Errorf("%w: element %s taken twice", ErrInvalidSetup, s.Element)
		}
		seen[s.Element] = true
		players = append(players, Player{
			ID:      i,
			Element: s.Element,
			Color:   SeatColors[i],
			IsAI:    s.IsAI,
		})
	}
	return &GameState{
		Board:   NewBoard(size),
		Players: players,
		Phase:   PhaseDrawing,
		Status:  StatusWaiting,
		Rules:   rules,
		Outcome: OutcomeNone,
		Winner:  NoPlayer,
	}, nil
}

// Clone returns a deep copy. Mutations to the clone never affect the original.
func (gs *GameState) Clone() *GameState {
	c := *gs
	if gs.Board != nil {
		c.Board = gs.Board.Clone()
	}
	c.Players = append([]Player(nil), gs.Players...)
	return &c
}

// Player returns the player with the given id, or nil.
func (gs *GameState) Player(id int) *Player {
	if id < 0 || id >= len(gs.Players) {
		return nil
	}
	return &gs.Players[id]
}

// ArmiesOnBoard returns the total armies the player has on cells.
func (gs *GameState) ArmiesOnBoard(id int) int {
	total := 0
	for _, c := range gs.Board.Cells {
		if c.Owner == id {
			total += c.Armies
		}
	}
	return total
}

// CellsOf returns every cell owned by the player.
func (gs *GameState) CellsOf(id int) []Cell {
	var cells []Cell
	for _, c := range gs.Board.Cells {
		if c.Owner == id {
			cells = append(cells, c)
		}
	}
	return cells
}

// IsOver reports whether the game has finished.
func (gs *GameState) IsOver() bool {
	return gs.Status == StatusFinished
}
