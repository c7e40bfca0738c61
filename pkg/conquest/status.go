package conquest

// PlayerSummary is the per-player part of a StatusView.
type PlayerSummary struct {
	ID            int     `json:"id"`
	Element       Element `json:"element"`
	Color         string  `json:"color"`
	IsAI          bool    `json:"is_ai"`
	Territories   int     `json:"territories"`
	ArmiesOnBoard int     `json:"armies_on_board"`
	ArmyPool      int     `json:"army_pool"`
}

// StatusView is a read-only projection of a game for transport and storage layers.
type StatusView struct {
	CurrentPlayer int             `json:"current_player"`
	Phase         Phase           `json:"phase"`
	Status        GameStatus      `json:"status"`
	Version       uint64          `json:"version"`
	ArmyRound     int             `json:"army_round"`
	EdgesDrawn    int             `json:"edges_drawn"`
	EdgesTotal    int             `json:"edges_total"`
	Outcome       Outcome         `json:"outcome"`
	Winner        int             `json:"winner"`
	Players       []PlayerSummary `json:"players"`
}

// CurrentStatus summarizes gs without exposing the board.
func CurrentStatus(gs *GameState) StatusView {
	v := StatusView{
		CurrentPlayer: gs.CurrentPlayer,
		Phase:         gs.Phase,
		Status:        gs.Status,
		Version:       gs.Version,
		ArmyRound:     gs.ArmyRound,
		EdgesDrawn:    gs.Board.DrawnEdgeCount(),
		EdgesTotal:    gs.Board.EdgeCount(),
		Outcome:       gs.Outcome,
		Winner:        gs.Winner,
		Players:       make([]PlayerSummary, 0, len(gs.Players)),
	}
	armies := make([]int, len(gs.Players))
	for _, c := range gs.Board.Cells {
		if c.Owner >= 0 && c.Owner < len(armies) {
			armies[c.Owner] += c.Armies
		}
	}
	for _, p := range gs.Players {
		v.Players = append(v.Players, PlayerSummary{
			ID:            p.ID,
			Element:       p.Element,
			Color:         p.Color,
			IsAI:          p.IsAI,
			Territories:   p.Territories,
			ArmiesOnBoard: armies[p.ID],
			ArmyPool:      p.ArmyPool,
		})
	}
	return v
}
