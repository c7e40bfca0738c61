package conquest

// Element is a player's elemental realm; each element appears at most once per game.
type Element string

const (
	Fire  Element = "fire"
	Water Element = "water"
	Earth Element = "earth"
	Wind  Element = "wind"
)

// AllElements returns the elements in seat-assignment order.
func AllElements() []Element {
	return []Element{Fire, Water, Earth, Wind}
}

// Valid reports whether e is one of the four elements.
func (e Element) Valid() bool {
	switch e {
	case Fire, Water, Earth, Wind:
		return true
	}
	return false
}

// SeatColors is the display palette, indexed by player id.
var SeatColors = [MaxPlayers]string{"#ff5722", "#2196f3", "#4caf50", "#9c27b0"}

const (
	MinPlayers = 2
	MaxPlayers = 4
)

// Seat is a requested participant passed to NewGame.
type Seat struct {
	Element Element `json:"element"`
	IsAI    bool    `json:"is_ai"`
}

// Player is a participant in a running game.
type Player struct {
	ID          int     `json:"id"`
	Element     Element `json:"element"`
	Color       string  `json:"color"`
	IsAI        bool    `json:"is_ai"`
	Territories int     `json:"territories"`
	ArmyPool    int     `json:"army_pool"`
}
