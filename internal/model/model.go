package model

import (
	"time"
)

// Game modes.
const (
	ModeLocal  = "local"
	ModeOnline = "online"
)

// Game is a match record. The rules state itself lives in GameState
// snapshots (Redis for live play, Postgres for durability).
type Game struct {
	ID           string     `json:"id"`
	RoomCode     string     `json:"room_code,omitempty"`
	Mode         string     `json:"mode"`     // local, online
	MapSize      string     `json:"map_size"` // small, medium, large
	PlayerCount  int        `json:"player_count"`
	HostSeat     int        `json:"host_seat"`
	Status       string     `json:"status"` // waiting, active, finished
	Winner       *int       `json:"winner,omitempty"`
	Version      uint64     `json:"version"`
	TurnDeadline *time.Time `json:"turn_deadline,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	FinishedAt   *time.Time `json:"finished_at,omitempty"`
	Seats        []Seat     `json:"seats,omitempty"`
}

// Full reports whether every seat has been taken.
func (g *Game) Full() bool {
	return len(g.Seats) >= g.PlayerCount
}

// Seat is one participant. Seat numbers are the engine's player ids.
type Seat struct {
	GameID        string    `json:"game_id"`
	Seat          int       `json:"seat"`
	Element       string    `json:"element"`
	Color         string    `json:"color"`
	IsAI          bool      `json:"is_ai"`
	BotDifficulty string    `json:"bot_difficulty,omitempty"`
	JoinedAt      time.Time `json:"joined_at"`
}

// MoveRecord is one applied move in a game's history.
type MoveRecord struct {
	GameID      string    `json:"game_id"`
	Version     uint64    `json:"version"`
	Seat        int       `json:"seat"`
	Kind        string    `json:"kind"`
	Orientation string    `json:"orientation,omitempty"`
	X           int       `json:"x"`
	Y           int       `json:"y"`
	ToX         int       `json:"to_x,omitempty"`
	ToY         int       `json:"to_y,omitempty"`
	Count       int       `json:"count,omitempty"`
	Completed   int       `json:"completed"`
	Auto        bool      `json:"auto"`
	CreatedAt   time.Time `json:"created_at"`
}
