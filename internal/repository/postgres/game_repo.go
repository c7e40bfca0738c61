package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/freeeve/elemental-conquest/api/internal/model"
	"github.com/freeeve/elemental-conquest/api/internal/repository"
)

// GameRepo handles game and game_seats database operations.
type GameRepo struct {
	db *sql.DB
}

// NewGameRepo creates a GameRepo.
func NewGameRepo(db *sql.DB) *GameRepo {
	return &GameRepo{db: db}
}

const gameColumns = `id, COALESCE(room_code, ''), mode, map_size, player_count, host_seat, status, winner,
	version, turn_deadline, created_at, started_at, finished_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanGame(s scanner) (*model.Game, error) {
	var g model.Game
	var winner sql.NullInt64
	var deadline sql.NullTime
	var version int64
	if err := s.Scan(&g.ID, &g.RoomCode, &g.Mode, &g.MapSize, &g.PlayerCount, &g.HostSeat, &g.Status, &winner,
		&version, &deadline, &g.CreatedAt, &g.StartedAt, &g.FinishedAt); err != nil {
		return nil, err
	}
	g.Version = uint64(version)
	if winner.Valid {
		w := int(winner.Int64)
		g.Winner = &w
	}
	if deadline.Valid {
		d := deadline.Time
		g.TurnDeadline = &d
	}
	return &g, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// Create inserts a game together with its initial seats.
func (r *GameRepo) Create(ctx context.Context, g *model.Game) (*model.Game, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	created, err := scanGame(tx.QueryRowContext(ctx,
		`INSERT INTO games (id, room_code, mode, map_size, player_count, host_seat, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING `+gameColumns,
		g.ID, nullString(g.RoomCode), g.Mode, g.MapSize, g.PlayerCount, g.HostSeat, g.Status,
	))
	if err != nil {
		return nil, fmt.Errorf("create game: %w", err)
	}

	for _, s := range g.Seats {
		s.GameID = created.ID
		joined, err := insertSeat(ctx, tx, s)
		if err != nil {
			return nil, err
		}
		s.JoinedAt = joined
		created.Seats = append(created.Seats, s)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit game: %w", err)
	}
	return created, nil
}

func insertSeat(ctx context.Context, tx *sql.Tx, s model.Seat) (time.Time, error) {
	var joined time.Time
	err := tx.QueryRowContext(ctx,
		`INSERT INTO game_seats (game_id, seat, element, color, is_ai, bot_difficulty)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING joined_at`,
		s.GameID, s.Seat, s.Element, s.Color, s.IsAI, s.BotDifficulty,
	).Scan(&joined)
	if err != nil {
		return time.Time{}, fmt.Errorf("insert seat: %w", err)
	}
	return joined, nil
}

// FindByID returns a game by ID with its seats, or nil if it does not exist.
func (r *GameRepo) FindByID(ctx context.Context, id string) (*model.Game, error) {
	return r.findOne(ctx, `SELECT `+gameColumns+` FROM games WHERE id = $1`, id)
}

// FindByRoomCode returns the game registered under an online room code.
func (r *GameRepo) FindByRoomCode(ctx context.Context, code string) (*model.Game, error) {
	return r.findOne(ctx, `SELECT `+gameColumns+` FROM games WHERE room_code = $1`, code)
}

func (r *GameRepo) findOne(ctx context.Context, query string, arg any) (*model.Game, error) {
	g, err := scanGame(r.db.QueryRowContext(ctx, query, arg))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find game: %w", err)
	}
	seats, err := r.ListSeats(ctx, g.ID)
	if err != nil {
		return nil, err
	}
	g.Seats = seats
	return g, nil
}

// ListOpen returns online games still waiting for players.
func (r *GameRepo) ListOpen(ctx context.Context) ([]model.Game, error) {
	return r.list(ctx, `SELECT `+gameColumns+` FROM games
		WHERE status = 'waiting' AND mode = 'online' ORDER BY created_at DESC LIMIT 50`)
}

// ListActive returns all games in progress, including their seats.
func (r *GameRepo) ListActive(ctx context.Context) ([]model.Game, error) {
	return r.list(ctx, `SELECT `+gameColumns+` FROM games WHERE status = 'active' ORDER BY created_at`)
}

// ListFinished returns finished games, most recent first.
func (r *GameRepo) ListFinished(ctx context.Context) ([]model.Game, error) {
	return r.list(ctx, `SELECT `+gameColumns+` FROM games
		WHERE status = 'finished' ORDER BY finished_at DESC LIMIT 100`)
}

// ListExpired returns active games whose turn deadline has passed.
func (r *GameRepo) ListExpired(ctx context.Context) ([]model.Game, error) {
	return r.list(ctx, `SELECT `+gameColumns+` FROM games
		WHERE status = 'active' AND turn_deadline IS NOT NULL AND turn_deadline < now()`)
}

func (r *GameRepo) list(ctx context.Context, query string) ([]model.Game, error) {
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list games: %w", err)
	}
	var games []model.Game
	for rows.Next() {
		g, err := scanGame(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan game: %w", err)
		}
		games = append(games, *g)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range games {
		seats, err := r.ListSeats(ctx, games[i].ID)
		if err != nil {
			return nil, err
		}
		games[i].Seats = seats
	}
	return games, nil
}

// ListSeats returns the seats of a game in seat order.
func (r *GameRepo) ListSeats(ctx context.Context, gameID string) ([]model.Seat, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT game_id, seat, element, color, is_ai, bot_difficulty, joined_at
		 FROM game_seats WHERE game_id = $1 ORDER BY seat`, gameID)
	if err != nil {
		return nil, fmt.Errorf("list seats: %w", err)
	}
	defer rows.Close()

	var seats []model.Seat
	for rows.Next() {
		var s model.Seat
		if err := rows.Scan(&s.GameID, &s.Seat, &s.Element, &s.Color, &s.IsAI, &s.BotDifficulty, &s.JoinedAt); err != nil {
			return nil, fmt.Errorf("scan seat: %w", err)
		}
		seats = append(seats, s)
	}
	return seats, rows.Err()
}

// AddSeat takes a seat in a waiting game. The primary key and the
// (game_id, element) constraint reject double joins.
func (r *GameRepo) AddSeat(ctx context.Context, seat model.Seat) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := insertSeat(ctx, tx, seat); err != nil {
		return err
	}
	return tx.Commit()
}

// Activate stores the first engine snapshot and moves the game to active.
func (r *GameRepo) Activate(ctx context.Context, gameID string, state json.RawMessage, version uint64, deadline *time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE games SET status = 'active', state = $1, version = $2, turn_deadline = $3, started_at = now()
		 WHERE id = $4 AND status = 'waiting'`,
		[]byte(state), int64(version), deadline, gameID,
	)
	if err != nil {
		return fmt.Errorf("activate game: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("activate game %s: %w", gameID, repository.ErrVersionConflict)
	}
	return nil
}

// SaveState replaces the snapshot only if the game is still active and the
// stored version is still prevVersion.
func (r *GameRepo) SaveState(ctx context.Context, gameID string, state json.RawMessage, prevVersion, version uint64, deadline *time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE games SET state = $1, version = $2, turn_deadline = $3
		 WHERE id = $4 AND version = $5 AND status = 'active'`,
		[]byte(state), int64(version), deadline, gameID, int64(prevVersion),
	)
	if err != nil {
		return fmt.Errorf("save state: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("save state %s at version %d: %w", gameID, prevVersion, repository.ErrVersionConflict)
	}
	return nil
}

// LoadState returns the durable snapshot and its version, or nil if none was stored.
func (r *GameRepo) LoadState(ctx context.Context, gameID string) (json.RawMessage, uint64, error) {
	var data []byte
	var version int64
	err := r.db.QueryRowContext(ctx,
		`SELECT state, version FROM games WHERE id = $1`, gameID,
	).Scan(&data, &version)
	if err == sql.ErrNoRows {
		return nil, 0, nil
	}
	if err != nil {
		return nil, 0, fmt.Errorf("load state: %w", err)
	}
	if data == nil {
		return nil, 0, nil
	}
	return json.RawMessage(data), uint64(version), nil
}

// SetFinished marks a game as finished. A nil winner records a draw or a stopped game.
func (r *GameRepo) SetFinished(ctx context.Context, gameID string, winner *int) error {
	var w sql.NullInt64
	if winner != nil {
		w = sql.NullInt64{Int64: int64(*winner), Valid: true}
	}
	_, err := r.db.ExecContext(ctx,
		`UPDATE games SET status = 'finished', winner = $1, turn_deadline = NULL, finished_at = now() WHERE id = $2`,
		w, gameID,
	)
	if err != nil {
		return fmt.Errorf("set finished: %w", err)
	}
	return nil
}
