package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/freeeve/elemental-conquest/api/internal/model"
)

// MoveRepo handles the moves table.
type MoveRepo struct {
	db *sql.DB
}

// NewMoveRepo creates a MoveRepo.
func NewMoveRepo(db *sql.DB) *MoveRepo {
	return &MoveRepo{db: db}
}

// Append records an applied move. Version is unique per game, so a replayed
// append fails instead of duplicating history.
func (r *MoveRepo) Append(ctx context.Context, rec model.MoveRecord) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO moves (game_id, version, seat, kind, orientation, x, y, to_x, to_y, count, completed, auto)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		rec.GameID, int64(rec.Version), rec.Seat, rec.Kind, rec.Orientation,
		rec.X, rec.Y, rec.ToX, rec.ToY, rec.Count, rec.Completed, rec.Auto,
	)
	if err != nil {
		return fmt.Errorf("append move: %w", err)
	}
	return nil
}

// ListByGame returns a game's moves in the order they were applied.
func (r *MoveRepo) ListByGame(ctx context.Context, gameID string) ([]model.MoveRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT game_id, version, seat, kind, orientation, x, y, to_x, to_y, count, completed, auto, created_at
		 FROM moves WHERE game_id = $1 ORDER BY version`, gameID)
	if err != nil {
		return nil, fmt.Errorf("list moves: %w", err)
	}
	defer rows.Close()

	var moves []model.MoveRecord
	for rows.Next() {
		var m model.MoveRecord
		var version int64
		if err := rows.Scan(&m.GameID, &version, &m.Seat, &m.Kind, &m.Orientation, &m.X, &m.Y,
			&m.ToX, &m.ToY, &m.Count, &m.Completed, &m.Auto, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan move: %w", err)
		}
		m.Version = uint64(version)
		moves = append(moves, m)
	}
	return moves, rows.Err()
}
