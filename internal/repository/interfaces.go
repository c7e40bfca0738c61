package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/freeeve/elemental-conquest/api/internal/model"
)

// ErrVersionConflict is returned by conditional writes when the stored
// version no longer matches the one the caller read.
var ErrVersionConflict = errors.New("state version conflict")

// GameRepository defines game and seat data operations.
type GameRepository interface {
	Create(ctx context.Context, g *model.Game) (*model.Game, error)
	FindByID(ctx context.Context, id string) (*model.Game, error)
	FindByRoomCode(ctx context.Context, code string) (*model.Game, error)
	ListOpen(ctx context.Context) ([]model.Game, error)
	ListActive(ctx context.Context) ([]model.Game, error)
	ListFinished(ctx context.Context) ([]model.Game, error)
	AddSeat(ctx context.Context, seat model.Seat) error
	Activate(ctx context.Context, gameID string, state json.RawMessage, version uint64, deadline *time.Time) error
	SaveState(ctx context.Context, gameID string, state json.RawMessage, prevVersion, version uint64, deadline *time.Time) error
	LoadState(ctx context.Context, gameID string) (json.RawMessage, uint64, error)
	SetFinished(ctx context.Context, gameID string, winner *int) error
	ListExpired(ctx context.Context) ([]model.Game, error)
}

// MoveRepository stores the append-only move log.
type MoveRepository interface {
	Append(ctx context.Context, rec model.MoveRecord) error
	ListByGame(ctx context.Context, gameID string) ([]model.MoveRecord, error)
}

// GameCache defines live game state operations (Redis).
type GameCache interface {
	SetGameState(ctx context.Context, gameID string, state json.RawMessage, version uint64) error
	GetGameState(ctx context.Context, gameID string) (json.RawMessage, uint64, error)
	CompareAndSwapState(ctx context.Context, gameID string, expected uint64, state json.RawMessage, version uint64) error
	SetTimer(ctx context.Context, gameID string, deadline time.Time) error
	ClearTimer(ctx context.Context, gameID string) error
	DeleteGameData(ctx context.Context, gameID string) error
}
