// Package archive exports the move log of finished games to Parquet files
// for offline analysis and bot tuning.
package archive

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/compress/zstd"
	"github.com/rs/zerolog/log"

	"github.com/freeeve/elemental-conquest/api/internal/model"
	"github.com/freeeve/elemental-conquest/api/internal/repository"
)

const schemaVersion = "move_row_v1"

// MoveRow is one applied move, denormalized with the game facts needed to
// read it without the database. Winner is -1 for draws and stopped games.
type MoveRow struct {
	GameID      string `parquet:"game_id,dict"`
	MapSize     string `parquet:"map_size,dict"`
	PlayerCount int32  `parquet:"player_count"`
	Winner      int32  `parquet:"winner"`
	Version     int64  `parquet:"version"`
	Seat        int32  `parquet:"seat"`
	Element     string `parquet:"element,dict"`
	IsAI        bool   `parquet:"is_ai"`
	Kind        string `parquet:"kind,dict"`
	Orientation string `parquet:"orientation,dict"`
	X           int32  `parquet:"x"`
	Y           int32  `parquet:"y"`
	ToX         int32  `parquet:"to_x"`
	ToY         int32  `parquet:"to_y"`
	Count       int32  `parquet:"count"`
	Completed   int32  `parquet:"completed"`
	Auto        bool   `parquet:"auto"`
	PlayedAtMs  int64  `parquet:"played_at_ms"`
}

// RowsFor flattens a game's move history into archive rows.
func RowsFor(g model.Game, moves []model.MoveRecord) []MoveRow {
	winner := int32(-1)
	if g.Winner != nil {
		winner = int32(*g.Winner)
	}
	seats := make(map[int]model.Seat, len(g.Seats))
	for _, s := range g.Seats {
		seats[s.Seat] = s
	}

	rows := make([]MoveRow, 0, len(moves))
	for _, m := range moves {
		seat := seats[m.Seat]
		rows = append(rows, MoveRow{
			GameID:      g.ID,
			MapSize:     g.MapSize,
			PlayerCount: int32(g.PlayerCount),
			Winner:      winner,
			Version:     int64(m.Version),
			Seat:        int32(m.Seat),
			Element:     seat.Element,
			IsAI:        seat.IsAI,
			Kind:        m.Kind,
			Orientation: m.Orientation,
			X:           int32(m.X),
			Y:           int32(m.Y),
			ToX:         int32(m.ToX),
			ToY:         int32(m.ToY),
			Count:       int32(m.Count),
			Completed:   int32(m.Completed),
			Auto:        m.Auto,
			PlayedAtMs:  m.CreatedAt.UnixMilli(),
		})
	}
	return rows
}

// Write stores rows as a zstd-compressed Parquet file. The file is written
// next to outPath and renamed into place, so readers never see a partial file.
func Write(outPath string, rows []MoveRow) error {
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	tmpPath := outPath + ".tmp"
	_ = os.Remove(tmpPath)

	if err := parquet.WriteFile(tmpPath, rows,
		parquet.Compression(&zstd.Codec{Level: zstd.SpeedBetterCompression}),
		parquet.KeyValueMetadata("schema", schemaVersion),
	); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("write parquet: %w", err)
	}

	if err := os.Rename(tmpPath, outPath); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("rename parquet: %w", err)
	}
	return nil
}

// Read loads every row of an archive file.
func Read(path string) ([]MoveRow, error) {
	rows, err := parquet.ReadFile[MoveRow](path)
	if err != nil {
		return nil, fmt.Errorf("read parquet %s: %w", path, err)
	}
	return rows, nil
}

// Summary describes one export run.
type Summary struct {
	Path    string        `json:"path"`
	Games   int           `json:"games"`
	Rows    int           `json:"rows"`
	Skipped int           `json:"skipped"`
	Elapsed time.Duration `json:"elapsed"`
}

// Exporter reads finished games from the repositories and archives them.
type Exporter struct {
	games repository.GameRepository
	moves repository.MoveRepository
}

// NewExporter creates an Exporter.
func NewExporter(games repository.GameRepository, moves repository.MoveRepository) *Exporter {
	return &Exporter{games: games, moves: moves}
}

// Export writes every finished game that finished at or after since to
// outPath. Games without any recorded move are skipped. When nothing is
// left to export no file is written and Summary.Path is empty.
func (e *Exporter) Export(ctx context.Context, outPath string, since time.Time) (Summary, error) {
	start := time.Now()
	finished, err := e.games.ListFinished(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("list finished games: %w", err)
	}

	var sum Summary
	var rows []MoveRow
	for _, g := range finished {
		if err := ctx.Err(); err != nil {
			return Summary{}, err
		}
		if g.FinishedAt != nil && g.FinishedAt.Before(since) {
			continue
		}
		moves, err := e.moves.ListByGame(ctx, g.ID)
		if err != nil {
			return Summary{}, fmt.Errorf("list moves for %s: %w", g.ID, err)
		}
		if len(moves) == 0 {
			sum.Skipped++
			continue
		}
		rows = append(rows, RowsFor(g, moves)...)
		sum.Games++
	}

	sum.Rows = len(rows)
	if len(rows) > 0 {
		if err := Write(outPath, rows); err != nil {
			return Summary{}, err
		}
		sum.Path = outPath
	}
	sum.Elapsed = time.Since(start)

	log.Info().Str("path", sum.Path).Int("games", sum.Games).Int("rows", sum.Rows).
		Int("skipped", sum.Skipped).Dur("elapsed", sum.Elapsed).Msg("Archive export finished")
	return sum, nil
}
