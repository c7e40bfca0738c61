package bot

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/freeeve/elemental-conquest/api/internal/model"
	"github.com/freeeve/elemental-conquest/api/internal/repository"
	"github.com/freeeve/elemental-conquest/api/pkg/conquest"
)

// ArenaConfig configures a single bot-vs-bot game.
type ArenaConfig struct {
	Size         conquest.GridSize
	Difficulties []string // seat -> difficulty, 2-4 entries
	Rules        conquest.Rules
	MaxMoves     int   // safety cap; 0 = 20000
	Seed         int64 // 0 = random
	DryRun       bool  // skip DB writes
}

// ArenaResult describes the outcome of a completed arena game.
type ArenaResult struct {
	GameID      string
	Outcome     conquest.Outcome
	Winner      int // seat, or -1 for a draw
	Moves       int
	ArmyRounds  int
	Territories []int
	Strategies  []string
}

// RunGame plays a full game between bot strategies on the engine alone,
// recording it to Postgres unless DryRun is set. Pass nil repos for dry runs.
func RunGame(
	ctx context.Context,
	cfg ArenaConfig,
	gameRepo repository.GameRepository,
	moveRepo repository.MoveRepository,
) (*ArenaResult, error) {
	if cfg.MaxMoves == 0 {
		cfg.MaxMoves = 20000
	}
	if cfg.Size == 0 {
		cfg.Size = conquest.Small
	}
	if cfg.Seed != 0 {
		SeedBotRng(cfg.Seed)
	}

	elements := conquest.AllElements()
	if len(cfg.Difficulties) > len(elements) {
		return nil, fmt.Errorf("%w: %d seats", conquest.ErrInvalidSetup, len(cfg.Difficulties))
	}
	seats := make([]conquest.Seat, len(cfg.Difficulties))
	strategies := make([]Strategy, len(cfg.Difficulties))
	result := &ArenaResult{Winner: conquest.NoPlayer}
	for i, diff := range cfg.Difficulties {
		seats[i] = conquest.Seat{Element: elements[i], IsAI: true}
		strategies[i] = StrategyForDifficulty(diff)
		result.Strategies = append(result.Strategies, strategies[i].Name())
	}

	gs, err := conquest.NewGame(cfg.Size, seats, cfg.Rules)
	if err != nil {
		return nil, err
	}
	gs.Status = conquest.StatusActive

	if !cfg.DryRun {
		result.GameID, err = createArenaGame(ctx, cfg, gs, gameRepo)
		if err != nil {
			return nil, fmt.Errorf("create arena game: %w", err)
		}
	}

	for result.Moves < cfg.MaxMoves && gs.Status == conquest.StatusActive {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		seat := gs.CurrentPlayer
		m, ok := strategies[seat].ChooseMove(gs, seat)
		if !ok {
			return nil, fmt.Errorf("seat %d has no move at version %d", seat, gs.Version)
		}
		next, deltas, err := conquest.Apply(gs, seat, m)
		if err != nil {
			return nil, fmt.Errorf("%s played by seat %d: %w", strategies[seat].Name(), seat, err)
		}
		if !cfg.DryRun {
			rec := MoveRecord(result.GameID, next.Version, seat, m, len(deltas))
			rec.Auto = true
			if err := moveRepo.Append(ctx, rec); err != nil {
				return nil, err
			}
		}
		gs = next
		result.Moves++
	}

	result.Outcome = gs.Outcome
	result.Winner = gs.Winner
	result.ArmyRounds = gs.ArmyRound
	for _, p := range gs.Players {
		result.Territories = append(result.Territories, p.Territories)
	}

	if !cfg.DryRun {
		if err := finishArenaGame(ctx, result.GameID, gs, gameRepo); err != nil {
			return nil, err
		}
	}

	if gs.Status != conquest.StatusFinished {
		log.Warn().Str("gameId", result.GameID).Int("moves", result.Moves).Msg("Arena game hit the move cap")
		return result, nil
	}
	log.Debug().Str("gameId", result.GameID).Str("outcome", string(gs.Outcome)).
		Int("winner", gs.Winner).Int("moves", result.Moves).Msg("Arena game finished")
	return result, nil
}

// MoveRecord flattens an applied move into its history row.
func MoveRecord(gameID string, version uint64, seat int, m conquest.Move, completed int) model.MoveRecord {
	w := conquest.EncodeMove(m)
	return model.MoveRecord{
		GameID:      gameID,
		Version:     version,
		Seat:        seat,
		Kind:        string(w.Kind),
		Orientation: string(w.Orientation),
		X:           w.X,
		Y:           w.Y,
		ToX:         w.ToX,
		ToY:         w.ToY,
		Count:       w.Count,
		Completed:   completed,
	}
}

func createArenaGame(ctx context.Context, cfg ArenaConfig, gs *conquest.GameState, gameRepo repository.GameRepository) (string, error) {
	g := &model.Game{
		ID:          uuid.NewString(),
		Mode:        model.ModeLocal,
		MapSize:     cfg.Size.String(),
		PlayerCount: len(gs.Players),
		Status:      string(conquest.StatusWaiting),
	}
	for i, p := range gs.Players {
		g.Seats = append(g.Seats, model.Seat{
			Seat:          p.ID,
			Element:       string(p.Element),
			Color:         p.Color,
			IsAI:          true,
			BotDifficulty: cfg.Difficulties[i],
		})
	}
	created, err := gameRepo.Create(ctx, g)
	if err != nil {
		return "", err
	}
	data, err := json.Marshal(gs)
	if err != nil {
		return "", fmt.Errorf("marshal initial state: %w", err)
	}
	if err := gameRepo.Activate(ctx, created.ID, data, gs.Version, nil); err != nil {
		return "", err
	}
	return created.ID, nil
}

func finishArenaGame(ctx context.Context, gameID string, gs *conquest.GameState, gameRepo repository.GameRepository) error {
	data, err := json.Marshal(gs)
	if err != nil {
		return fmt.Errorf("marshal final state: %w", err)
	}
	if err := gameRepo.SaveState(ctx, gameID, data, 0, gs.Version, nil); err != nil {
		return fmt.Errorf("save final state: %w", err)
	}
	var winner *int
	if gs.Outcome == conquest.OutcomeWin {
		w := gs.Winner
		winner = &w
	}
	return gameRepo.SetFinished(ctx, gameID, winner)
}
