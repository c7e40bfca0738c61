package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/freeeve/elemental-conquest/api/internal/bot"
	"github.com/freeeve/elemental-conquest/api/internal/logger"
	"github.com/freeeve/elemental-conquest/api/internal/model"
	"github.com/freeeve/elemental-conquest/api/internal/repository"
	"github.com/freeeve/elemental-conquest/api/pkg/conquest"
)

// maxAutoMoves bounds how many bot and forced moves follow a single
// submission. A four-bot stretch of the drawing phase is well under it.
const maxAutoMoves = 2000

// MoveResult is returned after a move is applied. State reflects any bot
// moves that were played after it.
type MoveResult struct {
	State     *conquest.GameState  `json:"state"`
	Deltas    []conquest.CellDelta `json:"deltas"`
	AutoMoves int                  `json:"auto_moves"`
}

// MoveService applies moves to running games.
type MoveService struct {
	games       *GameService
	moveRepo    repository.MoveRepository
	broadcaster Broadcaster
	strategyFor func(difficulty string) bot.Strategy
}

// NewMoveService creates a MoveService sharing locks and storage with games.
func NewMoveService(games *GameService, moveRepo repository.MoveRepository, broadcaster Broadcaster) *MoveService {
	if broadcaster == nil {
		broadcaster = NoopBroadcaster{}
	}
	return &MoveService{
		games:       games,
		moveRepo:    moveRepo,
		broadcaster: broadcaster,
		strategyFor: bot.StrategyForDifficulty,
	}
}

// SubmitMove validates and applies a move for seat, then plays any AI seats
// (and passes for eliminated players) until a human is to move.
func (s *MoveService) SubmitMove(ctx context.Context, gameID string, seat int, in conquest.WireMove) (*MoveResult, error) {
	m, err := in.Decode()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidMove, err)
	}

	mu := s.games.locks.lock(gameID)
	mu.Lock()
	defer mu.Unlock()

	gs, err := s.games.store.load(ctx, gameID)
	if err != nil {
		return nil, err
	}
	if gs.Status != conquest.StatusActive {
		return nil, fmt.Errorf("%w: %w", ErrGameNotActive, conquest.ErrGameNotActive)
	}
	if gs.Player(seat) == nil {
		return nil, ErrNotInGame
	}

	next, deltas, err := s.apply(ctx, gameID, gs, seat, m, false)
	if err != nil {
		return nil, err
	}
	final, n := s.playAutomatic(ctx, gameID, next)
	return &MoveResult{State: final, Deltas: deltas, AutoMoves: n}, nil
}

// apply runs one move through the engine and persists the result. Callers
// hold the game lock.
func (s *MoveService) apply(ctx context.Context, gameID string, gs *conquest.GameState, seat int, m conquest.Move, auto bool) (*conquest.GameState, []conquest.CellDelta, error) {
	l := logger.ForGame(ctx, gameID, seat)

	next, deltas, err := conquest.Apply(gs, seat, m)
	if err != nil {
		l.Debug().Err(err).Msg("Move rejected")
		return nil, nil, fmt.Errorf("%w: %w", ErrInvalidMove, err)
	}

	deadline := turnDeadline(s.games.opts.TurnTimeout, next)
	if err := s.games.store.commit(ctx, gameID, gs, next, deadline); err != nil {
		if isVersionConflict(err) {
			l.Warn().Err(err).Uint64("version", gs.Version).Msg("Lost state race")
		}
		return nil, nil, err
	}

	rec := bot.MoveRecord(gameID, next.Version, seat, m, len(deltas))
	rec.Auto = auto
	if err := s.moveRepo.Append(ctx, rec); err != nil {
		l.Error().Err(err).Uint64("version", next.Version).Msg("Failed to append move history")
	}

	s.resetTimer(ctx, gameID, deadline)

	l.Info().Str("move", m.Describe()).Bool("auto", auto).Int("claimed", len(deltas)).
		Uint64("version", next.Version).Msg("Move applied")
	s.broadcaster.BroadcastGameEvent(gameID, EventMoveApplied, map[string]any{
		"seat":    seat,
		"move":    conquest.EncodeMove(m),
		"deltas":  deltas,
		"auto":    auto,
		"version": next.Version,
		"status":  conquest.CurrentStatus(next),
	})

	if next.Phase != gs.Phase {
		l.Info().Str("phase", string(next.Phase)).Msg("Phase changed")
		s.broadcaster.BroadcastGameEvent(gameID, EventPhaseChanged, map[string]any{
			"phase":   next.Phase,
			"version": next.Version,
			"status":  conquest.CurrentStatus(next),
		})
	}
	if next.Status == conquest.StatusFinished {
		if err := s.games.finish(ctx, gameID, next); err != nil {
			l.Error().Err(err).Msg("Failed to record finished game")
		}
	}
	return next, deltas, nil
}

func (s *MoveService) resetTimer(ctx context.Context, gameID string, deadline *time.Time) {
	cache := s.games.cache
	var err error
	if deadline == nil {
		err = cache.ClearTimer(ctx, gameID)
	} else {
		err = cache.SetTimer(ctx, gameID, *deadline)
	}
	if err != nil {
		log.Warn().Err(err).Str("gameId", gameID).Msg("Failed to reset turn timer")
	}
}

// autoMove returns the move the server plays on a seat's behalf, if any:
// the bot's choice for AI seats, a pass for eliminated humans.
func (s *MoveService) autoMove(gs *conquest.GameState, seats []model.Seat) (conquest.Move, bool) {
	seat := gs.CurrentPlayer
	p := gs.Player(seat)
	if p == nil {
		return nil, false
	}
	if p.IsAI {
		difficulty := s.games.opts.BotDifficulty
		if seat < len(seats) && seats[seat].BotDifficulty != "" {
			difficulty = seats[seat].BotDifficulty
		}
		return s.strategyFor(difficulty).ChooseMove(gs, seat)
	}
	if gs.Phase == conquest.PhaseArmy && p.Territories == 0 {
		return conquest.PassMove{}, true
	}
	return nil, false
}

// playAutomatic keeps applying server-side moves until a human must act or
// the game ends. Callers hold the game lock.
func (s *MoveService) playAutomatic(ctx context.Context, gameID string, gs *conquest.GameState) (*conquest.GameState, int) {
	var seats []model.Seat
	n, passes := 0, 0
	for gs.Status == conquest.StatusActive && n < maxAutoMoves {
		if ctx.Err() != nil {
			break
		}
		if seats == nil && gs.Players[gs.CurrentPlayer].IsAI {
			g, err := s.games.GetGame(ctx, gameID)
			if err != nil {
				log.Error().Err(err).Str("gameId", gameID).Msg("Failed to load seats for bot move")
				break
			}
			seats = g.Seats
		}
		m, ok := s.autoMove(gs, seats)
		if !ok {
			break
		}
		next, _, err := s.apply(ctx, gameID, gs, gs.CurrentPlayer, m, true)
		if err != nil {
			log.Error().Err(err).Str("gameId", gameID).Int("seat", gs.CurrentPlayer).Msg("Automatic move failed")
			break
		}
		gs = next
		n++

		if _, isPass := m.(conquest.PassMove); !isPass || gs.Phase != conquest.PhaseArmy {
			passes = 0
			continue
		}
		// A full cycle of server-side passes leaves no seat able to act.
		passes++
		if passes >= len(gs.Players) {
			if concluded, ok := s.conclude(ctx, gameID, gs); ok {
				gs = concluded
			}
			break
		}
	}
	if n == maxAutoMoves {
		log.Warn().Str("gameId", gameID).Msg("Automatic move limit reached")
	}
	return gs, n
}

// conclude ends a stalled army phase, deciding the result on territories.
// Callers hold the game lock.
func (s *MoveService) conclude(ctx context.Context, gameID string, gs *conquest.GameState) (*conquest.GameState, bool) {
	next, err := conquest.Conclude(gs)
	if err != nil {
		return gs, false
	}
	if err := s.games.store.commit(ctx, gameID, gs, next, nil); err != nil {
		log.Error().Err(err).Str("gameId", gameID).Msg("Failed to save concluded game")
		return gs, false
	}
	s.resetTimer(ctx, gameID, nil)
	log.Info().Str("gameId", gameID).Int("armyRound", gs.ArmyRound).Msg("No seat can act, concluding game")
	if err := s.games.finish(ctx, gameID, next); err != nil {
		log.Error().Err(err).Str("gameId", gameID).Msg("Failed to record finished game")
	}
	return next, true
}

// LegalMoves lists what seat may play right now.
func (s *MoveService) LegalMoves(ctx context.Context, gameID string, seat int) ([]conquest.WireMove, error) {
	gs, err := s.games.store.load(ctx, gameID)
	if err != nil {
		return nil, err
	}
	if gs.Player(seat) == nil {
		return nil, ErrNotInGame
	}
	moves := conquest.LegalMoves(gs, seat)
	out := make([]conquest.WireMove, 0, len(moves))
	for _, m := range moves {
		out = append(out, conquest.EncodeMove(m))
	}
	return out, nil
}

// History returns every applied move of a game in order.
func (s *MoveService) History(ctx context.Context, gameID string) ([]model.MoveRecord, error) {
	if _, err := s.games.GetGame(ctx, gameID); err != nil {
		return nil, err
	}
	return s.moveRepo.ListByGame(ctx, gameID)
}

// PlayTimedOutTurn plays the current seat's turn with the default bot once
// its deadline has passed. Early or duplicate triggers are ignored.
func (s *MoveService) PlayTimedOutTurn(ctx context.Context, gameID string) error {
	mu := s.games.locks.lock(gameID)
	mu.Lock()
	defer mu.Unlock()

	g, err := s.games.GetGame(ctx, gameID)
	if err != nil {
		return err
	}
	if g.Status != string(conquest.StatusActive) {
		return nil
	}
	if g.TurnDeadline != nil && time.Now().Before(*g.TurnDeadline) {
		log.Debug().Str("gameId", gameID).Time("deadline", *g.TurnDeadline).Msg("Turn not yet expired")
		return nil
	}

	gs, err := s.games.store.load(ctx, gameID)
	if err != nil {
		return err
	}
	seat := gs.CurrentPlayer
	m, ok := s.strategyFor(s.games.opts.BotDifficulty).ChooseMove(gs, seat)
	if !ok {
		return nil
	}
	log.Info().Str("gameId", gameID).Int("seat", seat).Msg("Turn timed out, playing for seat")
	next, _, err := s.apply(ctx, gameID, gs, seat, m, true)
	if err != nil {
		return fmt.Errorf("timed out move: %w", err)
	}
	s.playAutomatic(ctx, gameID, next)
	return nil
}

// RecoverActiveGames rehydrates Redis from Postgres after a restart,
// restores turn timers and resumes games stuck on a bot's turn.
func (s *MoveService) RecoverActiveGames(ctx context.Context) error {
	games, err := s.games.gameRepo.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("list active games: %w", err)
	}
	log.Info().Int("count", len(games)).Msg("Recovering active games")

	for _, g := range games {
		data, version, err := s.games.gameRepo.LoadState(ctx, g.ID)
		if err != nil || data == nil {
			log.Error().Err(err).Str("gameId", g.ID).Msg("No state to recover")
			continue
		}
		if err := s.games.cache.SetGameState(ctx, g.ID, data, version); err != nil {
			log.Error().Err(err).Str("gameId", g.ID).Msg("Failed to restore game state")
			continue
		}
		if g.TurnDeadline != nil {
			if err := s.games.cache.SetTimer(ctx, g.ID, *g.TurnDeadline); err != nil {
				log.Error().Err(err).Str("gameId", g.ID).Msg("Failed to restore timer")
			}
		}

		mu := s.games.locks.lock(g.ID)
		mu.Lock()
		gs, err := s.games.store.load(ctx, g.ID)
		if err == nil {
			s.playAutomatic(ctx, g.ID, gs)
		} else {
			log.Error().Err(err).Str("gameId", g.ID).Msg("Failed to load recovered state")
		}
		mu.Unlock()
	}
	return nil
}
