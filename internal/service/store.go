package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/freeeve/elemental-conquest/api/internal/repository"
	"github.com/freeeve/elemental-conquest/api/pkg/conquest"
)

// gameLocks serializes move application per game. The engine requires at
// most one writer per game; the version checks in stateStore catch writers
// in other processes.
type gameLocks struct {
	m sync.Map
}

func (l *gameLocks) lock(gameID string) *sync.Mutex {
	v, _ := l.m.LoadOrStore(gameID, &sync.Mutex{})
	return v.(*sync.Mutex)
}

// stateStore reads engine snapshots from Redis, falling back to the
// Postgres copy, and writes them to both with a version check.
type stateStore struct {
	gameRepo repository.GameRepository
	cache    repository.GameCache
}

func (s *stateStore) load(ctx context.Context, gameID string) (*conquest.GameState, error) {
	data, _, err := s.cache.GetGameState(ctx, gameID)
	if err != nil {
		log.Warn().Err(err).Str("gameId", gameID).Msg("Cache read failed, loading state from Postgres")
		data = nil
	}
	if data == nil {
		var version uint64
		data, version, err = s.gameRepo.LoadState(ctx, gameID)
		if err != nil {
			return nil, err
		}
		if data == nil {
			return nil, s.missingState(ctx, gameID)
		}
		if err := s.cache.SetGameState(ctx, gameID, data, version); err != nil {
			log.Warn().Err(err).Str("gameId", gameID).Msg("Failed to warm state cache")
		}
	}

	var gs conquest.GameState
	if err := json.Unmarshal(data, &gs); err != nil {
		return nil, fmt.Errorf("unmarshal state for %s: %w", gameID, err)
	}
	return &gs, nil
}

func (s *stateStore) missingState(ctx context.Context, gameID string) error {
	g, err := s.gameRepo.FindByID(ctx, gameID)
	if err != nil {
		return err
	}
	if g == nil {
		return ErrGameNotFound
	}
	return fmt.Errorf("%w: game %s has not started", ErrGameNotActive, gameID)
}

// commit writes next if the stored snapshot is still prev. Redis is swapped
// first; if Postgres then refuses the write the cached copy is rolled back.
func (s *stateStore) commit(ctx context.Context, gameID string, prev, next *conquest.GameState, deadline *time.Time) error {
	data, err := json.Marshal(next)
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}
	if err := s.cache.CompareAndSwapState(ctx, gameID, prev.Version, data, next.Version); err != nil {
		return fmt.Errorf("cache state: %w", err)
	}
	if err := s.gameRepo.SaveState(ctx, gameID, data, prev.Version, next.Version, deadline); err != nil {
		if old, merr := json.Marshal(prev); merr == nil {
			if rerr := s.cache.SetGameState(ctx, gameID, old, prev.Version); rerr != nil {
				log.Error().Err(rerr).Str("gameId", gameID).Msg("Failed to roll back cached state")
			}
		}
		return err
	}
	return nil
}

// turnDeadline returns when the current turn times out, or nil when turns
// are untimed or the game is over.
func turnDeadline(timeout time.Duration, gs *conquest.GameState) *time.Time {
	if timeout <= 0 || gs.Status != conquest.StatusActive {
		return nil
	}
	d := time.Now().Add(timeout)
	return &d
}

// isVersionConflict reports a lost optimistic write.
func isVersionConflict(err error) bool {
	return errors.Is(err, repository.ErrVersionConflict)
}
