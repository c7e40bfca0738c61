package service

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/freeeve/elemental-conquest/api/internal/repository"
	redisrepo "github.com/freeeve/elemental-conquest/api/internal/repository/redis"
)

// TurnPlayer plays the turn of a game whose timer has run out.
type TurnPlayer interface {
	PlayTimedOutTurn(ctx context.Context, gameID string) error
}

// TimerListener listens for Redis keyspace notifications on expired timer keys
// and plays the timed-out turn. Also runs a polling fallback to catch
// expirations if keyspace notifications are unavailable.
type TimerListener struct {
	rdb          *redis.Client
	turns        TurnPlayer
	gameRepo     repository.GameRepository
	pollInterval time.Duration
}

// NewTimerListener creates a TimerListener.
func NewTimerListener(rdb *redis.Client, turns TurnPlayer, gameRepo repository.GameRepository) *TimerListener {
	return &TimerListener{rdb: rdb, turns: turns, gameRepo: gameRepo, pollInterval: 10 * time.Second}
}

// Start begins listening for expired key events and runs a polling fallback.
// It blocks until ctx is cancelled.
func (t *TimerListener) Start(ctx context.Context) {
	if t.rdb != nil {
		go t.listenKeyspace(ctx)
	}
	t.pollExpiredTurns(ctx)
}

// listenKeyspace subscribes to Redis keyspace notifications for expired keys.
func (t *TimerListener) listenKeyspace(ctx context.Context) {
	pubsub := t.rdb.PSubscribe(ctx, "__keyevent@0__:expired")
	defer pubsub.Close()

	log.Info().Msg("Timer listener started, listening for expired keys")
	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			t.handleExpiry(ctx, msg.Payload)
		}
	}
}

// pollExpiredTurns periodically checks for turns past their deadline.
func (t *TimerListener) pollExpiredTurns(ctx context.Context) {
	ticker := time.NewTicker(t.pollInterval)
	defer ticker.Stop()

	log.Info().Dur("interval", t.pollInterval).Msg("Turn deadline poller started")
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Turn deadline poller stopped")
			return
		case <-ticker.C:
			t.checkExpiredTurns(ctx)
		}
	}
}

// checkExpiredTurns finds active games past their turn deadline and plays them.
func (t *TimerListener) checkExpiredTurns(ctx context.Context) {
	games, err := t.gameRepo.ListExpired(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list expired turns")
		return
	}
	if len(games) > 0 {
		log.Info().Int("count", len(games)).Msg("Poller found expired turns")
	}
	for _, g := range games {
		if err := t.turns.PlayTimedOutTurn(ctx, g.ID); err != nil {
			log.Error().Err(err).Str("gameId", g.ID).Msg("Timed out turn failed from poller")
		}
	}
}

// handleExpiry processes an expired key. Only acts on game timer keys.
func (t *TimerListener) handleExpiry(ctx context.Context, key string) {
	gameID, ok := redisrepo.GameIDFromTimerKey(key)
	if !ok {
		return
	}

	log.Info().Str("gameId", gameID).Msg("Timer expired, playing timed out turn")
	if err := t.turns.PlayTimedOutTurn(ctx, gameID); err != nil {
		log.Error().Err(err).Str("gameId", gameID).Msg("Timed out turn failed after timer expiry")
	}
}
