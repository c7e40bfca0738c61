package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/freeeve/elemental-conquest/api/internal/repository"
)

// Key patterns for Redis game state.
func stateKey(gameID string) string { return "game:" + gameID + ":state" }
func timerKey(gameID string) string { return "game:" + gameID + ":timer" }

const (
	fieldData    = "data"
	fieldVersion = "version"
)

// SetGameState stores the live game state unconditionally.
func (c *Client) SetGameState(ctx context.Context, gameID string, state json.RawMessage, version uint64) error {
	return c.rdb.HSet(ctx, stateKey(gameID), fieldData, []byte(state), fieldVersion, version).Err()
}

// GetGameState retrieves the live game state and its version. A missing key
// yields a nil state.
func (c *Client) GetGameState(ctx context.Context, gameID string) (json.RawMessage, uint64, error) {
	vals, err := c.rdb.HMGet(ctx, stateKey(gameID), fieldData, fieldVersion).Result()
	if err != nil {
		return nil, 0, fmt.Errorf("get game state: %w", err)
	}
	return decodeState(vals)
}

func decodeState(vals []any) (json.RawMessage, uint64, error) {
	if len(vals) != 2 || vals[0] == nil {
		return nil, 0, nil
	}
	data, _ := vals[0].(string)
	raw, _ := vals[1].(string)
	version, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return nil, 0, fmt.Errorf("parse state version %q: %w", raw, err)
	}
	return json.RawMessage(data), version, nil
}

// CompareAndSwapState writes state only if the stored version equals expected.
// A missing key counts as version 0 so the first write after activation can
// go through the same path.
func (c *Client) CompareAndSwapState(ctx context.Context, gameID string, expected uint64, state json.RawMessage, version uint64) error {
	key := stateKey(gameID)
	err := c.rdb.Watch(ctx, func(tx *redis.Tx) error {
		raw, err := tx.HGet(ctx, key, fieldVersion).Result()
		var current uint64
		switch {
		case err == redis.Nil:
		case err != nil:
			return err
		default:
			if current, err = strconv.ParseUint(raw, 10, 64); err != nil {
				return fmt.Errorf("parse state version %q: %w", raw, err)
			}
		}
		if current != expected {
			return fmt.Errorf("game %s at version %d, expected %d: %w", gameID, current, expected, repository.ErrVersionConflict)
		}
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.HSet(ctx, key, fieldData, []byte(state), fieldVersion, version)
			return nil
		})
		return err
	}, key)
	if errors.Is(err, redis.TxFailedErr) {
		return fmt.Errorf("game %s changed during write: %w", gameID, repository.ErrVersionConflict)
	}
	return err
}

// turnGracePeriod is the extra time after the displayed deadline before the
// timeout fires, giving players a few seconds of leeway.
const turnGracePeriod = 5 * time.Second

// SetTimer creates a timer key with a TTL. When the key expires, Redis
// keyspace notifications trigger the timed-out turn.
func (c *Client) SetTimer(ctx context.Context, gameID string, deadline time.Time) error {
	ttl := time.Until(deadline) + turnGracePeriod
	if ttl <= 0 {
		ttl = time.Second
	}
	return c.rdb.Set(ctx, timerKey(gameID), deadline.Unix(), ttl).Err()
}

// ClearTimer removes the timer for a game.
func (c *Client) ClearTimer(ctx context.Context, gameID string) error {
	return c.rdb.Del(ctx, timerKey(gameID)).Err()
}

// DeleteGameData removes all Redis data for a game (on game end).
func (c *Client) DeleteGameData(ctx context.Context, gameID string) error {
	return c.rdb.Del(ctx, stateKey(gameID), timerKey(gameID)).Err()
}

// GameIDFromTimerKey extracts the game id from an expired timer key.
func GameIDFromTimerKey(key string) (string, bool) {
	const prefix, suffix = "game:", ":timer"
	if len(key) <= len(prefix)+len(suffix) || key[:len(prefix)] != prefix || key[len(key)-len(suffix):] != suffix {
		return "", false
	}
	return key[len(prefix) : len(key)-len(suffix)], true
}
