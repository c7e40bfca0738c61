package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Client holds live game state, CAS versions and turn timers.
type Client struct {
	rdb *redis.Client
}

// NewClient parses redisURL and checks the server is reachable.
func NewClient(redisURL string) (*Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	c := &Client{rdb: redis.NewClient(opts)}
	if err := c.Ping(context.Background()); err != nil {
		c.rdb.Close()
		return nil, err
	}
	return c, nil
}

// NewClientFromPool wraps an existing redis.Client (tests, shared pools).
func NewClientFromPool(rdb *redis.Client) *Client {
	return &Client{rdb: rdb}
}

// Ping reports whether Redis answers.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

// EnableExpiryEvents turns on keyspace notifications for expired keys so
// turn timers fire without polling. Managed Redis often forbids CONFIG SET.
func (c *Client) EnableExpiryEvents(ctx context.Context) error {
	if err := c.rdb.ConfigSet(ctx, "notify-keyspace-events", "Ex").Err(); err != nil {
		return fmt.Errorf("enable expiry events: %w", err)
	}
	return nil
}

func (c *Client) Close() error {
	return c.rdb.Close()
}

// Underlying returns the raw client for the timer listener's subscription.
func (c *Client) Underlying() *redis.Client {
	return c.rdb
}
