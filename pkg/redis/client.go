// Package redis holds the optional Redis layer: a read-through cache for
// fact tables and run reports, and the shared AlphaVantage request budget.
// Every type degrades to a pass-through when Redis is disabled.
package redis

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/wonny/strawberry/pkg/config"
)

const dialTimeout = 3 * time.Second

// Client owns the connection to Redis, or nothing when disabled
// ⭐ SSOT: Redis connections are only managed here
type Client struct {
	rdb *redis.Client
}

// New connects and pings Redis. A disabled config yields a client whose
// Enabled reports false.
func New(ctx context.Context, cfg *config.Config) (*Client, error) {
	if !cfg.Redis.Enabled {
		return &Client{}, nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:        net.JoinHostPort(cfg.Redis.Host, cfg.Redis.Port),
		Password:    cfg.Redis.Password,
		DB:          cfg.Redis.DB,
		DialTimeout: dialTimeout,
	})

	c := &Client{rdb: rdb}
	if err := c.Ping(ctx); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis %s: %w", rdb.Options().Addr, err)
	}
	return c, nil
}

// Ping checks the connection. It is a no-op when disabled.
func (c *Client) Ping(ctx context.Context) error {
	if c.rdb == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()
	return c.rdb.Ping(ctx).Err()
}

func (c *Client) Close() error {
	if c.rdb == nil {
		return nil
	}
	return c.rdb.Close()
}

// Enabled reports whether a connection is held
func (c *Client) Enabled() bool {
	return c.rdb != nil
}

// Redis returns the go-redis client, nil when disabled
func (c *Client) Redis() *redis.Client {
	return c.rdb
}
