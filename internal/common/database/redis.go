package database

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"interview-sync/internal/common/config"
)

// RedisClient backs the orchestrator status cache. Losing it degrades
// status refreshes to direct remote calls, nothing more.
type RedisClient struct {
	Client *redis.Client
	addr   string
}

func NewRedis(cfg config.RedisConfig) *RedisClient {
	opts := &redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
	}
	return &RedisClient{Client: redis.NewClient(opts), addr: cfg.Address}
}

func (c *RedisClient) Ping(ctx context.Context) error {
	if err := c.Client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis %s: %w", c.addr, err)
	}
	return nil
}

func (c *RedisClient) Close() error {
	if c.Client == nil {
		return nil
	}
	return c.Client.Close()
}
