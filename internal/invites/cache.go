package invites

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"interview-sync/internal/orchestrator"
)

const statusKeyPrefix = "interview-status:"

// StatusCache holds recent remote status payloads so repeated polls of the
// same interview do not each hit the orchestrator.
type StatusCache struct {
	redis *redis.Client
	ttl   time.Duration
}

// NewStatusCache returns nil when client is nil or ttl is not positive; a nil
// cache is valid and never hits.
func NewStatusCache(client *redis.Client, ttl time.Duration) *StatusCache {
	if client == nil || ttl <= 0 {
		return nil
	}
	return &StatusCache{redis: client, ttl: ttl}
}

func statusKey(orchestratorID string) string {
	return statusKeyPrefix + orchestratorID
}

func (c *StatusCache) Get(ctx context.Context, orchestratorID string) (*orchestrator.InterviewStatusResponse, bool, error) {
	if c == nil {
		return nil, false, nil
	}
	val, err := c.redis.Get(ctx, statusKey(orchestratorID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var resp orchestrator.InterviewStatusResponse
	if err := json.Unmarshal([]byte(val), &resp); err != nil {
		return nil, false, err
	}
	return &resp, true, nil
}

func (c *StatusCache) Set(ctx context.Context, orchestratorID string, resp *orchestrator.InterviewStatusResponse) error {
	if c == nil || resp == nil {
		return nil
	}
	data, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	return c.redis.Set(ctx, statusKey(orchestratorID), data, c.ttl).Err()
}

func (c *StatusCache) Invalidate(ctx context.Context, orchestratorID string) error {
	if c == nil {
		return nil
	}
	return c.redis.Del(ctx, statusKey(orchestratorID)).Err()
}
