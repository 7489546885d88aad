package redis

import (
	"context"
	"time"

	"telegram-channel-booster/internal/domain"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// RedisCycleGuard serializes monitoring cycles per source across processes.
// A held guard means another cycle is running somewhere; the caller skips the
// source instead of waiting. The TTL caps how long a crashed holder can block
// its source.
type RedisCycleGuard struct {
	cli *redis.Client
}

func NewCycleGuard(c *Client) *RedisCycleGuard {
	return &RedisCycleGuard{cli: c.cli}
}

func guardKey(sourceID string) string {
	return "cycle_guard:" + sourceID
}

func (g *RedisCycleGuard) Acquire(ctx context.Context, sourceID string, ttl time.Duration) (string, error) {
	token := uuid.NewString()
	ok, err := g.cli.SetNX(ctx, guardKey(sourceID), token, ttl).Result()
	if err != nil {
		return "", err
	}
	if !ok {
		return "", domain.ErrCycleInFlight
	}
	return token, nil
}

var luaRelease = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
else
	return 0
end`)

// Release drops the guard only while we still hold it; a guard that expired
// and was re-acquired elsewhere is left alone.
func (g *RedisCycleGuard) Release(ctx context.Context, sourceID, token string) error {
	_, err := luaRelease.Run(ctx, g.cli, []string{guardKey(sourceID)}, token).Result()
	return err
}
