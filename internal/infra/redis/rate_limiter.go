package redis

import (
	"context"
	"fmt"
	"time"
)

// RateLimiter is a fixed-window counter shared across processes. It budgets
// outbound Telegram calls so parallel workers cannot pile onto the platform
// limits and trade one flood wait for another.
type RateLimiter struct {
	client *Client
}

func NewRateLimiter(client *Client) *RateLimiter {
	return &RateLimiter{client: client}
}

func (r *RateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	count, err := r.client.Incr(ctx, key)
	if err != nil {
		return false, err
	}

	if count == 1 {
		err = r.client.Expire(ctx, key, window)
		if err != nil {
			return false, err
		}
	}

	if count > int64(limit) {
		return false, nil
	}

	return true, nil
}

// ChannelCallKey buckets mutating API calls per target chat.
func ChannelCallKey(channelID int64) string {
	return fmt.Sprintf("rate_limit:telegram:%d", channelID)
}

// GlobalCallKey buckets all mutating API calls together.
func GlobalCallKey() string {
	return "rate_limit:telegram:global"
}
