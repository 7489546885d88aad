package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"telegram-channel-booster/internal/infra/metrics"
)

// ProgressCache keeps a volatile copy of each channel's high-water-mark so
// the update poller can drop already-settled items without a database read.
// The persisted source row stays the only truth: a miss or a stale value is
// harmless, the caller just falls through to the slow path.
type ProgressCache struct {
	client *Client
	ttl    time.Duration
}

func NewProgressCache(client *Client, ttl time.Duration) *ProgressCache {
	return &ProgressCache{
		client: client,
		ttl:    ttl,
	}
}

func progressKey(channelID int64) string {
	return fmt.Sprintf("progress:%d", channelID)
}

func (c *ProgressCache) Get(ctx context.Context, channelID int64) (int64, bool) {
	data, err := c.client.Get(ctx, progressKey(channelID))
	if err != nil {
		metrics.IncCacheRequest("progress", "miss")
		return 0, false
	}
	itemID, err := strconv.ParseInt(data, 10, 64)
	if err != nil {
		metrics.IncCacheRequest("progress", "miss")
		return 0, false
	}
	metrics.IncCacheRequest("progress", "hit")
	return itemID, true
}

// Set is best effort: a failed write only costs a later cache miss.
func (c *ProgressCache) Set(ctx context.Context, channelID int64, itemID int64) {
	_ = c.client.Set(ctx, progressKey(channelID), itemID, c.ttl)
}
