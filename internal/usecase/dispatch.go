// File: internal/usecase/dispatch.go
package usecase

import (
	"context"
	"math/rand"
	"time"

	"github.com/oklog/ulid/v2"

	"telegram-channel-booster/internal/domain"
	"telegram-channel-booster/internal/domain/model"
)

// maxActionAttempts bounds retries for one outbound action, the first try
// included.
const maxActionAttempts = 3

// itemProcessor handles one fetched item end to end: filter, act, record the
// outcome and advance the source's high-water-mark. A nil return means the
// item is settled (even when the action itself failed); a non-nil return
// aborts the source's cycle with the mark untouched.
type itemProcessor interface {
	ProcessItem(ctx context.Context, src *model.SourceConfig, item model.Item) error
}

// CycleGuard serializes monitoring cycles per source across processes.
// Acquire returns domain.ErrCycleInFlight when the source is already held.
type CycleGuard interface {
	Acquire(ctx context.Context, sourceID string, ttl time.Duration) (token string, err error)
	Release(ctx context.Context, sourceID, token string) error
}

// ProgressCache is a volatile fast path over the persisted high-water-mark,
// keyed by channel id. It may lag or be empty; the database row is the truth.
type ProgressCache interface {
	Get(ctx context.Context, channelID int64) (int64, bool)
	Set(ctx context.Context, channelID int64, itemID int64)
}

// sleepFunc suspends for d or until ctx is done.
type sleepFunc func(ctx context.Context, d time.Duration) error

func ctxSleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// jitterBetween draws a uniform duration in [min, max].
func jitterBetween(min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	return min + time.Duration(rand.Int63n(int64(max-min)+1))
}

// selectEmojis picks n distinct emojis from set in random order.
func selectEmojis(set []string, n int) []string {
	picked := make([]string, len(set))
	copy(picked, set)
	rand.Shuffle(len(picked), func(i, j int) { picked[i], picked[j] = picked[j], picked[i] })
	if n > len(picked) {
		n = len(picked)
	}
	return picked[:n]
}

// newLogEntry builds an audit entry for src; itemID is zero for source-level
// entries.
func newLogEntry(src *model.SourceConfig, itemID int64, outcome model.Outcome, detail map[string]any) *model.OperationLog {
	return &model.OperationLog{
		ID:        ulid.Make().String(),
		SourceID:  src.ID,
		ChannelID: src.ChannelID,
		ItemID:    itemID,
		Action:    src.Action,
		Outcome:   outcome,
		Detail:    detail,
		CreatedAt: time.Now().UTC(),
	}
}

// runWithRetry runs call under the shared retry policy: up to
// maxActionAttempts attempts; rate limits wait out the platform-provided
// delay, transient failures back off 1s then 2s; permission and content
// failures return at once. The attempt count of the final try is returned.
func runWithRetry(ctx context.Context, sleep sleepFunc, call func(context.Context) error) (int, error) {
	var lastErr error
	for attempt := 1; attempt <= maxActionAttempts; attempt++ {
		err := call(ctx)
		if err == nil {
			return attempt, nil
		}
		lastErr = err

		te, ok := domain.AsTelegramError(err)
		if !ok {
			return attempt, err
		}
		switch te.Kind {
		case domain.TelegramPermissionDenied, domain.TelegramContentError:
			return attempt, err
		case domain.TelegramRateLimited:
			if attempt == maxActionAttempts {
				return attempt, err
			}
			if serr := sleep(ctx, te.RetryAfter); serr != nil {
				return attempt, serr
			}
		default: // transient
			if attempt == maxActionAttempts {
				return attempt, err
			}
			backoff := time.Duration(1<<(attempt-1)) * time.Second
			if serr := sleep(ctx, backoff); serr != nil {
				return attempt, serr
			}
		}
	}
	return maxActionAttempts, lastErr
}

// errorDetail renders err for an audit entry's detail map.
func errorDetail(err error) map[string]any {
	d := map[string]any{"error": err.Error()}
	if te, ok := domain.AsTelegramError(err); ok {
		d["error_kind"] = te.Kind.String()
	}
	return d
}
