//go:build !integration

// File: internal/usecase/repost_uc_test.go
package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"telegram-channel-booster/internal/domain"
	"telegram-channel-booster/internal/domain/model"
	"telegram-channel-booster/internal/domain/ports/adapter"
)

func testRepostSource(t *testing.T, channelID, targetID int64) *model.SourceConfig {
	t.Helper()
	src, err := model.NewRepostSource("", channelID, "Test Channel", "testchan", model.RepostSettings{
		TargetChannelID:    targetID,
		TargetChannelTitle: "Target",
		Watermark:          "via @target",
		DropAuthor:         true,
		RepostDelaySec:     0,
	})
	if err != nil {
		t.Fatalf("failed to build repost source: %v", err)
	}
	return src
}

type repostFixture struct {
	uc      *RepostUseCase
	sources *memSourceRepo
	logs    *memLogRepo
	stats   *memStatsRepo
	actions *mockActionClient
	sleeps  *sleepRecorder
}

func newRepostFixture(t *testing.T, src *model.SourceConfig) *repostFixture {
	t.Helper()
	f := &repostFixture{
		sources: newMemSourceRepo(),
		logs:    newMemLogRepo(),
		stats:   newMemStatsRepo(),
		actions: &mockActionClient{},
		sleeps:  &sleepRecorder{},
	}
	if err := f.sources.Save(context.Background(), nil, src); err != nil {
		t.Fatalf("failed to seed source: %v", err)
	}
	f.uc = NewRepostUseCase(f.sources, f.logs, f.stats, &mockTxManager{}, f.actions, newTestLogger())
	f.uc.sleep = f.sleeps.sleep
	return f
}

func TestRepostProcessItem(t *testing.T) {
	ctx := context.Background()

	t.Run("should relay the item with the configured options and settle it", func(t *testing.T) {
		src := testRepostSource(t, -1001, -2002)
		f := newRepostFixture(t, src)
		item := model.Item{ChannelID: -1001, ID: 11, Kind: model.KindPhoto, Text: "caption", FileID: "f1"}

		if err := f.uc.ProcessItem(ctx, src, item); err != nil {
			t.Fatalf("expected no error, but got: %v", err)
		}

		if len(f.actions.relays) != 1 {
			t.Fatalf("expected 1 relay, but got %d", len(f.actions.relays))
		}
		call := f.actions.relays[0]
		if call.targetID != -2002 {
			t.Errorf("expected relay to target -2002, but got %d", call.targetID)
		}
		if call.opts.Watermark != "via @target" || !call.opts.DropAuthor {
			t.Errorf("expected relay options passed through, but got %+v", call.opts)
		}
		if got := f.sources.get(src.ID).LastProcessedID; got != 11 {
			t.Errorf("expected mark at 11, but got %d", got)
		}
		stats, _ := f.stats.Get(ctx, nil, src.ID)
		if stats == nil || stats.Successful != 1 {
			t.Errorf("expected 1 successful relay in stats, but got %+v", stats)
		}
		success := f.logs.byOutcome(model.OutcomeSuccess)
		if len(success) != 1 {
			t.Fatalf("expected 1 success entry, but got %d", len(success))
		}
		if mid, ok := success[0].Detail["relayed_message_id"].(int64); !ok || mid == 0 {
			t.Errorf("expected relayed message id in the entry detail, but got %v", success[0].Detail["relayed_message_id"])
		}
	})

	t.Run("should wait the configured delay before relaying", func(t *testing.T) {
		src := testRepostSource(t, -1001, -2002)
		src.Repost.RepostDelaySec = 3
		f := newRepostFixture(t, src)

		if err := f.uc.ProcessItem(ctx, src, model.Item{ChannelID: -1001, ID: 1, Kind: model.KindText, Text: "x"}); err != nil {
			t.Fatalf("expected no error, but got: %v", err)
		}

		slept := f.sleeps.durations()
		if len(slept) == 0 || slept[0] != 3*time.Second {
			t.Errorf("expected the first pause to be the 3s repost delay, but got %v", slept)
		}
	})

	t.Run("should back off with increasing waits between transient retries", func(t *testing.T) {
		src := testRepostSource(t, -1001, -2002)
		f := newRepostFixture(t, src)

		calls := 0
		f.actions.RelayFunc = func(ctx context.Context, item model.Item, targetID int64, opts adapter.RelayOptions) (int64, error) {
			calls++
			if calls < 3 {
				return 0, domain.Transient(errors.New("gateway timeout"))
			}
			return 555, nil
		}

		if err := f.uc.ProcessItem(ctx, src, model.Item{ChannelID: -1001, ID: 2, Kind: model.KindText, Text: "x"}); err != nil {
			t.Fatalf("expected no error, but got: %v", err)
		}

		slept := f.sleeps.durations()
		if len(slept) != 2 || slept[0] != time.Second || slept[1] != 2*time.Second {
			t.Fatalf("expected backoff [1s 2s], but got %v", slept)
		}
		if calls != 3 {
			t.Errorf("expected 3 attempts, but got %d", calls)
		}
	})

	t.Run("should settle as failed and advance once retries exhaust", func(t *testing.T) {
		src := testRepostSource(t, -1001, -2002)
		f := newRepostFixture(t, src)
		f.actions.RelayFunc = func(ctx context.Context, item model.Item, targetID int64, opts adapter.RelayOptions) (int64, error) {
			return 0, domain.Transient(errors.New("gateway timeout"))
		}

		if err := f.uc.ProcessItem(ctx, src, model.Item{ChannelID: -1001, ID: 4, Kind: model.KindText, Text: "x"}); err != nil {
			t.Fatalf("expected exhausted retries to settle without error, but got: %v", err)
		}

		if len(f.actions.relays) != 3 {
			t.Errorf("expected 3 relay attempts, but got %d", len(f.actions.relays))
		}
		if got := f.sources.get(src.ID).LastProcessedID; got != 4 {
			t.Errorf("expected mark advanced past the failed item, but got %d", got)
		}
		failed := f.logs.byOutcome(model.OutcomeFailed)
		if len(failed) != 1 {
			t.Fatalf("expected 1 failed entry, but got %d", len(failed))
		}
		if attempts, _ := failed[0].Detail["attempts"].(int); attempts != 3 {
			t.Errorf("expected 3 attempts in the entry detail, but got %v", failed[0].Detail["attempts"])
		}
	})

	t.Run("should filter items outside the allow-list without relaying", func(t *testing.T) {
		src := testRepostSource(t, -1001, -2002)
		src.AllowedKinds = []model.ContentKind{model.KindPhoto, model.KindVideo}
		f := newRepostFixture(t, src)

		if err := f.uc.ProcessItem(ctx, src, model.Item{ChannelID: -1001, ID: 6, Kind: model.KindText, Text: "plain"}); err != nil {
			t.Fatalf("expected no error, but got: %v", err)
		}

		if len(f.actions.relays) != 0 {
			t.Errorf("expected no relay for a filtered item, but got %d", len(f.actions.relays))
		}
		if got := f.sources.get(src.ID).LastProcessedID; got != 6 {
			t.Errorf("expected mark advanced past the filtered item, but got %d", got)
		}
		stats, _ := f.stats.Get(ctx, nil, src.ID)
		if stats == nil || stats.Filtered != 1 {
			t.Errorf("expected 1 filtered in stats, but got %+v", stats)
		}
	})

	t.Run("should abort without advancing on permission denial", func(t *testing.T) {
		src := testRepostSource(t, -1001, -2002)
		f := newRepostFixture(t, src)
		f.actions.RelayFunc = func(ctx context.Context, item model.Item, targetID int64, opts adapter.RelayOptions) (int64, error) {
			return 0, domain.PermissionDenied(errors.New("not enough rights to post"))
		}

		err := f.uc.ProcessItem(ctx, src, model.Item{ChannelID: -1001, ID: 8, Kind: model.KindText, Text: "x"})
		if !domain.IsPermissionDenied(err) {
			t.Fatalf("expected a permission error, but got: %v", err)
		}
		if len(f.actions.relays) != 1 {
			t.Errorf("expected a single attempt before aborting, but got %d", len(f.actions.relays))
		}
		if got := f.sources.get(src.ID).LastProcessedID; got != 0 {
			t.Errorf("expected mark untouched, but got %d", got)
		}
	})
}
