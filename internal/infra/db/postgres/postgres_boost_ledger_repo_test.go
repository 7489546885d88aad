//go:build integration

package postgres

import (
	"context"
	"errors"
	"testing"

	"telegram-channel-booster/internal/domain"
	"telegram-channel-booster/internal/domain/model"
)

func TestBoostLedgerRepo_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode.")
	}

	repo := NewPostgresBoostLedgerRepo(testPool)
	ctx := context.Background()

	t.Run("should record settled items and look them up", func(t *testing.T) {
		cleanup(t)
		src := mustSaveSource(t, -2001111)

		// 1. Nothing is settled yet
		exists, err := repo.Exists(ctx, nil, src.ID, 7)
		if err != nil {
			t.Fatalf("Exists failed: %v", err)
		}
		if exists {
			t.Error("expected a fresh ledger to be empty")
		}

		// 2. Settle two items
		for _, itemID := range []int64{7, 8} {
			rec, err := model.NewBoostRecord(src.ID, src.ChannelID, itemID, 2, []string{"🔥", "👍"})
			if err != nil {
				t.Fatalf("model.NewBoostRecord() failed: %v", err)
			}
			if err := repo.Record(ctx, nil, rec); err != nil {
				t.Fatalf("Record(%d) failed: %v", itemID, err)
			}
		}

		// 3. Both show up, one by one and in the count
		exists, err = repo.Exists(ctx, nil, src.ID, 7)
		if err != nil {
			t.Fatalf("Exists failed: %v", err)
		}
		if !exists {
			t.Error("expected item 7 to be settled")
		}
		count, err := repo.CountBySource(ctx, nil, src.ID)
		if err != nil {
			t.Fatalf("CountBySource failed: %v", err)
		}
		if count != 2 {
			t.Errorf("expected 2 ledger rows, got %d", count)
		}
	})

	t.Run("should reject settling the same item twice", func(t *testing.T) {
		cleanup(t)
		src := mustSaveSource(t, -2002222)

		rec, err := model.NewBoostRecord(src.ID, src.ChannelID, 42, 3, []string{"🔥", "👍", "❤️"})
		if err != nil {
			t.Fatalf("model.NewBoostRecord() failed: %v", err)
		}
		if err := repo.Record(ctx, nil, rec); err != nil {
			t.Fatalf("first Record failed: %v", err)
		}
		if err := repo.Record(ctx, nil, rec); !errors.Is(err, domain.ErrAlreadyExists) {
			t.Errorf("expected ErrAlreadyExists on replay, got %v", err)
		}

		count, err := repo.CountBySource(ctx, nil, src.ID)
		if err != nil {
			t.Fatalf("CountBySource failed: %v", err)
		}
		if count != 1 {
			t.Errorf("expected the replay to leave a single row, got %d", count)
		}
	})

	t.Run("should keep ledgers of different sources apart", func(t *testing.T) {
		cleanup(t)
		first := mustSaveSource(t, -2003333)
		second := mustSaveSource(t, -2004444)

		// The same item id settles independently per source
		for _, src := range []*model.SourceConfig{first, second} {
			rec, err := model.NewBoostRecord(src.ID, src.ChannelID, 100, 1, []string{"🎉"})
			if err != nil {
				t.Fatalf("model.NewBoostRecord() failed: %v", err)
			}
			if err := repo.Record(ctx, nil, rec); err != nil {
				t.Fatalf("Record for %s failed: %v", src.ID, err)
			}
		}

		exists, err := repo.Exists(ctx, nil, first.ID, 100)
		if err != nil {
			t.Fatalf("Exists failed: %v", err)
		}
		if !exists {
			t.Error("expected item 100 settled for the first source")
		}
		count, err := repo.CountBySource(ctx, nil, second.ID)
		if err != nil {
			t.Fatalf("CountBySource failed: %v", err)
		}
		if count != 1 {
			t.Errorf("expected 1 row for the second source, got %d", count)
		}
	})

	t.Run("should survive removal of the source configuration", func(t *testing.T) {
		cleanup(t)
		src := mustSaveSource(t, -2005555)

		rec, err := model.NewBoostRecord(src.ID, src.ChannelID, 5, 1, []string{"🔥"})
		if err != nil {
			t.Fatalf("model.NewBoostRecord() failed: %v", err)
		}
		if err := repo.Record(ctx, nil, rec); err != nil {
			t.Fatalf("Record failed: %v", err)
		}
		if err := NewPostgresSourceRepo(testPool).Delete(ctx, nil, src.ID); err != nil {
			t.Fatalf("Delete source failed: %v", err)
		}

		exists, err := repo.Exists(ctx, nil, src.ID, 5)
		if err != nil {
			t.Fatalf("Exists after source removal failed: %v", err)
		}
		if !exists {
			t.Error("expected the ledger row to outlive its source")
		}
	})
}
