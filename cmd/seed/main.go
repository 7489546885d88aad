package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"telegram-channel-booster/internal/config"
	"telegram-channel-booster/internal/domain/model"
	tele "telegram-channel-booster/internal/infra/adapters/telegram"
	pg "telegram-channel-booster/internal/infra/db/postgres"
	"telegram-channel-booster/internal/infra/logging"
	"telegram-channel-booster/internal/usecase"
)

func main() {
	// ---- Config ----
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Connect Postgres
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, 4)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer pool.Close()

	logger := logging.New(cfg.Log, true)

	sourceRepo := pg.NewPostgresSourceRepo(pool)
	statsRepo := pg.NewPostgresSourceStatsRepo(pool)
	txm := pg.NewTxManager(pool)

	// The noop client verifies access to anything, so seeding needs no bot.
	sourceUC := usecase.NewSourceUseCase(sourceRepo, statsRepo, txm, tele.NewNoopTelegramClient(), logger)

	// If sources already exist, do nothing
	existing, err := sourceUC.List(ctx)
	if err != nil {
		log.Fatalf("list sources: %v", err)
	}
	if len(existing) > 0 {
		fmt.Printf("%d sources already present. No changes.\n", len(existing))
		for _, s := range existing {
			fmt.Printf("  - %s (%d, action=%s, enabled=%t)\n", s.ChannelTitle, s.ChannelID, s.Action, s.Enabled)
		}
		return
	}

	// Seed one source per action for local testing
	seeds := []usecase.AddSourceParams{
		{
			ChannelID:    -1001000000001,
			ChannelTitle: "Demo Boost Channel",
			Action:       model.ActionBoost,
			Boost: &model.BoostSettings{
				Emojis:        []string{"🔥", "👍", "❤️"},
				ReactionCount: 2,
				DelayMinSec:   1,
				DelayMaxSec:   5,
			},
		},
		{
			ChannelID:    -1001000000002,
			ChannelTitle: "Demo Repost Source",
			Action:       model.ActionRepost,
			Repost: &model.RepostSettings{
				TargetChannelID:    -1001000000003,
				TargetChannelTitle: "Demo Repost Target",
				Watermark:          "via @demo_source",
			},
		},
	}

	for _, params := range seeds {
		src, err := sourceUC.Add(ctx, params)
		if err != nil {
			log.Fatalf("seed source %d: %v", params.ChannelID, err)
		}
		fmt.Printf("seeded: %s (id=%s, channel=%d, action=%s)\n", src.ChannelTitle, src.ID, src.ChannelID, src.Action)
	}

	fmt.Println("✅ Seeding complete.")
}
