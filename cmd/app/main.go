// File: cmd/app/main.go
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"telegram-channel-booster/internal/config"
	"telegram-channel-booster/internal/domain/ports/adapter"
	tele "telegram-channel-booster/internal/infra/adapters/telegram"
	pg "telegram-channel-booster/internal/infra/db/postgres"
	"telegram-channel-booster/internal/infra/logging"
	"telegram-channel-booster/internal/infra/metrics"
	red "telegram-channel-booster/internal/infra/redis"
	"telegram-channel-booster/internal/infra/sched"
	"telegram-channel-booster/internal/infra/web"
	"telegram-channel-booster/internal/usecase"
)

// Overridden at build time via -ldflags.
var (
	version = "dev"
	commit  = "none"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- Config ----
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Info().Msg("developer mode enabled")
	}

	// ---- Metrics ----
	metrics.MustRegister()
	metrics.SetBuildInfo(version, commit)

	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, 10)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer pool.Close()
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				st := pool.Stat()
				metrics.SetDBPoolStats(st.TotalConns(), st.IdleConns(), st.AcquiredConns())
			}
		}
	}()

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		log.Fatalf("redis: %v", err)
	}
	cycleGuard := red.NewCycleGuard(redisClient)
	progressCache := red.NewProgressCache(redisClient, cfg.Redis.TTL)
	rateLimiter := red.NewRateLimiter(redisClient)

	// ---- Repositories ----
	sourceRepo := pg.NewPostgresSourceRepo(pool)
	statsRepo := pg.NewPostgresSourceStatsRepo(pool)
	logRepo := pg.NewPostgresOperationLogRepo(pool)
	ledgerRepo := pg.NewPostgresBoostLedgerRepo(pool)
	txm := pg.NewTxManager(pool)

	// ---- Telegram client ----
	var (
		fetcher adapter.MessageSourceClient
		actions adapter.MessageActionClient
		real    *tele.RealTelegramClient
	)
	if strings.ToLower(cfg.Bot.Mode) == "noop" {
		noop := tele.NewNoopTelegramClient()
		fetcher, actions = noop, noop
		logger.Warn().Msg("telegram client running in noop mode")
	} else {
		real, err = tele.NewRealTelegramClient(&cfg.Bot, rateLimiter, logger)
		if err != nil {
			log.Fatalf("telegram: %v", err)
		}
		fetcher, actions = real, real
	}

	// ---- Use cases ----
	boostUC := usecase.NewBoostUseCase(sourceRepo, ledgerRepo, logRepo, statsRepo, txm, actions, logger)
	repostUC := usecase.NewRepostUseCase(sourceRepo, logRepo, statsRepo, txm, actions, logger)
	healthUC := usecase.NewHealthUseCase(sourceRepo, actions, logger)
	monitorUC := usecase.NewMonitorUseCase(
		sourceRepo, logRepo, fetcher, healthUC, cycleGuard, progressCache,
		boostUC, repostUC, cfg.Scheduler.GuardTTL, cfg.Scheduler.FetchLimit, logger,
	)
	sourceUC := usecase.NewSourceUseCase(sourceRepo, statsRepo, txm, actions, logger)
	statsUC := usecase.NewStatsUseCase(statsRepo, logRepo, ledgerRepo, logger)

	// ---- Monitor worker ----
	worker := sched.NewMonitorWorker(cfg.Scheduler.Interval, monitorUC, sourceRepo, logger)
	go func() { _ = worker.Run(ctx) }()

	// ---- Update poller (real mode only) ----
	if real != nil {
		poller := tele.NewChannelUpdatePoller(real, monitorUC, progressCache, cfg.Bot.Workers, logger)
		go func() {
			if err := poller.StartPolling(ctx); err != nil {
				logger.Error().Err(err).Msg("telegram polling stopped")
			}
		}()
	}

	// ---- Ops API ----
	auth := web.NewAuthManager(cfg.Ops.JWTSecret, !cfg.Runtime.Dev, "", cfg.Ops.SessionTTL)
	opsServer := web.NewServer(sourceUC, statsUC, healthUC, cfg.Ops.APIKey, auth, logger)
	server := &http.Server{Addr: fmt.Sprintf(":%d", cfg.Ops.Port), Handler: opsServer.Router()}
	go func() {
		logger.Info().Str("addr", server.Addr).Msg("ops API listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("ops API server error")
		}
	}()

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	logger.Info().Msg("shutdown requested")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("ops API shutdown error")
	}
}
