package telegram

import (
	"context"
	"errors"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"telegram-channel-booster/internal/domain"
	"telegram-channel-booster/internal/usecase"
)

// ChannelUpdatePoller turns pushed channel_post updates into immediate
// monitor kicks, so a fresh post is handled without waiting for the next
// periodic pass. The periodic pass stays the safety net; a dropped update
// only delays an item until then.
type ChannelUpdatePoller struct {
	bot      *tgbotapi.BotAPI
	monitor  *usecase.MonitorUseCase
	progress usecase.ProgressCache
	workers  int
	log      *zerolog.Logger

	cancelPolling context.CancelFunc
}

func NewChannelUpdatePoller(client *RealTelegramClient, monitor *usecase.MonitorUseCase, progress usecase.ProgressCache, workers int, logger *zerolog.Logger) *ChannelUpdatePoller {
	if workers <= 0 {
		workers = 5
	}
	compLog := logger.With().Str("component", "UpdatePoller").Logger()
	return &ChannelUpdatePoller{
		bot:      client.bot,
		monitor:  monitor,
		progress: progress,
		workers:  workers,
		log:      &compLog,
	}
}

func (p *ChannelUpdatePoller) StartPolling(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	u.AllowedUpdates = []string{"channel_post"}
	updates := p.bot.GetUpdatesChan(u)

	ctx, cancel := context.WithCancel(ctx)
	p.cancelPolling = cancel

	var wg sync.WaitGroup
	updateChan := make(chan tgbotapi.Update, 100)

	for i := 0; i < p.workers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case up := <-updateChan:
					if err := p.handleUpdate(ctx, up); err != nil {
						p.log.Warn().Err(err).Int("worker", id).Msg("update handling failed")
					}
				}
			}
		}(i)
	}

	for {
		select {
		case <-ctx.Done():
			p.bot.StopReceivingUpdates()
			close(updateChan)
			wg.Wait()
			return ctx.Err()
		case up := <-updates:
			updateChan <- up
		}
	}
}

func (p *ChannelUpdatePoller) StopPolling() {
	if p.cancelPolling != nil {
		p.cancelPolling()
	}
}

func (p *ChannelUpdatePoller) handleUpdate(ctx context.Context, update tgbotapi.Update) error {
	post := update.ChannelPost
	if post == nil || post.Chat == nil {
		return nil
	}
	channelID := post.Chat.ID

	// Already settled; the periodic pass got there first.
	if mark, ok := p.progress.Get(ctx, channelID); ok && int64(post.MessageID) <= mark {
		return nil
	}

	n, err := p.monitor.KickByChannel(ctx, channelID)
	switch {
	case err == nil:
		if n > 0 {
			p.log.Debug().Int64("channel_id", channelID).Int("items", n).Msg("kick processed new items")
		}
		return nil
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrSourceDisabled):
		// Posts from chats we sit in but do not monitor.
		return nil
	default:
		return err
	}
}
