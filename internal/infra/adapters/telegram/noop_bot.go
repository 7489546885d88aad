package telegram

import (
	"context"
	"log"
	"time"

	"telegram-channel-booster/internal/domain/model"
	"telegram-channel-booster/internal/domain/ports/adapter"
)

var (
	_ adapter.MessageSourceClient = (*NoopTelegramClient)(nil)
	_ adapter.MessageActionClient = (*NoopTelegramClient)(nil)
)

// NoopTelegramClient implements both client ports for local/dev runs. It logs
// actions instead of calling Telegram and never discovers new items.
type NoopTelegramClient struct{}

// NewNoopTelegramClient constructs the noop client.
func NewNoopTelegramClient() *NoopTelegramClient {
	return &NoopTelegramClient{}
}

func (b *NoopTelegramClient) FetchItemsAfter(ctx context.Context, channelID, afterID int64, limit int) ([]model.Item, error) {
	log.Printf("[noop-telegram] FetchItemsAfter channel %d after %d (limit %d)\n", channelID, afterID, limit)
	return nil, nil
}

// AddReaction logs the reaction and simulates a small delay.
func (b *NoopTelegramClient) AddReaction(ctx context.Context, channelID, itemID int64, emoji string) error {
	select {
	case <-time.After(100 * time.Millisecond):
		// proceed
	case <-ctx.Done():
		return ctx.Err()
	}
	log.Printf("[noop-telegram] AddReaction %s to %d/%d\n", emoji, channelID, itemID)
	return nil
}

func (b *NoopTelegramClient) Relay(ctx context.Context, item model.Item, targetID int64, opts adapter.RelayOptions) (int64, error) {
	select {
	case <-time.After(100 * time.Millisecond):
		// proceed
	case <-ctx.Done():
		return 0, ctx.Err()
	}
	log.Printf("[noop-telegram] Relay item %d/%d to %d (drop_author=%t)\n", item.ChannelID, item.ID, targetID, opts.DropAuthor)
	return item.ID + 100000, nil
}

func (b *NoopTelegramClient) VerifyAccess(ctx context.Context, channelID int64) error {
	log.Printf("[noop-telegram] VerifyAccess %d\n", channelID)
	return nil
}

func (b *NoopTelegramClient) NotifyOperator(ctx context.Context, text string) error {
	log.Printf("[noop-telegram] NotifyOperator: %s\n", text)
	return nil
}
