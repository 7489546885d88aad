// File: internal/domain/ports/adapter/telegram.go
package adapter

import (
	"context"

	"telegram-channel-booster/internal/domain/model"
)

// RelayOptions controls how an item is relayed to a target chat.
type RelayOptions struct {
	// Watermark is appended to the text or caption of re-sent copies.
	// Ignored when the item is forwarded with attribution.
	Watermark string
	// DropAuthor re-sends the content without the original-channel header
	// instead of forwarding it.
	DropAuthor bool
}

// MessageSourceClient reads new items from a source channel. Items come back
// in strictly ascending id order, starting after afterID, at most limit of
// them. Failures are *domain.TelegramError.
type MessageSourceClient interface {
	FetchItemsAfter(ctx context.Context, channelID, afterID int64, limit int) ([]model.Item, error)
}

// MessageActionClient performs the side-effecting per-item actions plus the
// access checks around them. Failures are *domain.TelegramError.
type MessageActionClient interface {
	AddReaction(ctx context.Context, channelID, itemID int64, emoji string) error
	Relay(ctx context.Context, item model.Item, targetID int64, opts RelayOptions) (int64, error)
	VerifyAccess(ctx context.Context, channelID int64) error
	NotifyOperator(ctx context.Context, text string) error
}
