package model

import (
	"time"

	"telegram-channel-booster/internal/domain"
)

// BoostRecord is one row of the per-item ledger: proof that the boost action
// settled for this item. The (SourceID, ItemID) pair is unique; the record is
// written before the source's high-water-mark advances past ItemID.
type BoostRecord struct {
	SourceID   string
	ChannelID  int64
	ItemID     int64
	Reactions  int // reactions actually added, may be below the configured count
	EmojisUsed []string
	BoostedAt  time.Time
}

// NewBoostRecord creates a ledger row for a settled boost.
func NewBoostRecord(sourceID string, channelID, itemID int64, reactions int, emojis []string) (*BoostRecord, error) {
	if sourceID == "" || channelID == 0 || itemID <= 0 || reactions < 1 {
		return nil, domain.ErrInvalidArgument
	}
	return &BoostRecord{
		SourceID:   sourceID,
		ChannelID:  channelID,
		ItemID:     itemID,
		Reactions:  reactions,
		EmojisUsed: emojis,
		BoostedAt:  time.Now().UTC(),
	}, nil
}
