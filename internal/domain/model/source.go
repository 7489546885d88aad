package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"telegram-channel-booster/internal/domain"
)

type SourceAction string

const (
	ActionBoost  SourceAction = "boost"
	ActionRepost SourceAction = "repost"
)

type SourceStatus string

const (
	SourceStatusActive   SourceStatus = "active"
	SourceStatusError    SourceStatus = "error"
	SourceStatusDisabled SourceStatus = "disabled"
)

// DefaultCheckInterval is applied when a source does not set its own.
const DefaultCheckInterval = 2 * time.Minute

// BoostSettings configures the reaction action for one source.
type BoostSettings struct {
	Emojis        []string `json:"emojis"`
	ReactionCount int      `json:"reaction_count"`
	DelayMinSec   float64  `json:"delay_min_seconds"`
	DelayMaxSec   float64  `json:"delay_max_seconds"`
}

func (s *BoostSettings) Validate() error {
	if len(s.Emojis) == 0 {
		return fmt.Errorf("%w: emoji set must not be empty", domain.ErrInvalidArgument)
	}
	if s.ReactionCount < 1 || s.ReactionCount > 100 {
		return fmt.Errorf("%w: reaction count must be between 1 and 100", domain.ErrInvalidArgument)
	}
	if s.ReactionCount > len(s.Emojis) {
		return fmt.Errorf("%w: reaction count exceeds emoji set size", domain.ErrInvalidArgument)
	}
	if s.DelayMinSec < 0 {
		return fmt.Errorf("%w: delay_min_seconds must not be negative", domain.ErrInvalidArgument)
	}
	if s.DelayMaxSec < s.DelayMinSec {
		return fmt.Errorf("%w: delay_max_seconds must not be less than delay_min_seconds", domain.ErrInvalidArgument)
	}
	return nil
}

// DelayBounds returns the jitter window as durations.
func (s *BoostSettings) DelayBounds() (time.Duration, time.Duration) {
	min := time.Duration(s.DelayMinSec * float64(time.Second))
	max := time.Duration(s.DelayMaxSec * float64(time.Second))
	return min, max
}

// RepostSettings configures the relay action for one source.
type RepostSettings struct {
	TargetChannelID    int64  `json:"target_channel_id"`
	TargetChannelTitle string `json:"target_channel_title"`
	Watermark          string `json:"watermark"`
	DropAuthor         bool   `json:"drop_author"`
	RepostDelaySec     int    `json:"repost_delay_seconds"`
}

func (s *RepostSettings) Validate() error {
	if s.TargetChannelID == 0 {
		return fmt.Errorf("%w: target channel id is required", domain.ErrInvalidArgument)
	}
	if s.RepostDelaySec < 0 {
		return fmt.Errorf("%w: repost_delay_seconds must not be negative", domain.ErrInvalidArgument)
	}
	return nil
}

// SourceConfig is one monitored channel together with its action parameters
// and processing progress. LastProcessedID is the high-water-mark: items at
// or below it are settled and never re-fetched.
type SourceConfig struct {
	ID              string // UUID
	ChannelID       int64
	ChannelTitle    string
	ChannelUsername string
	Action          SourceAction
	Enabled         bool
	Status          SourceStatus
	CheckInterval   time.Duration
	LastProcessedID int64
	Boost           *BoostSettings
	Repost          *RepostSettings
	AllowedKinds    []ContentKind // empty means accept every kind
	LastError       *string
	LastCheckedAt   *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// NewBoostSource creates an enabled boost source with validated settings.
func NewBoostSource(id string, channelID int64, title, username string, settings BoostSettings) (*SourceConfig, error) {
	cfg, err := newSource(id, channelID, title, username, ActionBoost)
	if err != nil {
		return nil, err
	}
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	cfg.Boost = &settings
	return cfg, nil
}

// NewRepostSource creates an enabled repost source with validated settings.
func NewRepostSource(id string, channelID int64, title, username string, settings RepostSettings) (*SourceConfig, error) {
	cfg, err := newSource(id, channelID, title, username, ActionRepost)
	if err != nil {
		return nil, err
	}
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	if settings.TargetChannelID == channelID {
		return nil, fmt.Errorf("%w: target channel must differ from source channel", domain.ErrInvalidArgument)
	}
	cfg.Repost = &settings
	return cfg, nil
}

func newSource(id string, channelID int64, title, username string, action SourceAction) (*SourceConfig, error) {
	if channelID == 0 {
		return nil, domain.ErrInvalidArgument
	}
	if id == "" {
		id = uuid.NewString()
	}
	now := time.Now()
	return &SourceConfig{
		ID:              id,
		ChannelID:       channelID,
		ChannelTitle:    title,
		ChannelUsername: username,
		Action:          action,
		Enabled:         true,
		Status:          SourceStatusActive,
		CheckInterval:   DefaultCheckInterval,
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}

// Validate re-checks the whole configuration, including fields set after
// construction. Used on updates and on rows loaded from external input.
func (c *SourceConfig) Validate() error {
	if c.ID == "" || c.ChannelID == 0 {
		return domain.ErrInvalidArgument
	}
	if c.CheckInterval <= 0 {
		return fmt.Errorf("%w: check interval must be positive", domain.ErrInvalidArgument)
	}
	for _, k := range c.AllowedKinds {
		if !ValidContentKind(k) {
			return fmt.Errorf("%w: unknown content kind %q", domain.ErrInvalidArgument, k)
		}
	}
	switch c.Action {
	case ActionBoost:
		if c.Boost == nil {
			return fmt.Errorf("%w: boost settings are required", domain.ErrInvalidArgument)
		}
		return c.Boost.Validate()
	case ActionRepost:
		if c.Repost == nil {
			return fmt.Errorf("%w: repost settings are required", domain.ErrInvalidArgument)
		}
		if c.Repost.TargetChannelID == c.ChannelID {
			return fmt.Errorf("%w: target channel must differ from source channel", domain.ErrInvalidArgument)
		}
		return c.Repost.Validate()
	default:
		return fmt.Errorf("%w: unknown action %q", domain.ErrInvalidArgument, c.Action)
	}
}

// Due reports whether the source should be checked at now, given the time of
// its previous check. A source never checked before is always due.
func (c *SourceConfig) Due(now time.Time) bool {
	if c.LastCheckedAt == nil {
		return true
	}
	return now.Sub(*c.LastCheckedAt) >= c.CheckInterval
}
