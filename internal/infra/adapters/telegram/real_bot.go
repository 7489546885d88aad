package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"telegram-channel-booster/internal/config"
	"telegram-channel-booster/internal/domain"
	"telegram-channel-booster/internal/domain/model"
	"telegram-channel-booster/internal/domain/ports/adapter"
	"telegram-channel-booster/internal/infra/metrics"
	red "telegram-channel-booster/internal/infra/redis"
)

var (
	_ adapter.MessageSourceClient = (*RealTelegramClient)(nil)
	_ adapter.MessageActionClient = (*RealTelegramClient)(nil)
)

const (
	maxTextLen    = 4096
	maxCaptionLen = 1024

	// perChatCallLimit budgets mutating calls per chat per minute, below the
	// platform's own threshold so we back off before it makes us.
	perChatCallLimit = 20
)

// RealTelegramClient drives the live Bot API. It is the only place raw API
// calls, their throttling and their error classification happen; everything
// above it sees model.Item and *domain.TelegramError.
type RealTelegramClient struct {
	bot     *tgbotapi.BotAPI
	cfg     *config.BotConfig
	limiter *red.RateLimiter
	log     *zerolog.Logger
}

func NewRealTelegramClient(cfg *config.BotConfig, limiter *red.RateLimiter, logger *zerolog.Logger) (*RealTelegramClient, error) {
	if cfg == nil {
		return nil, errors.New("bot config is nil")
	}
	if cfg.ProbeChatID == 0 {
		return nil, errors.New("probe chat id is required for channel fetching")
	}
	bot, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, err
	}
	compLog := logger.With().Str("component", "TelegramClient").Logger()
	return &RealTelegramClient{
		bot:     bot,
		cfg:     cfg,
		limiter: limiter,
		log:     &compLog,
	}, nil
}

// request performs one API call with latency and result accounting, and maps
// the failure onto the closed error set.
func (c *RealTelegramClient) request(method string, fn func() error) error {
	start := time.Now()
	err := fn()
	metrics.ObserveTelegramAPILatency(method, time.Since(start).Milliseconds())
	if err == nil {
		metrics.IncTelegramAPICall(method, "ok")
		return nil
	}
	te := classifyError(err)
	metrics.IncTelegramAPICall(method, te.Kind.String())
	if te.Kind == domain.TelegramRateLimited {
		metrics.IncTelegramRateLimitHit()
	}
	return te
}

// throttle spends one unit of the shared per-chat budget. A limiter outage
// lets the call through; the platform's own 429 is the backstop.
func (c *RealTelegramClient) throttle(ctx context.Context, chatID int64) error {
	if c.limiter == nil {
		return nil
	}
	allowed, err := c.limiter.Allow(ctx, red.ChannelCallKey(chatID), perChatCallLimit, time.Minute)
	if err != nil {
		c.log.Debug().Err(err).Msg("rate limiter unavailable, letting call through")
		return nil
	}
	if !allowed {
		metrics.IncTelegramRateLimitHit()
		return domain.RateLimited(2*time.Second, errors.New("local call budget exhausted"))
	}
	return nil
}

// FetchItemsAfter discovers new channel posts past afterID. The Bot API has
// no history call for bots, so existence is probed by forwarding candidate
// ids to the probe chat and deleting the copy; the forwarded message carries
// the original's content, which is all the classification needs.
func (c *RealTelegramClient) FetchItemsAfter(ctx context.Context, channelID, afterID int64, limit int) ([]model.Item, error) {
	if _, err := c.getChat(channelID); err != nil {
		return nil, err
	}

	var items []model.Item
	for offset := int64(1); offset <= int64(limit); offset++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		itemID := afterID + offset
		fwd, err := c.probeItem(ctx, channelID, itemID)
		if err != nil {
			te, ok := domain.AsTelegramError(err)
			if ok && te.Kind == domain.TelegramContentError {
				// First gap: caught up, or the post was deleted.
				break
			}
			if ok && te.Kind == domain.TelegramRateLimited {
				// Stop the scan and let the next cycle resume from here.
				c.log.Debug().Int64("channel_id", channelID).Int64("item_id", itemID).
					Msg("probe budget exhausted, stopping fetch early")
				break
			}
			return nil, err
		}
		items = append(items, itemFromMessage(channelID, itemID, fwd))
	}
	return items, nil
}

func (c *RealTelegramClient) probeItem(ctx context.Context, channelID, itemID int64) (*tgbotapi.Message, error) {
	if err := c.throttle(ctx, c.cfg.ProbeChatID); err != nil {
		return nil, err
	}
	var fwd tgbotapi.Message
	err := c.request("forwardMessage", func() error {
		m, err := c.bot.Send(tgbotapi.NewForward(c.cfg.ProbeChatID, channelID, int(itemID)))
		if err == nil {
			fwd = m
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	// Removing the probe copy is cosmetic; a leftover costs nothing.
	delErr := c.request("deleteMessage", func() error {
		_, err := c.bot.Request(tgbotapi.NewDeleteMessage(c.cfg.ProbeChatID, fwd.MessageID))
		return err
	})
	if delErr != nil {
		c.log.Debug().Err(delErr).Int64("item_id", itemID).Msg("failed to delete probe copy")
	}
	return &fwd, nil
}

func (c *RealTelegramClient) AddReaction(ctx context.Context, channelID, itemID int64, emoji string) error {
	if err := c.throttle(ctx, channelID); err != nil {
		return err
	}
	reaction, err := json.Marshal([]map[string]string{{"type": "emoji", "emoji": emoji}})
	if err != nil {
		return domain.ContentError(err)
	}
	params := tgbotapi.Params{
		"chat_id":    strconv.FormatInt(channelID, 10),
		"message_id": strconv.FormatInt(itemID, 10),
		"reaction":   string(reaction),
	}
	return c.request("setMessageReaction", func() error {
		_, err := c.bot.MakeRequest("setMessageReaction", params)
		return err
	})
}

func (c *RealTelegramClient) Relay(ctx context.Context, item model.Item, targetID int64, opts adapter.RelayOptions) (int64, error) {
	if err := c.throttle(ctx, targetID); err != nil {
		return 0, err
	}

	var cfg tgbotapi.Chattable
	var method string
	if opts.DropAuthor {
		cfg, method = resendConfig(item, targetID, opts.Watermark)
	} else {
		cfg, method = tgbotapi.NewForward(targetID, item.ChannelID, int(item.ID)), "forwardMessage"
	}

	var sent tgbotapi.Message
	err := c.request(method, func() error {
		m, err := c.bot.Send(cfg)
		if err == nil {
			sent = m
		}
		return err
	})
	if err != nil {
		return 0, err
	}
	return int64(sent.MessageID), nil
}

// resendConfig rebuilds the item as a fresh message so the copy carries no
// origin header. Kinds that cannot be rebuilt from a file id fall back to the
// platform's copy call, which drops the header too.
func resendConfig(item model.Item, targetID int64, watermark string) (tgbotapi.Chattable, string) {
	caption := withWatermark(item.Text, watermark, maxCaptionLen)
	switch item.Kind {
	case model.KindPhoto:
		cfg := tgbotapi.NewPhoto(targetID, tgbotapi.FileID(item.FileID))
		cfg.Caption = caption
		return cfg, "sendPhoto"
	case model.KindVideo:
		cfg := tgbotapi.NewVideo(targetID, tgbotapi.FileID(item.FileID))
		cfg.Caption = caption
		return cfg, "sendVideo"
	case model.KindAnimation:
		cfg := tgbotapi.NewAnimation(targetID, tgbotapi.FileID(item.FileID))
		cfg.Caption = caption
		return cfg, "sendAnimation"
	case model.KindDocument:
		cfg := tgbotapi.NewDocument(targetID, tgbotapi.FileID(item.FileID))
		cfg.Caption = caption
		return cfg, "sendDocument"
	case model.KindAudio:
		cfg := tgbotapi.NewAudio(targetID, tgbotapi.FileID(item.FileID))
		cfg.Caption = caption
		return cfg, "sendAudio"
	case model.KindVoice:
		cfg := tgbotapi.NewVoice(targetID, tgbotapi.FileID(item.FileID))
		cfg.Caption = caption
		return cfg, "sendVoice"
	case model.KindSticker:
		// Stickers carry no caption, so no place for a watermark.
		return tgbotapi.NewSticker(targetID, tgbotapi.FileID(item.FileID)), "sendSticker"
	case model.KindText:
		text := withWatermark(item.Text, watermark, maxTextLen)
		if text == "" {
			text = "..."
		}
		return tgbotapi.NewMessage(targetID, text), "sendMessage"
	default:
		return tgbotapi.NewCopyMessage(targetID, item.ChannelID, int(item.ID)), "copyMessage"
	}
}

// withWatermark appends the watermark and enforces the platform length cap,
// cutting on rune boundaries.
func withWatermark(text, watermark string, max int) string {
	out := text
	if watermark != "" {
		if out != "" {
			out = out + "\n\n" + watermark
		} else {
			out = watermark
		}
	}
	if utf8.RuneCountInString(out) > max {
		out = string([]rune(out)[:max])
	}
	return out
}

// VerifyAccess checks that the bot can see the chat and holds admin rights in
// it. Reactions and deletions in channels need admin, so membership alone is
// not enough.
func (c *RealTelegramClient) VerifyAccess(ctx context.Context, channelID int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := c.getChat(channelID); err != nil {
		return err
	}
	var member tgbotapi.ChatMember
	err := c.request("getChatMember", func() error {
		m, err := c.bot.GetChatMember(tgbotapi.GetChatMemberConfig{
			ChatConfigWithUser: tgbotapi.ChatConfigWithUser{ChatID: channelID, UserID: c.bot.Self.ID},
		})
		if err == nil {
			member = m
		}
		return err
	})
	if err != nil {
		return err
	}
	if member.Status != "administrator" && member.Status != "creator" {
		return domain.PermissionDenied(fmt.Errorf("bot is %q in chat %d, needs administrator", member.Status, channelID))
	}
	return nil
}

func (c *RealTelegramClient) NotifyOperator(ctx context.Context, text string) error {
	if len(c.cfg.AdminIDs) == 0 {
		c.log.Warn().Msg("no admin ids configured, dropping operator notification")
		return nil
	}
	var firstErr error
	for _, adminID := range c.cfg.AdminIDs {
		if err := c.throttle(ctx, adminID); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		err := c.request("sendMessage", func() error {
			_, err := c.bot.Send(tgbotapi.NewMessage(adminID, text))
			return err
		})
		if err != nil {
			c.log.Warn().Err(err).Int64("admin_id", adminID).Msg("failed to notify operator")
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func (c *RealTelegramClient) getChat(channelID int64) (*tgbotapi.Chat, error) {
	var chat tgbotapi.Chat
	err := c.request("getChat", func() error {
		ch, err := c.bot.GetChat(tgbotapi.ChatInfoConfig{ChatConfig: tgbotapi.ChatConfig{ChatID: channelID}})
		if err == nil {
			chat = ch
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return &chat, nil
}

// classifyMessage maps a raw message onto the engine's content kinds.
// Animation is checked before Document: Telegram sets both for GIFs.
func classifyMessage(msg *tgbotapi.Message) model.ContentKind {
	switch {
	case len(msg.Photo) > 0:
		return model.KindPhoto
	case msg.Video != nil:
		return model.KindVideo
	case msg.Animation != nil:
		return model.KindAnimation
	case msg.Document != nil:
		return model.KindDocument
	case msg.Audio != nil:
		return model.KindAudio
	case msg.Voice != nil:
		return model.KindVoice
	case msg.Sticker != nil:
		return model.KindSticker
	case msg.Poll != nil:
		return model.KindPoll
	case msg.Location != nil:
		return model.KindLocation
	case msg.Text != "":
		return model.KindText
	default:
		return model.KindUnknown
	}
}

func messageFileID(msg *tgbotapi.Message, kind model.ContentKind) string {
	switch kind {
	case model.KindPhoto:
		return msg.Photo[len(msg.Photo)-1].FileID // sizes are ordered, largest last
	case model.KindVideo:
		return msg.Video.FileID
	case model.KindAnimation:
		return msg.Animation.FileID
	case model.KindDocument:
		return msg.Document.FileID
	case model.KindAudio:
		return msg.Audio.FileID
	case model.KindVoice:
		return msg.Voice.FileID
	case model.KindSticker:
		return msg.Sticker.FileID
	}
	return ""
}

// itemFromMessage builds the engine's view of a channel post from its probe
// copy. itemID is the id in the source channel; the copy has its own.
func itemFromMessage(channelID, itemID int64, msg *tgbotapi.Message) model.Item {
	kind := classifyMessage(msg)
	text := msg.Text
	if text == "" {
		text = msg.Caption
	}
	return model.Item{
		ChannelID: channelID,
		ID:        itemID,
		Kind:      kind,
		Text:      text,
		FileID:    messageFileID(msg, kind),
	}
}
