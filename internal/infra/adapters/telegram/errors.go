package telegram

import (
	"errors"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"telegram-channel-booster/internal/domain"
)

// permissionMarkers are substrings of API error descriptions that mean the
// bot lacks rights, regardless of the numeric code Telegram picked.
var permissionMarkers = []string{
	"not enough rights",
	"have no rights",
	"chat_write_forbidden",
	"bot was kicked",
	"bot is not a member",
	"chat not found",
	"channel_private",
}

// contentMarkers mean the target item itself is gone or unusable; retrying
// the same call can never succeed.
var contentMarkers = []string{
	"message to forward not found",
	"message to copy not found",
	"message to react not found",
	"message not found",
	"message_id_invalid",
	"message can't be forwarded",
	"message to delete not found",
	"reaction_invalid",
	"wrong file identifier",
}

// classifyError maps a raw client error onto the closed TelegramError set.
// Everything the engine decides about retries and source health hangs off the
// kind, so this is the single place API error shapes are interpreted.
func classifyError(err error) *domain.TelegramError {
	if err == nil {
		return nil
	}
	var apiErr *tgbotapi.Error
	if !errors.As(err, &apiErr) {
		// Transport-level failure: timeouts, connection resets, bad gateways
		// surfaced as plain errors by the client.
		return domain.Transient(err)
	}

	msg := strings.ToLower(apiErr.Message)
	for _, marker := range permissionMarkers {
		if strings.Contains(msg, marker) {
			return domain.PermissionDenied(err)
		}
	}

	switch {
	case apiErr.Code == 429:
		retryAfter := time.Duration(apiErr.RetryAfter) * time.Second
		if retryAfter <= 0 {
			retryAfter = time.Second
		}
		return domain.RateLimited(retryAfter, err)
	case apiErr.Code == 403:
		return domain.PermissionDenied(err)
	case apiErr.Code >= 500:
		return domain.Transient(err)
	}

	for _, marker := range contentMarkers {
		if strings.Contains(msg, marker) {
			return domain.ContentError(err)
		}
	}
	// Remaining 4xx responses describe the request or its target, not the
	// platform's state; treat them as content failures so they are not retried.
	return domain.ContentError(err)
}
