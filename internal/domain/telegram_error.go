package domain

import (
	"errors"
	"fmt"
	"time"
)

// TelegramErrorKind is the closed set of failure classes a Telegram client
// call can surface. Every error crossing the adapter boundary carries exactly
// one of these kinds; callers switch on it instead of matching error strings.
type TelegramErrorKind int

const (
	// TelegramRateLimited means the platform asked us to back off.
	// RetryAfter carries the wait it demanded.
	TelegramRateLimited TelegramErrorKind = iota
	// TelegramPermissionDenied means the bot lacks the rights the call needs.
	// Never retried.
	TelegramPermissionDenied
	// TelegramContentError means the target item is gone or cannot be acted
	// on. Never retried.
	TelegramContentError
	// TelegramTransient covers network failures, timeouts and server errors.
	TelegramTransient
)

func (k TelegramErrorKind) String() string {
	switch k {
	case TelegramRateLimited:
		return "rate_limited"
	case TelegramPermissionDenied:
		return "permission_denied"
	case TelegramContentError:
		return "content_error"
	case TelegramTransient:
		return "transient"
	default:
		return fmt.Sprintf("telegram_error_kind(%d)", int(k))
	}
}

// TelegramError tags a Telegram client failure with its kind.
type TelegramError struct {
	Kind       TelegramErrorKind
	RetryAfter time.Duration // set only for TelegramRateLimited
	Err        error
}

func (e *TelegramError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("telegram %s: %v", e.Kind, e.Err)
	}
	return "telegram " + e.Kind.String()
}

func (e *TelegramError) Unwrap() error { return e.Err }

func RateLimited(retryAfter time.Duration, err error) *TelegramError {
	return &TelegramError{Kind: TelegramRateLimited, RetryAfter: retryAfter, Err: err}
}

func PermissionDenied(err error) *TelegramError {
	return &TelegramError{Kind: TelegramPermissionDenied, Err: err}
}

func ContentError(err error) *TelegramError {
	return &TelegramError{Kind: TelegramContentError, Err: err}
}

func Transient(err error) *TelegramError {
	return &TelegramError{Kind: TelegramTransient, Err: err}
}

// AsTelegramError unwraps err to the *TelegramError in its chain, if any.
func AsTelegramError(err error) (*TelegramError, bool) {
	var te *TelegramError
	if errors.As(err, &te) {
		return te, true
	}
	return nil, false
}

// IsPermissionDenied reports whether err carries the permission_denied kind.
func IsPermissionDenied(err error) bool {
	te, ok := AsTelegramError(err)
	return ok && te.Kind == TelegramPermissionDenied
}
