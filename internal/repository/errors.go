package repository

import (
	"context"
	"errors"

	"github.com/user/profile-scraper/internal/entity"
)

var (
	// Retryable.
	ErrTransport = errors.New("transport error")
	ErrBlocked   = errors.New("blocked by server")

	// Fatal for the URL.
	ErrNotFound         = errors.New("page not found")
	ErrInvalidURL       = errors.New("malformed url")
	ErrUnexpectedStatus = errors.New("unexpected http status")
	ErrParse            = errors.New("unexpected page structure")
	ErrCanceled         = errors.New("canceled")

	ErrStorage = errors.New("storage error")

	// ErrProfileNotFound is returned by store lookups for unknown URLs.
	ErrProfileNotFound = errors.New("profile not found")
)

// Retryable reports whether err is worth another attempt.
func Retryable(err error) bool {
	return errors.Is(err, ErrTransport) || errors.Is(err, ErrBlocked)
}

// KindOf maps an error onto the kind reported to users.
func KindOf(err error) entity.ErrorKind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrCanceled), errors.Is(err, context.Canceled):
		return entity.KindCanceled
	case errors.Is(err, ErrBlocked):
		return entity.KindBlocked
	case errors.Is(err, ErrTransport), errors.Is(err, context.DeadlineExceeded):
		return entity.KindTransport
	case errors.Is(err, ErrNotFound):
		return entity.KindNotFound
	case errors.Is(err, ErrInvalidURL):
		return entity.KindInvalidURL
	case errors.Is(err, ErrUnexpectedStatus):
		return entity.KindUnexpectedStatus
	case errors.Is(err, ErrParse):
		return entity.KindParse
	case errors.Is(err, ErrStorage):
		return entity.KindStorage
	}
	return entity.KindUnknown
}
