package repository

import (
	"context"

	"github.com/user/profile-scraper/internal/entity"
)

// ProfileRepository is the authoritative mapping from profile URL to record.
type ProfileRepository interface {
	// Exists reports whether a record is stored under url.
	Exists(ctx context.Context, url string) (bool, error)
	// AllKnownURLs returns every stored profile URL.
	AllKnownURLs(ctx context.Context) ([]string, error)
	// Upsert writes the whole record atomically, replacing any row with the same URL.
	Upsert(ctx context.Context, record *entity.ProfileRecord) error
	// FindByURL returns ErrProfileNotFound when url is unknown.
	FindByURL(ctx context.Context, url string) (*entity.ProfileRecord, error)
	Count(ctx context.Context) (int, error)
	Ping(ctx context.Context) error
	Close() error
}
