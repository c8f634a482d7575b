package repository

import (
	"context"

	"github.com/user/profile-scraper/internal/entity"
)

// FailedURLRepository records URLs whose extraction failed.
type FailedURLRepository interface {
	// SaveOrUpdate creates or updates a record for a failed URL, bumping its failure count.
	SaveOrUpdate(ctx context.Context, failedURL *entity.FailedURL) error
	// List returns up to limit records, most recent first.
	List(ctx context.Context, limit int) ([]*entity.FailedURL, error)
	// Delete removes a failed URL record, typically after a successful scrape.
	Delete(ctx context.Context, url string) error
}
