package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/user/profile-scraper/internal/entity"
	"github.com/user/profile-scraper/internal/repository"
)

// FailedURLRepoImpl provides a concrete implementation for the FailedURLRepository interface using PostgreSQL.
type FailedURLRepoImpl struct {
	db *pgxpool.Pool
}

// NewFailedURLRepo creates a new instance of FailedURLRepoImpl.
func NewFailedURLRepo(db *pgxpool.Pool) *FailedURLRepoImpl {
	return &FailedURLRepoImpl{db: db}
}

// SaveOrUpdate creates or updates a record for a failed URL.
// It increments the failure_count on conflict.
func (r *FailedURLRepoImpl) SaveOrUpdate(ctx context.Context, failedURL *entity.FailedURL) error {
	query := `
		INSERT INTO failed_urls (url, kind, reason, http_status_code, attempts, failure_count, last_attempt_at)
		VALUES ($1, $2, $3, $4, $5, 1, $6)
		ON CONFLICT (url) DO UPDATE SET
			kind = EXCLUDED.kind,
			reason = EXCLUDED.reason,
			http_status_code = EXCLUDED.http_status_code,
			attempts = EXCLUDED.attempts,
			failure_count = failed_urls.failure_count + 1,
			last_attempt_at = EXCLUDED.last_attempt_at;
	`
	_, err := r.db.Exec(ctx, query,
		failedURL.URL,
		string(failedURL.Kind),
		failedURL.Reason,
		failedURL.HTTPStatusCode,
		failedURL.Attempts,
		failedURL.LastAttemptAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("%w: save failed url %s: %v", repository.ErrStorage, failedURL.URL, err)
	}
	return nil
}

// List retrieves the most recent failures.
func (r *FailedURLRepoImpl) List(ctx context.Context, limit int) ([]*entity.FailedURL, error) {
	query := `
		SELECT url, kind, reason, http_status_code, attempts, failure_count, last_attempt_at
		FROM failed_urls
		ORDER BY last_attempt_at DESC, url
		LIMIT $1;
	`
	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: list failed urls: %v", repository.ErrStorage, err)
	}
	defer rows.Close()

	var failedURLs []*entity.FailedURL
	for rows.Next() {
		var (
			fu   entity.FailedURL
			kind string
		)
		if err := rows.Scan(
			&fu.URL,
			&kind,
			&fu.Reason,
			&fu.HTTPStatusCode,
			&fu.Attempts,
			&fu.FailureCount,
			&fu.LastAttemptAt,
		); err != nil {
			return nil, fmt.Errorf("%w: scan failed url: %v", repository.ErrStorage, err)
		}
		fu.Kind = entity.ErrorKind(kind)
		failedURLs = append(failedURLs, &fu)
	}

	return failedURLs, rows.Err()
}

// Delete removes a failed URL record, typically after a successful scrape.
func (r *FailedURLRepoImpl) Delete(ctx context.Context, url string) error {
	query := `DELETE FROM failed_urls WHERE url = $1;`
	if _, err := r.db.Exec(ctx, query, url); err != nil {
		return fmt.Errorf("%w: delete failed url %s: %v", repository.ErrStorage, url, err)
	}
	return nil
}

var _ repository.FailedURLRepository = (*FailedURLRepoImpl)(nil)
