package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/user/profile-scraper/internal/entity"
	"github.com/user/profile-scraper/internal/repository"
)

// FailedURLRepoImpl stores the failure ledger next to the profiles.
type FailedURLRepoImpl struct {
	db *sql.DB
}

func NewFailedURLRepo(db *sql.DB) *FailedURLRepoImpl {
	return &FailedURLRepoImpl{db: db}
}

// SaveOrUpdate creates or updates a record for a failed URL.
// It increments failure_count on conflict.
func (r *FailedURLRepoImpl) SaveOrUpdate(ctx context.Context, f *entity.FailedURL) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO failed_urls (url, kind, reason, http_status_code, attempts, failure_count, last_attempt_at)
		VALUES (?, ?, ?, ?, ?, 1, ?)
		ON CONFLICT (url) DO UPDATE SET
			kind = excluded.kind,
			reason = excluded.reason,
			http_status_code = excluded.http_status_code,
			attempts = excluded.attempts,
			failure_count = failed_urls.failure_count + 1,
			last_attempt_at = excluded.last_attempt_at`,
		f.URL, string(f.Kind), f.Reason, f.HTTPStatusCode, f.Attempts, formatTime(f.LastAttemptAt),
	)
	if err != nil {
		return fmt.Errorf("%w: save failed url %s: %v", repository.ErrStorage, f.URL, err)
	}
	return nil
}

func (r *FailedURLRepoImpl) List(ctx context.Context, limit int) ([]*entity.FailedURL, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT url, kind, reason, http_status_code, attempts, failure_count, last_attempt_at
		FROM failed_urls
		ORDER BY last_attempt_at DESC, url
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: list failed urls: %v", repository.ErrStorage, err)
	}
	defer rows.Close()

	var out []*entity.FailedURL
	for rows.Next() {
		var (
			f    entity.FailedURL
			kind string
			at   string
		)
		if err := rows.Scan(&f.URL, &kind, &f.Reason, &f.HTTPStatusCode, &f.Attempts, &f.FailureCount, &at); err != nil {
			return nil, fmt.Errorf("%w: scan failed url: %v", repository.ErrStorage, err)
		}
		f.Kind = entity.ErrorKind(kind)
		if f.LastAttemptAt, err = parseTime(at); err != nil {
			return nil, fmt.Errorf("%w: decode last_attempt_at: %v", repository.ErrStorage, err)
		}
		out = append(out, &f)
	}
	return out, rows.Err()
}

// Delete removes a failed URL record, typically after a successful scrape.
func (r *FailedURLRepoImpl) Delete(ctx context.Context, url string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM failed_urls WHERE url = ?`, url); err != nil {
		return fmt.Errorf("%w: delete failed url %s: %v", repository.ErrStorage, url, err)
	}
	return nil
}

var _ repository.FailedURLRepository = (*FailedURLRepoImpl)(nil)
