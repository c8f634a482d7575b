package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/user/profile-scraper/internal/entity"
	"github.com/user/profile-scraper/internal/repository"
)

// ProfileRepoImpl provides a concrete implementation for the ProfileRepository interface using SQLite.
type ProfileRepoImpl struct {
	db *sql.DB
}

// NewProfileRepo creates a new instance of ProfileRepoImpl.
func NewProfileRepo(db *sql.DB) *ProfileRepoImpl {
	return &ProfileRepoImpl{db: db}
}

func (r *ProfileRepoImpl) Exists(ctx context.Context, url string) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx, `SELECT 1 FROM profiles WHERE profile_url = ?`, url).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%w: exists %s: %v", repository.ErrStorage, url, err)
	}
	return true, nil
}

func (r *ProfileRepoImpl) AllKnownURLs(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT profile_url FROM profiles ORDER BY profile_url`)
	if err != nil {
		return nil, fmt.Errorf("%w: list urls: %v", repository.ErrStorage, err)
	}
	defer rows.Close()

	urls := []string{}
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, fmt.Errorf("%w: scan url: %v", repository.ErrStorage, err)
		}
		urls = append(urls, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: list urls: %v", repository.ErrStorage, err)
	}
	return urls, nil
}

// Upsert writes every column of the record in one transaction.
func (r *ProfileRepoImpl) Upsert(ctx context.Context, rec *entity.ProfileRecord) error {
	rec.Normalize()
	phones, err := json.Marshal(rec.PhoneNumbers)
	if err != nil {
		return err
	}
	addresses, err := json.Marshal(rec.Addresses)
	if err != nil {
		return err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin: %v", repository.ErrStorage, err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO profiles (profile_url, name, specialty, phone_numbers, addresses, last_scraped_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (profile_url) DO UPDATE SET
			name = excluded.name,
			specialty = excluded.specialty,
			phone_numbers = excluded.phone_numbers,
			addresses = excluded.addresses,
			last_scraped_at = excluded.last_scraped_at`,
		rec.ProfileURL,
		rec.Name,
		nullString(rec.Specialty),
		string(phones),
		string(addresses),
		formatTime(rec.LastScrapedAt),
	)
	if err != nil {
		return fmt.Errorf("%w: upsert %s: %v", repository.ErrStorage, rec.ProfileURL, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit %s: %v", repository.ErrStorage, rec.ProfileURL, err)
	}
	return nil
}

func (r *ProfileRepoImpl) FindByURL(ctx context.Context, url string) (*entity.ProfileRecord, error) {
	var (
		rec       entity.ProfileRecord
		specialty sql.NullString
		phones    string
		addresses string
		scrapedAt string
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT profile_url, name, specialty, phone_numbers, addresses, last_scraped_at
		FROM profiles
		WHERE profile_url = ?`, url,
	).Scan(&rec.ProfileURL, &rec.Name, &specialty, &phones, &addresses, &scrapedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrProfileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: find %s: %v", repository.ErrStorage, url, err)
	}

	if specialty.Valid {
		rec.Specialty = &specialty.String
	}
	if err := json.Unmarshal([]byte(phones), &rec.PhoneNumbers); err != nil {
		return nil, fmt.Errorf("%w: decode phone numbers of %s: %v", repository.ErrStorage, url, err)
	}
	if err := json.Unmarshal([]byte(addresses), &rec.Addresses); err != nil {
		return nil, fmt.Errorf("%w: decode addresses of %s: %v", repository.ErrStorage, url, err)
	}
	if rec.LastScrapedAt, err = parseTime(scrapedAt); err != nil {
		return nil, fmt.Errorf("%w: decode last_scraped_at of %s: %v", repository.ErrStorage, url, err)
	}
	rec.Normalize()
	return &rec, nil
}

func (r *ProfileRepoImpl) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM profiles`).Scan(&n); err != nil {
		return 0, fmt.Errorf("%w: count: %v", repository.ErrStorage, err)
	}
	return n, nil
}

func (r *ProfileRepoImpl) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *ProfileRepoImpl) Close() error {
	return r.db.Close()
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

var _ repository.ProfileRepository = (*ProfileRepoImpl)(nil)
