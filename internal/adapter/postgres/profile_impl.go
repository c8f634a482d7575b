package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/user/profile-scraper/internal/entity"
	"github.com/user/profile-scraper/internal/repository"
)

// ProfileRepoImpl provides a concrete implementation for the ProfileRepository interface using PostgreSQL.
type ProfileRepoImpl struct {
	db *pgxpool.Pool
}

// NewProfileRepo creates a new instance of ProfileRepoImpl.
func NewProfileRepo(db *pgxpool.Pool) *ProfileRepoImpl {
	return &ProfileRepoImpl{db: db}
}

func (r *ProfileRepoImpl) Exists(ctx context.Context, url string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM profiles WHERE profile_url = $1)`, url).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("%w: exists %s: %v", repository.ErrStorage, url, err)
	}
	return exists, nil
}

func (r *ProfileRepoImpl) AllKnownURLs(ctx context.Context) ([]string, error) {
	rows, err := r.db.Query(ctx, `SELECT profile_url FROM profiles ORDER BY profile_url`)
	if err != nil {
		return nil, fmt.Errorf("%w: list urls: %v", repository.ErrStorage, err)
	}
	urls, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("%w: list urls: %v", repository.ErrStorage, err)
	}
	if urls == nil {
		urls = []string{}
	}
	return urls, nil
}

// Upsert stores or replaces the record for its URL in a single transaction.
func (r *ProfileRepoImpl) Upsert(ctx context.Context, rec *entity.ProfileRecord) error {
	rec.Normalize()
	phonesJSON, err := json.Marshal(rec.PhoneNumbers)
	if err != nil {
		return err
	}
	addressesJSON, err := json.Marshal(rec.Addresses)
	if err != nil {
		return err
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%w: begin: %v", repository.ErrStorage, err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO profiles (profile_url, name, specialty, phone_numbers, addresses, last_scraped_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (profile_url) DO UPDATE SET
			name = EXCLUDED.name,
			specialty = EXCLUDED.specialty,
			phone_numbers = EXCLUDED.phone_numbers,
			addresses = EXCLUDED.addresses,
			last_scraped_at = EXCLUDED.last_scraped_at;
	`
	if _, err := tx.Exec(ctx, query,
		rec.ProfileURL,
		rec.Name,
		rec.Specialty,
		phonesJSON,
		addressesJSON,
		rec.LastScrapedAt.UTC(),
	); err != nil {
		return fmt.Errorf("%w: upsert %s: %v", repository.ErrStorage, rec.ProfileURL, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%w: commit %s: %v", repository.ErrStorage, rec.ProfileURL, err)
	}
	return nil
}

// FindByURL retrieves the stored record for a specific URL.
func (r *ProfileRepoImpl) FindByURL(ctx context.Context, url string) (*entity.ProfileRecord, error) {
	query := `
		SELECT profile_url, name, specialty, phone_numbers, addresses, last_scraped_at
		FROM profiles
		WHERE profile_url = $1;
	`
	var (
		rec           entity.ProfileRecord
		phonesJSON    []byte
		addressesJSON []byte
	)
	err := r.db.QueryRow(ctx, query, url).Scan(
		&rec.ProfileURL,
		&rec.Name,
		&rec.Specialty,
		&phonesJSON,
		&addressesJSON,
		&rec.LastScrapedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repository.ErrProfileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: find %s: %v", repository.ErrStorage, url, err)
	}

	if err := json.Unmarshal(phonesJSON, &rec.PhoneNumbers); err != nil {
		return nil, fmt.Errorf("%w: decode phone numbers of %s: %v", repository.ErrStorage, url, err)
	}
	if err := json.Unmarshal(addressesJSON, &rec.Addresses); err != nil {
		return nil, fmt.Errorf("%w: decode addresses of %s: %v", repository.ErrStorage, url, err)
	}
	rec.LastScrapedAt = rec.LastScrapedAt.UTC()
	rec.Normalize()
	return &rec, nil
}

func (r *ProfileRepoImpl) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM profiles`).Scan(&n); err != nil {
		return 0, fmt.Errorf("%w: count: %v", repository.ErrStorage, err)
	}
	return n, nil
}

func (r *ProfileRepoImpl) Ping(ctx context.Context) error {
	return r.db.Ping(ctx)
}

func (r *ProfileRepoImpl) Close() error {
	r.db.Close()
	return nil
}

var _ repository.ProfileRepository = (*ProfileRepoImpl)(nil)
