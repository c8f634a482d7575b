package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/profile-scraper/internal/entity"
	"github.com/user/profile-scraper/internal/repository"
)

func openTestPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("TEST_POSTGRES_URL")
	if dsn == "" {
		t.Skip("TEST_POSTGRES_URL not set")
	}
	ctx := context.Background()
	pool, err := Open(ctx, dsn)
	require.NoError(t, err)
	_, err = pool.Exec(ctx, `TRUNCATE profiles, failed_urls`)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	return pool
}

func TestProfileRepo_Postgres(t *testing.T) {
	pool := openTestPool(t)
	repo := NewProfileRepo(pool)
	ctx := context.Background()
	url := "https://example.com/ana-souza"

	_, err := repo.FindByURL(ctx, url)
	assert.ErrorIs(t, err, repository.ErrProfileNotFound)

	specialty := "Cardiologista"
	rec := &entity.ProfileRecord{
		ProfileURL:    url,
		Name:          "Dra. Ana Souza",
		Specialty:     &specialty,
		PhoneNumbers:  []string{"11 98765-4321", "(11) 3456-7890"},
		LastScrapedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	require.NoError(t, repo.Upsert(ctx, rec))
	require.NoError(t, repo.Upsert(ctx, rec))

	n, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := repo.FindByURL(ctx, url)
	require.NoError(t, err)
	assert.Equal(t, rec.PhoneNumbers, got.PhoneNumbers)
	assert.Equal(t, []string{}, got.Addresses)
	assert.True(t, rec.LastScrapedAt.Equal(got.LastScrapedAt))

	urls, err := repo.AllKnownURLs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{url}, urls)
}

func TestFailedURLRepo_Postgres(t *testing.T) {
	pool := openTestPool(t)
	repo := NewFailedURLRepo(pool)
	ctx := context.Background()

	f := &entity.FailedURL{URL: "https://example.com/x", Kind: entity.KindBlocked, Reason: "status 429", LastAttemptAt: time.Now()}
	require.NoError(t, repo.SaveOrUpdate(ctx, f))
	require.NoError(t, repo.SaveOrUpdate(ctx, f))

	list, err := repo.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 2, list[0].FailureCount)

	require.NoError(t, repo.Delete(ctx, f.URL))
	list, err = repo.List(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, list)
}
