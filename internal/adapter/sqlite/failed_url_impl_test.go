package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/profile-scraper/internal/entity"
)

func TestFailedURLRepo_SaveOrUpdateIncrementsCount(t *testing.T) {
	db, err := Open(context.Background(), ":memory:")
	require.NoError(t, err)
	defer db.Close()
	repo := NewFailedURLRepo(db)
	ctx := context.Background()

	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	f := &entity.FailedURL{
		URL:            "https://example.com/x",
		Kind:           entity.KindBlocked,
		Reason:         "status 429",
		HTTPStatusCode: 429,
		Attempts:       4,
		LastAttemptAt:  at,
	}
	require.NoError(t, repo.SaveOrUpdate(ctx, f))

	f.Kind = entity.KindNotFound
	f.Reason = "status 404"
	f.HTTPStatusCode = 404
	f.Attempts = 1
	f.LastAttemptAt = at.Add(time.Hour)
	require.NoError(t, repo.SaveOrUpdate(ctx, f))

	list, err := repo.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 2, list[0].FailureCount)
	assert.Equal(t, entity.KindNotFound, list[0].Kind)
	assert.Equal(t, 404, list[0].HTTPStatusCode)
	assert.True(t, at.Add(time.Hour).Equal(list[0].LastAttemptAt))

	require.NoError(t, repo.Delete(ctx, f.URL))
	list, err = repo.List(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestFailedURLRepo_ListNewestFirstWithLimit(t *testing.T) {
	db, err := Open(context.Background(), ":memory:")
	require.NoError(t, err)
	defer db.Close()
	repo := NewFailedURLRepo(db)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	for i, u := range []string{"https://example.com/1", "https://example.com/2", "https://example.com/3"} {
		require.NoError(t, repo.SaveOrUpdate(ctx, &entity.FailedURL{
			URL:           u,
			Kind:          entity.KindTransport,
			Reason:        "connection reset",
			LastAttemptAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	list, err := repo.List(ctx, 2)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "https://example.com/3", list[0].URL)
	assert.Equal(t, "https://example.com/2", list[1].URL)
}
