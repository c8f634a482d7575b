package redis

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/profile-scraper/internal/entity"
)

func newTestClient(t *testing.T) *redis.Client {
	t.Helper()
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr, DB: 15})
	require.NoError(t, client.FlushDB(context.Background()).Err())
	t.Cleanup(func() { client.Close() })
	return client
}

func TestFailedURLRepo_Redis(t *testing.T) {
	client := newTestClient(t)
	repo := NewFailedURLRepo(client, time.Hour)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	older := &entity.FailedURL{URL: "https://example.com/old", Kind: entity.KindTransport, Reason: "reset", Attempts: 4, LastAttemptAt: base}
	newer := &entity.FailedURL{URL: "https://example.com/new", Kind: entity.KindNotFound, Reason: "status 404", HTTPStatusCode: 404, Attempts: 1, LastAttemptAt: base.Add(time.Minute)}

	require.NoError(t, repo.SaveOrUpdate(ctx, older))
	require.NoError(t, repo.SaveOrUpdate(ctx, newer))
	require.NoError(t, repo.SaveOrUpdate(ctx, newer))

	list, err := repo.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, newer.URL, list[0].URL)
	assert.Equal(t, 2, list[0].FailureCount)
	assert.Equal(t, 404, list[0].HTTPStatusCode)
	assert.Equal(t, entity.KindNotFound, list[0].Kind)
	assert.Equal(t, older.URL, list[1].URL)

	ttl, err := client.TTL(ctx, repo.generateKey(older.URL)).Result()
	require.NoError(t, err)
	assert.True(t, ttl > 0)

	require.NoError(t, repo.Delete(ctx, newer.URL))
	list, err = repo.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, older.URL, list[0].URL)
}

func TestFailedURLRepo_RedisPrunesExpired(t *testing.T) {
	client := newTestClient(t)
	repo := NewFailedURLRepo(client, 0)
	ctx := context.Background()

	f := &entity.FailedURL{URL: "https://example.com/gone", Kind: entity.KindParse, Reason: "no name", LastAttemptAt: time.Now()}
	require.NoError(t, repo.SaveOrUpdate(ctx, f))
	require.NoError(t, client.Del(ctx, repo.generateKey(f.URL)).Err())

	list, err := repo.List(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, list)

	n, err := client.ZCard(ctx, failedIndexKey).Result()
	require.NoError(t, err)
	assert.Zero(t, n)
}
