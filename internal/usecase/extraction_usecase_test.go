package usecase

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/profile-scraper/internal/entity"
	"github.com/user/profile-scraper/internal/repository"
)

func profileURLs(n int) []string {
	urls := make([]string, n)
	for i := range urls {
		urls[i] = fmt.Sprintf("https://example.com/doctor/%02d", i)
	}
	return urls
}

func TestExtractAll_EveryURLHasAResult(t *testing.T) {
	urls := profileURLs(20)
	fetcher := newFakeFetcher()
	fetcher.failures[urls[3]] = fmt.Errorf("%w: status 404", repository.ErrNotFound)
	fetcher.failures[urls[4]] = fmt.Errorf("giving up after 4 attempts: %w", repository.ErrTransport)
	parser := newFakeParser()
	parser.badPages[urls[5]] = true

	at := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	ex := NewExtractor(fetcher, parser, 4, WithClock(func() time.Time { return at }))

	results := ex.ExtractAll(context.Background(), urls)
	require.Len(t, results, len(urls))

	assert.Equal(t, entity.KindNotFound, results[urls[3]].Err.Kind)
	assert.Equal(t, entity.KindTransport, results[urls[4]].Err.Kind)
	assert.Equal(t, entity.KindParse, results[urls[5]].Err.Kind)

	for i, u := range urls {
		if i >= 3 && i <= 5 {
			assert.Nil(t, results[u].Record)
			continue
		}
		res := results[u]
		require.Nil(t, res.Err, u)
		require.NotNil(t, res.Record)
		assert.Equal(t, u, res.Record.ProfileURL)
		assert.Equal(t, at, res.Record.LastScrapedAt)
		assert.NotNil(t, res.Record.Addresses)
	}
}

func TestExtractAll_CollapsesDuplicates(t *testing.T) {
	fetcher := newFakeFetcher()
	ex := NewExtractor(fetcher, newFakeParser(), 3)

	urls := []string{"https://example.com/a", "https://example.com/b", "https://example.com/a"}
	results := ex.ExtractAll(context.Background(), urls)

	assert.Len(t, results, 2)
	assert.Equal(t, 1, fetcher.count("https://example.com/a"))
}

func TestExtractAll_EmptyInput(t *testing.T) {
	ex := NewExtractor(newFakeFetcher(), newFakeParser(), 3)
	results := ex.ExtractAll(context.Background(), nil)
	assert.NotNil(t, results)
	assert.Empty(t, results)
}

func TestExtractAll_BoundedConcurrency(t *testing.T) {
	const workers = 3
	var inFlight, peak int32
	fetcher := newFakeFetcher()
	fetcher.before = func(ctx context.Context, url string) {
		n := atomic.AddInt32(&inFlight, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		atomic.AddInt32(&inFlight, -1)
	}

	ex := NewExtractor(fetcher, newFakeParser(), workers)
	results := ex.ExtractAll(context.Background(), profileURLs(30))

	assert.Len(t, results, 30)
	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(workers))
	assert.Greater(t, atomic.LoadInt32(&peak), int32(1))
}

func TestExtractAll_CanceledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	urls := profileURLs(10)
	ex := NewExtractor(newFakeFetcher(), newFakeParser(), 2)
	results := ex.ExtractAll(ctx, urls)

	require.Len(t, results, len(urls))
	for _, u := range urls {
		require.NotNil(t, results[u].Err, u)
		assert.Equal(t, entity.KindCanceled, results[u].Err.Kind)
		assert.ErrorIs(t, results[u].Err, repository.ErrCanceled)
	}
}

func TestExtractAll_CanceledMidway(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var once sync.Once
	fetcher := newFakeFetcher()
	fetcher.before = func(context.Context, string) { once.Do(cancel) }

	urls := profileURLs(50)
	ex := NewExtractor(fetcher, newFakeParser(), 2)
	results := ex.ExtractAll(ctx, urls)

	require.Len(t, results, len(urls))
	canceled := 0
	for _, u := range urls {
		res := results[u]
		assert.True(t, (res.Record == nil) != (res.Err == nil), "exactly one of record or error for %s", u)
		if res.Err != nil && res.Err.Kind == entity.KindCanceled {
			canceled++
		}
	}
	assert.Greater(t, canceled, 0)
	assert.Less(t, len(fetcher.fetched()), len(urls))
}
