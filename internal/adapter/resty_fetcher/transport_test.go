package resty_fetcher

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/user/profile-scraper/internal/entity"
	"github.com/user/profile-scraper/internal/proxy"
	"github.com/user/profile-scraper/internal/repository"
	"go.uber.org/zap"
)

func TestRestyTransport_SendsBrowserHeadersAndCookies(t *testing.T) {
	var sawCookie atomic.Bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "ua-test", r.Header.Get("User-Agent"))
		assert.Contains(t, r.Header.Get("Accept-Language"), "pt-BR")
		if r.URL.Path == "/" {
			http.SetCookie(w, &http.Cookie{Name: "session", Value: "abc", Path: "/"})
			w.WriteHeader(http.StatusOK)
			return
		}
		if c, err := r.Cookie("session"); err == nil && c.Value == "abc" {
			sawCookie.Store(true)
		}
		w.Write([]byte(okPage))
	}))
	defer server.Close()

	tr, err := NewRestyTransport(5*time.Second, proxy.NewManager(nil, []string{"ua-test"}), zap.NewNop())
	require.NoError(t, err)

	f := NewFetcher(tr, testPolicy(1))
	require.NoError(t, f.WarmUp(context.Background(), server.URL+"/"))

	out := f.Get(context.Background(), server.URL+"/dr-ana")
	require.True(t, out.OK())
	assert.Equal(t, okPage, out.Content)
	assert.Equal(t, http.StatusOK, out.StatusCode)
	assert.True(t, sawCookie.Load())
}

func TestRestyTransport_RetriesAgainstServer(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) <= 2 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(okPage))
	}))
	defer server.Close()

	tr, err := NewRestyTransport(5*time.Second, nil, nil)
	require.NoError(t, err)
	sl := &recordingSleeper{}
	f := NewFetcher(tr, testPolicy(4), WithSleeper(sl))

	out := f.Get(context.Background(), server.URL+"/dr-ana")
	require.True(t, out.OK())
	assert.Equal(t, 3, out.Attempts)
	assert.EqualValues(t, 3, hits.Load())
	assert.Len(t, sl.delays, 2)
}

func TestRestyTransport_NotFound(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	tr, err := NewRestyTransport(5*time.Second, nil, nil)
	require.NoError(t, err)
	f := NewFetcher(tr, testPolicy(4), WithSleeper(&recordingSleeper{}))

	out := f.Get(context.Background(), server.URL+"/gone")
	assert.Equal(t, entity.OutcomeFatalFailure, out.Kind)
	assert.ErrorIs(t, out.Err, repository.ErrNotFound)
	assert.Equal(t, 1, out.Attempts)
}

func TestRestyTransport_ConnectionRefused(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	addr := server.URL
	server.Close()

	tr, err := NewRestyTransport(time.Second, nil, nil)
	require.NoError(t, err)
	f := NewFetcher(tr, testPolicy(2), WithSleeper(&recordingSleeper{}))

	out := f.Get(context.Background(), addr+"/dr-ana")
	assert.Equal(t, entity.OutcomeRetryableFailure, out.Kind)
	assert.ErrorIs(t, out.Err, repository.ErrTransport)
	assert.Equal(t, 2, out.Attempts)
}
