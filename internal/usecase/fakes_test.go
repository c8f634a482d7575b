package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/user/profile-scraper/internal/entity"
	"github.com/user/profile-scraper/internal/repository"
)

// fakeFetcher serves each URL's own address as its content, so the fake
// parser can look pages up by URL.
type fakeFetcher struct {
	mu       sync.Mutex
	calls    map[string]int
	failures map[string]error // url -> terminal error
	before   func(ctx context.Context, url string)
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{calls: map[string]int{}, failures: map[string]error{}}
}

func (f *fakeFetcher) Get(ctx context.Context, url string) entity.FetchOutcome {
	if f.before != nil {
		f.before(ctx, url)
	}
	f.mu.Lock()
	f.calls[url]++
	err := f.failures[url]
	f.mu.Unlock()

	if ctx.Err() != nil {
		return entity.FetchOutcome{Kind: entity.OutcomeFatalFailure, Err: fmt.Errorf("%w: %w", repository.ErrCanceled, ctx.Err()), Attempts: 1}
	}
	if err != nil {
		kind := entity.OutcomeFatalFailure
		if repository.Retryable(err) {
			kind = entity.OutcomeRetryableFailure
		}
		return entity.FetchOutcome{Kind: kind, Err: err, Attempts: 1}
	}
	return entity.FetchOutcome{Kind: entity.OutcomeSuccess, Content: url, Attempts: 1, StatusCode: 200}
}

func (f *fakeFetcher) count(url string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[url]
}

func (f *fakeFetcher) fetched() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.calls))
	for u := range f.calls {
		out = append(out, u)
	}
	sort.Strings(out)
	return out
}

type listing struct {
	summaries []entity.ProfileSummary
	hint      int
}

type fakeParser struct {
	listings  map[string]listing // page url -> listing
	badPages  map[string]bool    // profile urls that do not parse
	listCalls int
	mu        sync.Mutex
}

func newFakeParser() *fakeParser {
	return &fakeParser{listings: map[string]listing{}, badPages: map[string]bool{}}
}

func (p *fakeParser) ParseListing(html, pageURL string) ([]entity.ProfileSummary, int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.listCalls++
	l, ok := p.listings[html]
	if !ok {
		return nil, 0, nil
	}
	return l.summaries, l.hint, nil
}

func (p *fakeParser) ParseProfile(html string) (entity.ProfileFields, error) {
	p.mu.Lock()
	bad := p.badPages[html]
	p.mu.Unlock()
	if bad {
		return entity.ProfileFields{}, fmt.Errorf("%w: no profile name", repository.ErrParse)
	}
	name := html[strings.LastIndex(html, "/")+1:]
	return entity.ProfileFields{Name: name, PhoneNumbers: []string{"11 98765-4321"}}, nil
}

type fakeStore struct {
	mu        sync.Mutex
	records   map[string]*entity.ProfileRecord
	upserts   int
	failNext  int // number of upserts to fail before succeeding
	alwaysErr error
	pingErr   error
	existsErr error
}

func newFakeStore(known ...string) *fakeStore {
	s := &fakeStore{records: map[string]*entity.ProfileRecord{}}
	for _, u := range known {
		s.records[u] = &entity.ProfileRecord{ProfileURL: u, Name: "known"}
	}
	return s
}

func (s *fakeStore) Exists(ctx context.Context, url string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.existsErr != nil {
		return false, s.existsErr
	}
	_, ok := s.records[url]
	return ok, nil
}

func (s *fakeStore) AllKnownURLs(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	urls := make([]string, 0, len(s.records))
	for u := range s.records {
		urls = append(urls, u)
	}
	sort.Strings(urls)
	return urls, nil
}

func (s *fakeStore) Upsert(ctx context.Context, rec *entity.ProfileRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.upserts++
	if s.alwaysErr != nil {
		return s.alwaysErr
	}
	if s.failNext > 0 {
		s.failNext--
		return fmt.Errorf("%w: database is locked", repository.ErrStorage)
	}
	cp := *rec
	s.records[rec.ProfileURL] = &cp
	return nil
}

func (s *fakeStore) FindByURL(ctx context.Context, url string) (*entity.ProfileRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[url]
	if !ok {
		return nil, repository.ErrProfileNotFound
	}
	return rec, nil
}

func (s *fakeStore) Count(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records), nil
}

func (s *fakeStore) Ping(ctx context.Context) error { return s.pingErr }

func (s *fakeStore) Close() error { return nil }

type fakeLedger struct {
	mu      sync.Mutex
	entries map[string]*entity.FailedURL
	deleted []string
	listErr error
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{entries: map[string]*entity.FailedURL{}}
}

func (l *fakeLedger) SaveOrUpdate(ctx context.Context, f *entity.FailedURL) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	cp := *f
	if prev, ok := l.entries[f.URL]; ok {
		cp.FailureCount = prev.FailureCount + 1
	} else {
		cp.FailureCount = 1
	}
	l.entries[f.URL] = &cp
	return nil
}

func (l *fakeLedger) List(ctx context.Context, limit int) ([]*entity.FailedURL, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.listErr != nil {
		return nil, l.listErr
	}
	var out []*entity.FailedURL
	for _, f := range l.entries {
		if len(out) == limit {
			break
		}
		out = append(out, f)
	}
	return out, nil
}

func (l *fakeLedger) Delete(ctx context.Context, url string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.entries, url)
	l.deleted = append(l.deleted, url)
	return nil
}

var errBoom = errors.New("boom")
