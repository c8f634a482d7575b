package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/user/profile-scraper/internal/entity"
	"github.com/user/profile-scraper/internal/repository"
	"github.com/user/profile-scraper/pkg/metrics"
)

const DefaultWorkers = 8

// ExtractionError is a terminal failure for one profile URL.
type ExtractionError struct {
	URL        string
	Kind       entity.ErrorKind
	Attempts   int
	StatusCode int
	Err        error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("%s (%s): %v", e.URL, e.Kind, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

func newExtractionError(url string, err error, attempts, status int) *ExtractionError {
	return &ExtractionError{
		URL:        url,
		Kind:       repository.KindOf(err),
		Attempts:   attempts,
		StatusCode: status,
		Err:        err,
	}
}

// ExtractionResult holds exactly one of Record or Err.
type ExtractionResult struct {
	Record *entity.ProfileRecord
	Err    *ExtractionError
}

// Extractor runs a fixed pool of workers that fetch and parse profile pages.
type Extractor struct {
	fetcher repository.PageFetcher
	parser  repository.PageParser
	workers int
	now     func() time.Time
	metrics *metrics.Metrics
	logger  *zap.Logger
}

type ExtractorOption func(*Extractor)

// WithClock sets the source of LastScrapedAt timestamps.
func WithClock(now func() time.Time) ExtractorOption {
	return func(e *Extractor) { e.now = now }
}

func WithExtractorMetrics(m *metrics.Metrics) ExtractorOption {
	return func(e *Extractor) { e.metrics = m }
}

func WithExtractorLogger(l *zap.Logger) ExtractorOption {
	return func(e *Extractor) { e.logger = l }
}

func NewExtractor(fetcher repository.PageFetcher, parser repository.PageParser, workers int, opts ...ExtractorOption) *Extractor {
	if workers < 1 {
		workers = DefaultWorkers
	}
	e := &Extractor{
		fetcher: fetcher,
		parser:  parser,
		workers: workers,
		now:     time.Now,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.metrics == nil {
		e.metrics = metrics.NewNop()
	}
	return e
}

type extraction struct {
	url    string
	result ExtractionResult
}

// ExtractAll returns one result per distinct input URL, in no particular
// order. When ctx is canceled workers stop taking new URLs and every URL left
// unattempted is reported with a canceled error.
func (e *Extractor) ExtractAll(ctx context.Context, urls []string) map[string]ExtractionResult {
	unique := dedupe(urls)
	results := make(map[string]ExtractionResult, len(unique))
	if len(unique) == 0 {
		return results
	}

	workers := min(e.workers, len(unique))
	tasks := make(chan string, workers*2)
	done := make(chan extraction, len(unique))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go e.worker(ctx, tasks, done, &wg)
	}

	go func() {
		defer close(tasks)
		for _, u := range unique {
			select {
			case <-ctx.Done():
				return
			case tasks <- u:
			}
		}
	}()

	wg.Wait()
	close(done)

	for d := range done {
		results[d.url] = d.result
	}
	for _, u := range unique {
		if _, ok := results[u]; !ok {
			err := fmt.Errorf("%w: %w", repository.ErrCanceled, context.Cause(ctx))
			results[u] = ExtractionResult{Err: newExtractionError(u, err, 0, 0)}
			e.metrics.ExtractionsTotal.WithLabelValues(string(entity.KindCanceled)).Inc()
		}
	}
	return results
}

func (e *Extractor) worker(ctx context.Context, tasks <-chan string, done chan<- extraction, wg *sync.WaitGroup) {
	defer wg.Done()
	for url := range tasks {
		if ctx.Err() != nil {
			continue // drained; reported as canceled by ExtractAll
		}
		done <- extraction{url: url, result: e.extractOne(ctx, url)}
	}
}

func (e *Extractor) extractOne(ctx context.Context, url string) ExtractionResult {
	e.metrics.WorkersBusy.Inc()
	defer e.metrics.WorkersBusy.Dec()

	out := e.fetcher.Get(ctx, url)
	if !out.OK() {
		err := out.Err
		if err == nil {
			err = fmt.Errorf("fetch ended with %s", out.Kind)
		}
		return e.failed(newExtractionError(url, err, out.Attempts, out.StatusCode))
	}

	fields, err := e.parser.ParseProfile(out.Content)
	if err != nil {
		if !errors.Is(err, repository.ErrParse) {
			err = fmt.Errorf("%w: %v", repository.ErrParse, err)
		}
		return e.failed(newExtractionError(url, err, out.Attempts, out.StatusCode))
	}

	rec := entity.NewProfileRecord(url, fields, e.now())
	e.metrics.ExtractionsTotal.WithLabelValues("success").Inc()
	e.logger.Debug("profile extracted", zap.String("url", url), zap.Int("attempts", out.Attempts))
	return ExtractionResult{Record: rec}
}

func (e *Extractor) failed(xerr *ExtractionError) ExtractionResult {
	e.metrics.ExtractionsTotal.WithLabelValues(string(xerr.Kind)).Inc()
	e.logger.Warn("profile extraction failed",
		zap.String("url", xerr.URL),
		zap.String("kind", string(xerr.Kind)),
		zap.Int("attempts", xerr.Attempts),
		zap.Error(xerr.Err),
	)
	return ExtractionResult{Err: xerr}
}

func dedupe(urls []string) []string {
	seen := make(map[string]struct{}, len(urls))
	out := make([]string, 0, len(urls))
	for _, u := range urls {
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		out = append(out, u)
	}
	return out
}
