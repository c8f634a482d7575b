package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/user/profile-scraper/internal/entity"
	"github.com/user/profile-scraper/internal/repository"
	"github.com/user/profile-scraper/pkg/metrics"
)

var (
	ErrRunInProgress = errors.New("a run is already in progress")
	ErrStoreUnusable = errors.New("profile store is unusable")
)

// Runner starts scraping runs and remembers the last one.
type Runner interface {
	// Run executes a run to completion. The error is non-nil only when the
	// run could not discover its pages or the store became unusable.
	Run(ctx context.Context, mode entity.Mode) (*entity.RunReport, error)
	// Start launches a run in the background and returns its id.
	Start(ctx context.Context, mode entity.Mode) (string, error)
	LastReport() (*entity.RunReport, bool)
	Running() bool
}

// Warmer primes a session before the first request of a run.
type Warmer interface {
	WarmUp(ctx context.Context, baseURL string) error
}

// OrchestratorParams wires an Orchestrator. Failures, Warmer, Clock,
// Metrics, Logger and OnTransition are optional.
type OrchestratorParams struct {
	Store      repository.ProfileRepository
	Failures   repository.FailedURLRepository
	Discoverer *PaginationDiscoverer
	Extractor  *Extractor
	Warmer     Warmer

	SearchURL string
	BaseURL   string

	Clock        func() time.Time
	Metrics      *metrics.Metrics
	Logger       *zap.Logger
	OnTransition func(runID string, from, to entity.State)
}

// Orchestrator drives a run through Discovering, Collecting, Extracting and
// Persisting. Only one run executes at a time.
type Orchestrator struct {
	store      repository.ProfileRepository
	failures   repository.FailedURLRepository
	discoverer *PaginationDiscoverer
	extractor  *Extractor
	warmer     Warmer
	searchURL  string
	baseURL    string

	now          func() time.Time
	metrics      *metrics.Metrics
	logger       *zap.Logger
	onTransition func(runID string, from, to entity.State)

	mu      sync.Mutex
	running bool
	done    chan struct{} // closed when the current run releases the lock
	last    *entity.RunReport
}

func NewOrchestrator(p OrchestratorParams) *Orchestrator {
	o := &Orchestrator{
		store:        p.Store,
		failures:     p.Failures,
		discoverer:   p.Discoverer,
		extractor:    p.Extractor,
		warmer:       p.Warmer,
		searchURL:    p.SearchURL,
		baseURL:      p.BaseURL,
		now:          p.Clock,
		metrics:      p.Metrics,
		logger:       p.Logger,
		onTransition: p.OnTransition,
	}
	if o.now == nil {
		o.now = time.Now
	}
	if o.metrics == nil {
		o.metrics = metrics.NewNop()
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}
	return o
}

func (o *Orchestrator) Run(ctx context.Context, mode entity.Mode) (*entity.RunReport, error) {
	rep, err := o.begin(mode)
	if err != nil {
		return nil, err
	}
	defer o.release()

	err = o.execute(ctx, rep)
	return copyReport(rep), err
}

// Start returns ErrRunInProgress when a run is executing. The background run
// is bound to ctx, not to the caller's request.
func (o *Orchestrator) Start(ctx context.Context, mode entity.Mode) (string, error) {
	rep, err := o.begin(mode)
	if err != nil {
		return "", err
	}
	go func() {
		defer o.release()
		if err := o.execute(ctx, rep); err != nil {
			o.logger.Error("background run failed", zap.String("run_id", rep.RunID), zap.Error(err))
		}
	}()
	return rep.RunID, nil
}

func (o *Orchestrator) LastReport() (*entity.RunReport, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.last == nil {
		return nil, false
	}
	return copyReport(o.last), true
}

// Wait blocks until the current run, if any, has persisted its results and
// released the lock.
func (o *Orchestrator) Wait(ctx context.Context) error {
	o.mu.Lock()
	done := o.done
	o.mu.Unlock()
	if done == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (o *Orchestrator) Running() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.running
}

func (o *Orchestrator) begin(mode entity.Mode) (*entity.RunReport, error) {
	if mode != entity.ModeNew && mode != entity.ModeUpdate {
		return nil, fmt.Errorf("unknown mode %q", mode)
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.running {
		return nil, ErrRunInProgress
	}
	o.running = true
	o.done = make(chan struct{})

	rep := &entity.RunReport{
		RunID:     uuid.NewString(),
		Mode:      mode,
		State:     entity.StateIdle,
		StartedAt: o.now().UTC(),
	}
	if mode == entity.ModeNew {
		rep.SearchURL = o.searchURL
	}
	return rep, nil
}

func (o *Orchestrator) release() {
	o.mu.Lock()
	o.running = false
	close(o.done)
	o.mu.Unlock()
}

func (o *Orchestrator) execute(ctx context.Context, rep *entity.RunReport) error {
	log := o.logger.With(zap.String("run_id", rep.RunID), zap.String("mode", string(rep.Mode)))
	log.Info("run started", zap.String("search_url", rep.SearchURL))

	if o.warmer != nil && o.baseURL != "" {
		if err := o.warmer.WarmUp(ctx, o.baseURL); err != nil {
			log.Warn("session warm-up failed", zap.String("url", o.baseURL), zap.Error(err))
		}
	}

	var (
		urls []string
		err  error
	)
	switch rep.Mode {
	case entity.ModeNew:
		urls, err = o.collectNew(ctx, rep, log)
	case entity.ModeUpdate:
		urls, err = o.collectKnown(ctx, rep, log)
	}
	if err != nil {
		return o.fail(rep, log, err)
	}

	rep.Attempted = len(urls)
	o.transition(rep, log, entity.StateExtracting)
	results := o.extractor.ExtractAll(ctx, urls)

	o.transition(rep, log, entity.StatePersisting)
	if err := o.persist(context.WithoutCancel(ctx), rep, log, results); err != nil {
		return o.fail(rep, log, err)
	}

	o.transition(rep, log, entity.StateDone)
	o.finish(rep, log)
	return nil
}

// collectNew discovers the pages, walks them in order and keeps the profile
// URLs the store does not know yet.
func (o *Orchestrator) collectNew(ctx context.Context, rep *entity.RunReport, log *zap.Logger) ([]string, error) {
	o.transition(rep, log, entity.StateDiscovering)
	disc, err := o.discoverer.Discover(ctx, o.searchURL)
	if err != nil {
		return nil, err
	}
	rep.Pages = disc.Pages

	o.transition(rep, log, entity.StateCollecting)
	seen := make(map[string]struct{})
	var found []string
	collect := func(summaries []entity.ProfileSummary) {
		for _, s := range summaries {
			if _, ok := seen[s.ProfileURL]; ok {
				continue
			}
			seen[s.ProfileURL] = struct{}{}
			found = append(found, s.ProfileURL)
		}
	}

	collect(disc.FirstPage)
	for page := 2; page <= disc.Pages; page++ {
		if ctx.Err() != nil {
			log.Warn("collecting interrupted", zap.Int("page", page), zap.Int("pages", disc.Pages))
			break
		}
		pageURL, summaries, err := o.discoverer.FetchPage(ctx, o.searchURL, page)
		if err != nil {
			log.Warn("listing page skipped", zap.String("url", pageURL), zap.Int("page", page), zap.Error(err))
			rep.FailedPages = append(rep.FailedPages, entity.FailedItem{
				URL:    pageURL,
				Kind:   repository.KindOf(err),
				Reason: err.Error(),
			})
			continue
		}
		log.Debug("listing page collected", zap.Int("page", page), zap.Int("profiles", len(summaries)))
		collect(summaries)
	}
	rep.Discovered = len(found)

	// store lookups are local and must not be cut short by shutdown
	lookupCtx := context.WithoutCancel(ctx)
	fresh := make([]string, 0, len(found))
	for _, u := range found {
		exists, err := o.store.Exists(lookupCtx, u)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrStoreUnusable, err)
		}
		if exists {
			rep.Skipped++
			continue
		}
		fresh = append(fresh, u)
	}

	log.Info("collecting finished",
		zap.Int("pages", rep.Pages),
		zap.Int("failed_pages", len(rep.FailedPages)),
		zap.Int("discovered", rep.Discovered),
		zap.Int("skipped", rep.Skipped),
	)
	return fresh, nil
}

func (o *Orchestrator) collectKnown(ctx context.Context, rep *entity.RunReport, log *zap.Logger) ([]string, error) {
	urls, err := o.store.AllKnownURLs(context.WithoutCancel(ctx))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStoreUnusable, err)
	}
	rep.Discovered = len(urls)
	log.Info("known profiles loaded", zap.Int("profiles", len(urls)))
	return urls, nil
}

// persist writes every record and reports every error. A failed upsert is
// retried once; if it fails again and the store does not answer a ping, the
// run is aborted.
func (o *Orchestrator) persist(ctx context.Context, rep *entity.RunReport, log *zap.Logger, results map[string]ExtractionResult) error {
	urls := make([]string, 0, len(results))
	for u := range results {
		urls = append(urls, u)
	}
	sort.Strings(urls)

	for _, u := range urls {
		res := results[u]
		if res.Err != nil {
			o.recordFailure(ctx, rep, log, res.Err)
			continue
		}

		if err := o.upsert(ctx, log, res.Record); err != nil {
			if pingErr := o.store.Ping(ctx); pingErr != nil {
				return fmt.Errorf("%w: %w (ping: %v)", ErrStoreUnusable, err, pingErr)
			}
			o.recordFailure(ctx, rep, log, newExtractionError(u, err, 0, 0))
			continue
		}

		if rep.Mode == entity.ModeNew {
			rep.Added++
		} else {
			rep.Updated++
		}
		if o.failures != nil {
			if err := o.failures.Delete(ctx, u); err != nil {
				log.Warn("failed to clear failure ledger entry", zap.String("url", u), zap.Error(err))
			}
		}
	}
	return nil
}

func (o *Orchestrator) upsert(ctx context.Context, log *zap.Logger, rec *entity.ProfileRecord) error {
	err := o.store.Upsert(ctx, rec)
	if err == nil {
		return nil
	}
	log.Warn("upsert failed, retrying once", zap.String("url", rec.ProfileURL), zap.Error(err))
	return o.store.Upsert(ctx, rec)
}

func (o *Orchestrator) recordFailure(ctx context.Context, rep *entity.RunReport, log *zap.Logger, xerr *ExtractionError) {
	rep.Failed++
	rep.FailedURLs = append(rep.FailedURLs, entity.FailedItem{
		URL:    xerr.URL,
		Kind:   xerr.Kind,
		Reason: xerr.Err.Error(),
	})

	if o.failures == nil {
		return
	}
	err := o.failures.SaveOrUpdate(ctx, &entity.FailedURL{
		URL:            xerr.URL,
		Kind:           xerr.Kind,
		Reason:         xerr.Err.Error(),
		HTTPStatusCode: xerr.StatusCode,
		Attempts:       xerr.Attempts,
		LastAttemptAt:  o.now().UTC(),
	})
	if err != nil {
		log.Warn("failed to record failure", zap.String("url", xerr.URL), zap.Error(err))
	}
}

func (o *Orchestrator) transition(rep *entity.RunReport, log *zap.Logger, to entity.State) {
	from := rep.State
	rep.State = to
	log.Info("run state changed", zap.String("from", string(from)), zap.String("to", string(to)))

	o.metrics.RunState.Reset()
	o.metrics.RunState.WithLabelValues(string(to)).Set(1)
	if o.onTransition != nil {
		o.onTransition(rep.RunID, from, to)
	}
}

func (o *Orchestrator) fail(rep *entity.RunReport, log *zap.Logger, err error) error {
	rep.Error = err.Error()
	o.transition(rep, log, entity.StateFailed)
	o.finish(rep, log)
	return err
}

func (o *Orchestrator) finish(rep *entity.RunReport, log *zap.Logger) {
	rep.FinishedAt = o.now().UTC()

	o.metrics.RunsTotal.WithLabelValues(string(rep.Mode), string(rep.State)).Inc()
	o.metrics.ProfilesTotal.WithLabelValues("discovered").Add(float64(rep.Discovered))
	o.metrics.ProfilesTotal.WithLabelValues("skipped").Add(float64(rep.Skipped))
	o.metrics.ProfilesTotal.WithLabelValues("added").Add(float64(rep.Added))
	o.metrics.ProfilesTotal.WithLabelValues("updated").Add(float64(rep.Updated))
	o.metrics.ProfilesTotal.WithLabelValues("failed").Add(float64(rep.Failed))
	o.metrics.LastRunDuration.Set(rep.FinishedAt.Sub(rep.StartedAt).Seconds())

	log.Info("run finished",
		zap.String("state", string(rep.State)),
		zap.Int("pages", rep.Pages),
		zap.Int("discovered", rep.Discovered),
		zap.Int("skipped", rep.Skipped),
		zap.Int("attempted", rep.Attempted),
		zap.Int("added", rep.Added),
		zap.Int("updated", rep.Updated),
		zap.Int("failed", rep.Failed),
		zap.Duration("duration", rep.FinishedAt.Sub(rep.StartedAt)),
	)

	o.mu.Lock()
	o.last = copyReport(rep)
	o.mu.Unlock()
}

func copyReport(rep *entity.RunReport) *entity.RunReport {
	cp := *rep
	cp.FailedPages = append([]entity.FailedItem(nil), rep.FailedPages...)
	cp.FailedURLs = append([]entity.FailedItem(nil), rep.FailedURLs...)
	return &cp
}

var _ Runner = (*Orchestrator)(nil)
