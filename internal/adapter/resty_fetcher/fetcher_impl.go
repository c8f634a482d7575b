package resty_fetcher

import (
	"context"
	"fmt"
	"time"

	"github.com/user/profile-scraper/internal/entity"
	"github.com/user/profile-scraper/internal/repository"
	"github.com/user/profile-scraper/pkg/metrics"
	"github.com/user/profile-scraper/pkg/utils"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Fetcher issues GETs through a Transport and retries retryable failures
// according to its Policy. Retry state is local to each Get call.
type Fetcher struct {
	transport Transport
	policy    Policy
	sleeper   Sleeper
	limiter   *rate.Limiter
	challenge ChallengeDetector
	onAttempt func(entity.Attempt)
	metrics   *metrics.Metrics
	logger    *zap.Logger
}

// Option configures a Fetcher.
type Option func(*Fetcher)

func WithSleeper(s Sleeper) Option {
	return func(f *Fetcher) { f.sleeper = s }
}

// WithLimiter paces every underlying attempt, shared across all callers.
func WithLimiter(l *rate.Limiter) Option {
	return func(f *Fetcher) { f.limiter = l }
}

func WithChallengeMarkers(markers []string) Option {
	return func(f *Fetcher) { f.challenge = NewChallengeDetector(markers) }
}

// WithAttemptHook is called after every attempt, from the calling goroutine.
func WithAttemptHook(fn func(entity.Attempt)) Option {
	return func(f *Fetcher) { f.onAttempt = fn }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(f *Fetcher) { f.metrics = m }
}

func WithLogger(l *zap.Logger) Option {
	return func(f *Fetcher) { f.logger = l }
}

func NewFetcher(transport Transport, policy Policy, opts ...Option) *Fetcher {
	f := &Fetcher{
		transport: transport,
		policy:    policy.normalized(),
		sleeper:   TimerSleeper{},
		limiter:   rate.NewLimiter(rate.Inf, 0),
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.metrics == nil {
		f.metrics = metrics.NewNop()
	}
	return f
}

// NewLimiter returns a limiter allowing rps requests per second; 0 means unlimited.
func NewLimiter(rps float64, burst int) *rate.Limiter {
	if rps <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(rps), burst)
}

// Get fetches url. It never panics and never returns an error directly: the
// outcome says whether the content is usable and, if not, why.
func (f *Fetcher) Get(ctx context.Context, url string) entity.FetchOutcome {
	if err := utils.ValidateHTTPURL(url); err != nil {
		f.metrics.FetchOutcomesTotal.WithLabelValues(entity.OutcomeFatalFailure.String()).Inc()
		return entity.FetchOutcome{
			Kind: entity.OutcomeFatalFailure,
			Err:  fmt.Errorf("%w: %q: %v", repository.ErrInvalidURL, url, err),
		}
	}

	sched := f.policy.newSchedule()
	host := utils.Hostname(url)

	for attempt := 1; ; attempt++ {
		if err := f.limiter.Wait(ctx); err != nil {
			return f.finish(url, entity.FetchOutcome{
				Kind:     entity.OutcomeFatalFailure,
				Err:      fmt.Errorf("%w: %w", repository.ErrCanceled, err),
				Attempts: attempt - 1,
			})
		}

		start := time.Now()
		status, body, err := f.transport.Do(ctx, url)
		f.metrics.FetchDuration.WithLabelValues(host).Observe(time.Since(start).Seconds())

		attemptErr := f.classify(ctx, status, body, err)
		f.metrics.FetchAttemptsTotal.WithLabelValues(attemptLabel(attemptErr)).Inc()

		if attemptErr == nil {
			f.observe(entity.Attempt{URL: url, Number: attempt, StatusCode: status})
			return f.finish(url, entity.FetchOutcome{
				Kind:       entity.OutcomeSuccess,
				Content:    body,
				Attempts:   attempt,
				StatusCode: status,
			})
		}

		if !repository.Retryable(attemptErr) {
			f.observe(entity.Attempt{URL: url, Number: attempt, StatusCode: status, Err: attemptErr})
			return f.finish(url, entity.FetchOutcome{
				Kind:       entity.OutcomeFatalFailure,
				Err:        attemptErr,
				Attempts:   attempt,
				StatusCode: status,
			})
		}

		if attempt >= f.policy.MaxAttempts {
			f.observe(entity.Attempt{URL: url, Number: attempt, StatusCode: status, Err: attemptErr})
			return f.finish(url, entity.FetchOutcome{
				Kind:       entity.OutcomeRetryableFailure,
				Err:        fmt.Errorf("giving up after %d attempts: %w", attempt, attemptErr),
				Attempts:   attempt,
				StatusCode: status,
			})
		}

		delay := sched.next(repository.KindOf(attemptErr) == entity.KindBlocked)
		f.observe(entity.Attempt{URL: url, Number: attempt, StatusCode: status, Err: attemptErr, Delay: delay})
		f.logger.Warn("fetch failed, retrying",
			zap.String("url", url),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", f.policy.MaxAttempts),
			zap.Duration("delay", delay),
			zap.Error(attemptErr),
		)

		if err := f.sleeper.Sleep(ctx, delay); err != nil {
			return f.finish(url, entity.FetchOutcome{
				Kind:       entity.OutcomeFatalFailure,
				Err:        fmt.Errorf("%w: %w", repository.ErrCanceled, err),
				Attempts:   attempt,
				StatusCode: status,
			})
		}
	}
}

// WarmUp requests the site root once so the cookie jar holds a session.
func (f *Fetcher) WarmUp(ctx context.Context, baseURL string) error {
	out := f.Get(ctx, baseURL)
	if !out.OK() {
		return out.Err
	}
	f.logger.Info("session warmed up", zap.String("url", baseURL))
	return nil
}

func (f *Fetcher) classify(ctx context.Context, status int, body string, err error) error {
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("%w: %w", repository.ErrCanceled, ctxErr)
		}
		return fmt.Errorf("%w: %v", repository.ErrTransport, err)
	}

	switch {
	case status >= 200 && status < 300:
		if marker, ok := f.challenge.Detect(body); ok {
			return fmt.Errorf("%w: challenge page detected (marker %q)", repository.ErrBlocked, marker)
		}
		return nil
	case status == 403 || status == 405 || status == 429:
		return fmt.Errorf("%w: status %d %s", repository.ErrBlocked, status, statusText(status))
	case status == 404 || status == 410:
		return fmt.Errorf("%w: status %d %s", repository.ErrNotFound, status, statusText(status))
	case status == 408 || status >= 500:
		return fmt.Errorf("%w: status %d %s", repository.ErrTransport, status, statusText(status))
	default:
		return fmt.Errorf("%w: status %d %s", repository.ErrUnexpectedStatus, status, statusText(status))
	}
}

func (f *Fetcher) observe(a entity.Attempt) {
	if f.onAttempt != nil {
		f.onAttempt(a)
	}
}

func (f *Fetcher) finish(url string, out entity.FetchOutcome) entity.FetchOutcome {
	f.metrics.FetchOutcomesTotal.WithLabelValues(out.Kind.String()).Inc()
	if !out.OK() {
		f.logger.Debug("fetch finished without content",
			zap.String("url", url),
			zap.String("outcome", out.Kind.String()),
			zap.Int("attempts", out.Attempts),
			zap.Error(out.Err),
		)
	}
	return out
}

func attemptLabel(err error) string {
	if err == nil {
		return "ok"
	}
	return string(repository.KindOf(err))
}

var _ repository.PageFetcher = (*Fetcher)(nil)
