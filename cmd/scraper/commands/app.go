package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/user/profile-scraper/internal/adapter/goquery_parser"
	"github.com/user/profile-scraper/internal/adapter/postgres"
	redis_adapter "github.com/user/profile-scraper/internal/adapter/redis"
	"github.com/user/profile-scraper/internal/adapter/resty_fetcher"
	"github.com/user/profile-scraper/internal/adapter/sqlite"
	"github.com/user/profile-scraper/internal/proxy"
	"github.com/user/profile-scraper/internal/repository"
	"github.com/user/profile-scraper/internal/usecase"
	"github.com/user/profile-scraper/pkg/config"
	"github.com/user/profile-scraper/pkg/logger"
	"github.com/user/profile-scraper/pkg/metrics"
)

// app holds everything a command needs, built once from configuration.
type app struct {
	cfg      *config.Config
	logger   *zap.Logger
	registry *prometheus.Registry
	metrics  *metrics.Metrics

	store    repository.ProfileRepository
	failures repository.FailedURLRepository

	orchestrator *usecase.Orchestrator
	status       usecase.StatusReader

	closers []func()
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(envFile)
	if err != nil {
		return nil, err
	}
	flags := cmd.Flags()
	if flags.Changed("search-url") {
		cfg.SearchURL = searchURL
	}
	if flags.Changed("db") {
		cfg.StoreDriver = "sqlite"
		cfg.DBPath = dbPath
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	log, err := logger.New(os.Stderr, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	a := &app{
		cfg:      cfg,
		logger:   log,
		registry: reg,
		metrics:  metrics.New(reg),
	}

	if err := a.openStore(ctx); err != nil {
		a.Close()
		return nil, err
	}
	a.openLedger(ctx)

	fetcher, err := a.newFetcher()
	if err != nil {
		a.Close()
		return nil, err
	}
	parser := goquery_parser.NewDirectoryParser()

	a.orchestrator = usecase.NewOrchestrator(usecase.OrchestratorParams{
		Store:      a.store,
		Failures:   a.failures,
		Discoverer: usecase.NewPaginationDiscoverer(fetcher, parser, log.Named("discoverer")),
		Extractor: usecase.NewExtractor(fetcher, parser, cfg.Workers,
			usecase.WithExtractorMetrics(a.metrics),
			usecase.WithExtractorLogger(log.Named("extractor")),
		),
		Warmer:    fetcher,
		SearchURL: cfg.SearchURL,
		BaseURL:   cfg.BaseURL,
		Metrics:   a.metrics,
		Logger:    log.Named("orchestrator"),
	})
	a.status = usecase.NewStatusReader(a.store, a.failures)
	return a, nil
}

func (a *app) openStore(ctx context.Context) error {
	switch a.cfg.StoreDriver {
	case "postgres":
		pool, err := postgres.Open(ctx, a.cfg.PostgresURL)
		if err != nil {
			return err
		}
		a.store = postgres.NewProfileRepo(pool)
		a.failures = postgres.NewFailedURLRepo(pool)
		a.logger.Info("PostgreSQL connection pool established")
	default:
		db, err := sqlite.Open(ctx, a.cfg.DBPath)
		if err != nil {
			return err
		}
		a.store = sqlite.NewProfileRepo(db)
		a.failures = sqlite.NewFailedURLRepo(db)
		a.logger.Info("SQLite store opened", zap.String("path", a.cfg.DBPath))
	}
	a.closers = append(a.closers, func() { a.store.Close() })
	return nil
}

// openLedger swaps the store-backed ledger for Redis when configured. An
// unreachable Redis only costs the ledger, so the store ledger stays in place.
func (a *app) openLedger(ctx context.Context) {
	if a.cfg.FailureLedger != "redis" {
		return
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     a.cfg.RedisAddr,
		Password: a.cfg.RedisPassword,
		DB:       a.cfg.RedisDB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		a.logger.Warn("Unable to connect to Redis, keeping the store failure ledger", zap.String("addr", a.cfg.RedisAddr), zap.Error(err))
		rdb.Close()
		return
	}
	a.failures = redis_adapter.NewFailedURLRepo(rdb, a.cfg.FailureTTL())
	a.closers = append(a.closers, func() { rdb.Close() })
	a.logger.Info("Redis connection established", zap.String("addr", a.cfg.RedisAddr))
}

func (a *app) newFetcher() (*resty_fetcher.Fetcher, error) {
	proxies := proxy.NewManager(a.cfg.ProxyList(), a.cfg.UserAgentList())
	transport, err := resty_fetcher.NewRestyTransport(a.cfg.RequestTimeout(), proxies, a.logger.Named("resty"))
	if err != nil {
		return nil, err
	}

	policy := resty_fetcher.Policy{
		MaxAttempts:       a.cfg.MaxAttempts,
		InitialDelay:      a.cfg.RetryInitialDelay(),
		MaxDelay:          a.cfg.RetryMaxDelay(),
		Multiplier:        a.cfg.RetryMultiplier,
		Jitter:            a.cfg.RetryJitter,
		BlockedMultiplier: a.cfg.BlockedMultiplier,
	}
	return resty_fetcher.NewFetcher(transport, policy,
		resty_fetcher.WithLimiter(resty_fetcher.NewLimiter(a.cfg.RequestsPerSecond, a.cfg.RequestBurst)),
		resty_fetcher.WithChallengeMarkers(a.cfg.ChallengeMarkerList()),
		resty_fetcher.WithMetrics(a.metrics),
		resty_fetcher.WithLogger(a.logger.Named("fetcher")),
	), nil
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.logger.Sync()
}
