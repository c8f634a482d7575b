package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	FetchAttemptsTotal *prometheus.CounterVec
	FetchOutcomesTotal *prometheus.CounterVec
	FetchDuration      *prometheus.HistogramVec

	ExtractionsTotal *prometheus.CounterVec
	WorkersBusy      prometheus.Gauge

	RunsTotal       *prometheus.CounterVec
	ProfilesTotal   *prometheus.CounterVec
	RunState        *prometheus.GaugeVec
	LastRunDuration prometheus.Gauge
}

// New registers the metrics against reg. Tests pass a fresh prometheus.NewRegistry().
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		HTTPRequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests.",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path", "status"},
		),
		FetchAttemptsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scraper_fetch_attempts_total",
				Help: "Underlying GET attempts by result.",
			},
			[]string{"result"}, // ok, transport, blocked, not_found, ...
		),
		FetchOutcomesTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scraper_fetch_outcomes_total",
				Help: "Fetch outcomes after retries.",
			},
			[]string{"outcome"},
		),
		FetchDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "scraper_fetch_duration_seconds",
				Help:    "Duration of single GET attempts.",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20},
			},
			[]string{"host"},
		),
		ExtractionsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scraper_extractions_total",
				Help: "Profile extractions by result kind.",
			},
			[]string{"kind"}, // success or an error kind
		),
		WorkersBusy: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "scraper_workers_busy",
				Help: "Extraction workers currently processing a URL.",
			},
		),
		RunsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scraper_runs_total",
				Help: "Completed runs by mode and final state.",
			},
			[]string{"mode", "state"},
		),
		ProfilesTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scraper_profiles_total",
				Help: "Profiles by run outcome.",
			},
			[]string{"outcome"}, // discovered, skipped, added, updated, failed
		),
		RunState: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "scraper_run_state",
				Help: "1 for the state the current run is in.",
			},
			[]string{"state"},
		),
		LastRunDuration: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "scraper_last_run_duration_seconds",
				Help: "Wall time of the last finished run.",
			},
		),
	}
}

// NewNop returns metrics bound to a private registry.
func NewNop() *Metrics {
	return New(prometheus.NewRegistry())
}
