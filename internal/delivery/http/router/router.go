package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/user/profile-scraper/internal/delivery/http/handler"
	"github.com/user/profile-scraper/internal/delivery/http/middleware"
	"github.com/user/profile-scraper/pkg/metrics"
)

// RequestTimeout bounds every API request. The HTTP server's write timeout
// must exceed it so the timeout response can still be written.
const RequestTimeout = 10 * time.Second

func New(h *handler.Handler, m *metrics.Metrics, gatherer prometheus.Gatherer, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logging(logger))
	r.Use(middleware.Metrics(m))
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(RequestTimeout))

	// Prometheus metrics endpoint
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.HandleHealthCheck)
		r.Get("/profiles", h.HandleGetProfile)
		r.Get("/failures", h.HandleListFailures)
		r.Post("/runs", h.HandleStartRun)
		r.Get("/runs/last", h.HandleLastRun)
	})

	return r
}
