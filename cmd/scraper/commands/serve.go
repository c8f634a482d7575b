package commands

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/user/profile-scraper/internal/delivery/http/handler"
	"github.com/user/profile-scraper/internal/delivery/http/router"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serves the status API and Prometheus metrics; runs are started over HTTP.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		a, err := newApp(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		apiHandler := handler.NewHandler(cmd.Context(), a.status, a.orchestrator, a.logger.Named("api"))
		server := newServer(":"+cfg.ServerPort, router.New(apiHandler, a.metrics, a.registry, a.logger.Named("http")))

		errCh := make(chan error, 1)
		go func() {
			a.logger.Info("Starting server", zap.String("port", cfg.ServerPort))
			errCh <- server.ListenAndServe()
		}()

		select {
		case err := <-errCh:
			if !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		case <-cmd.Context().Done():
		}

		a.logger.Info("Shutting down server")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			return err
		}
		// The store is closed on return, so a background run must finish
		// persisting first. Its context is already canceled, so only the
		// persisting stage remains.
		if a.orchestrator.Running() {
			a.logger.Info("Waiting for the active run to persist its results")
		}
		return a.orchestrator.Wait(context.Background())
	},
}

func newServer(addr string, h http.Handler) *http.Server {
	return &http.Server{
		Addr:         addr,
		Handler:      h,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: router.RequestTimeout + 5*time.Second,
		IdleTimeout:  120 * time.Second,
	}
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
