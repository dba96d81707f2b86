package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"rebalance-route-service/internal/api"
	"rebalance-route-service/internal/bootstrap"
	"rebalance-route-service/internal/config"
	"rebalance-route-service/internal/platform/obs"
)

// main is the application composition root.
// It wires concrete adapters (snapshot store, distance provider, caches) behind
// ports and starts the HTTP server.
func main() {
	logger := obs.NewLogger("server")

	if err := godotenv.Load(); err != nil {
		logger.Info().Msg("no .env file found (using environment variables)")
	}

	cfg, err := config.Load(config.Get("CONFIG_PATH", ""))
	if err != nil {
		logger.Fatal().Err(err).Msg("load config")
	}
	obs.SetLevel(cfg.Logging.Level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repo, closeRepo, err := bootstrap.OpenSnapshots(cfg.Snapshot)
	if err != nil {
		logger.Fatal().Err(err).Msg("open snapshots")
	}
	defer closeRepo()

	provider, closeProvider, err := bootstrap.NewProvider(ctx, cfg.Distance, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("distance provider")
	}
	defer closeProvider()

	defaults, err := bootstrap.PlanDefaults(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("plan defaults")
	}
	router := api.NewRouter(logger, repo, provider, defaults)

	// Timeouts are tuned for cold-cache route planning (external API latency).
	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("shutdown")
		}
	}()

	logger.Info().Str("addr", srv.Addr).Str("provider", cfg.Distance.Provider).Msg("server listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal().Err(err).Msg("listen")
	}
	logger.Info().Msg("server stopped")
}
