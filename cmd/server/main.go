package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/claimflow/backend/internal/app"
	"github.com/claimflow/backend/internal/config"
	httpapi "github.com/claimflow/backend/internal/http"
	"github.com/claimflow/backend/internal/telemetry"
)

var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	zerolog.TimeFieldFormat = time.RFC3339
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	logger := log.Level(level).With().Str("service", "claimflow").Logger()

	ctx := context.Background()
	shutdownTracing, err := telemetry.Init(ctx, cfg.OTelEnabled, "claimflow", version, nil)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to init telemetry")
	}

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to start")
	}
	defer a.Close()

	router := httpapi.Router(cfg, a.Store, a.Appeals, a.Documents, logger)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info().Str("port", cfg.Port).Str("validator", cfg.Validator).Msg("server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctxShutdown)
	if err := a.Appeals.Wait(ctxShutdown); err != nil {
		logger.Warn().Err(err).Msg("background validations still running at shutdown")
	}
	if err := shutdownTracing(ctxShutdown); err != nil {
		logger.Warn().Err(err).Msg("telemetry shutdown")
	}
	logger.Info().Msg("server stopped")
}
