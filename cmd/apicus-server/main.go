package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/apicus/apicus/internal/analyzer"
	"github.com/apicus/apicus/internal/catalog"
	"github.com/apicus/apicus/internal/server"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
)

func main() {
	// Missing .env files are fine.
	_ = godotenv.Load(".env", ".env.local")

	logger := zerolog.New(os.Stderr).With().Timestamp().Str("component", "apicus-server").Logger()
	config := parseConfig(logger)
	logger = logger.Level(config.LogLevel)
	analyzer.ValidateTestModeEnv(logger)

	if err := run(config, logger); err != nil {
		logger.Fatal().Err(err).Msg("Server failed")
	}
}

func run(config Config, logger zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStore(ctx, config)
	if err != nil {
		return err
	}
	defer closeStore()

	c, err := catalog.Open(ctx, store, logger)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	srv := server.New(analyzer.New(c, logger), logger, reg)
	httpServer := &http.Server{
		Addr:              config.ListenAddr,
		Handler:           srv.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("Shutdown failed")
		}
	}()

	logger.Info().
		Str("addr", config.ListenAddr).
		Str("catalog", store.String()).
		Msg("Starting apicus server")
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("listen: %w", err)
	}
	<-shutdownDone
	logger.Info().Msg("Server stopped")
	return nil
}

func openStore(ctx context.Context, config Config) (catalog.Store, func(), error) {
	switch config.catalogSource() {
	case "postgres":
		pool, err := catalog.NewPostgresPool(ctx, config.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		return catalog.NewPostgresStore(pool, config.CatalogTable), pool.Close, nil
	case "file":
		return catalog.FileStore{Path: config.CatalogPath}, func() {}, nil
	default:
		return catalog.EmbeddedStore{}, func() {}, nil
	}
}
