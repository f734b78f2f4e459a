// Command nuagesd is the nuages platform service.
// It serves computed tag clouds for collections stored in Postgres, accepts
// weight updates, and archives ingested batches to blob storage.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nuages/nuages/internal/api"
	"github.com/nuages/nuages/internal/logutil"
	"github.com/nuages/nuages/internal/platform"
	"github.com/nuages/nuages/internal/storage"
	"github.com/nuages/nuages/internal/tagstore"
)

func main() {
	loadEnv(".env.local", ".env")

	cfg, err := loadConfig()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	logger := logutil.NewLogger(os.Stderr, cfg.LogLevel)
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("nuagesd exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg config, logger *slog.Logger) error {
	db, err := platform.Open(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := platform.AutoMigrate(db); err != nil {
		return err
	}
	if version, _, err := platform.SchemaVersion(db); err == nil {
		logger.Info("database ready", "schema_version", version)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	blobs, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		return err
	}
	defer storage.Close(blobs)

	h := api.NewHandler(tagstore.NewService(db), api.Options{
		Blobs:    blobs,
		Cache:    api.NewCloudCache(cfg.CacheSize),
		Defaults: cfg.Cloud,
		Logger:   logger,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           h.Routes(cfg.APIKey, cfg.AllowedOrigins),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting nuagesd", "port", cfg.Port, "storage", cfg.Storage.Backend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
