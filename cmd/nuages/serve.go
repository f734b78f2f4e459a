package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/nuages/nuages/internal/api"
	"github.com/nuages/nuages/internal/logutil"
	"github.com/nuages/nuages/internal/tagstore"
	"github.com/nuages/nuages/pkg/config"
)

func newServeCmd() *cobra.Command {
	var (
		sizing     sizingFlags
		format     string
		collection string
		port       string
		logLevel   string
	)

	cmd := &cobra.Command{
		Use:   "serve <dataset>",
		Short: "Preview a dataset's tag cloud over HTTP",
		Long: `Loads a dataset into memory and serves the nuages API for it on
localhost, including an HTML page at /clouds/<collection>.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sizing.capture(cmd)
			return runServe(cmd.Context(), serveOpts{
				location:   args[0],
				sizing:     sizing,
				format:     format,
				collection: collection,
				port:       port,
				logLevel:   logLevel,
			})
		},
	}

	sizing.register(cmd)
	cmd.Flags().StringVar(&format, "format", "", "Dataset format: json or yaml (default: from extension or content)")
	cmd.Flags().StringVar(&collection, "collection", "", "Collection name (default: dataset file name)")
	cmd.Flags().StringVar(&port, "port", "", "Port to serve on (default from config)")
	cmd.Flags().StringVar(&logLevel, "log-level", "info", "Log level: trace, debug, info, warn or error")

	return cmd
}

type serveOpts struct {
	location   string
	sizing     sizingFlags
	format     string
	collection string
	port       string
	logLevel   string
}

func runServe(ctx context.Context, opts serveOpts) error {
	cfg := loadConfig()

	level, err := logutil.ParseLevel(opts.logLevel)
	if err != nil {
		return err
	}
	logger := logutil.NewLogger(os.Stderr, level)
	slog.SetDefault(logger)

	h, name, err := previewHandler(ctx, cfg, opts, logger)
	if err != nil {
		return err
	}

	port := firstNonEmpty(opts.port, cfg.Server.Port, "7700")
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           h.Routes(cfg.Server.APIKey, cfg.Server.AllowedOrigins),
		ReadHeaderTimeout: 10 * time.Second,
	}

	fmt.Fprintf(os.Stderr, "nuages preview server\n")
	fmt.Fprintf(os.Stderr, "  Dataset:    %s\n", opts.location)
	fmt.Fprintf(os.Stderr, "  Cloud:      http://localhost:%s/clouds/%s\n", port, name)
	fmt.Fprintf(os.Stderr, "  API:        http://localhost:%s/api/collections/%s/cloud\n", port, name)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
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

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// previewHandler loads the dataset into a MemoryStore and returns the API
// handler over it together with the collection name.
func previewHandler(ctx context.Context, cfg *config.Config, opts serveOpts, logger *slog.Logger) (*api.Handler, string, error) {
	data, _, err := loadDataset(ctx, opts.location, opts.format)
	if err != nil {
		return nil, "", err
	}
	c, sizing, err := opts.sizing.buildCloud(cfg, data)
	if err != nil {
		return nil, "", err
	}

	tags := make([]tagstore.TagWeight, len(c))
	for i, t := range c {
		tags[i] = tagstore.TagWeight{Label: t.Label, Weight: t.Weight}
	}

	name := tagstore.NormalizeLabel(firstNonEmpty(opts.collection, collectionName(opts.location)))
	store := api.NewMemoryStore()
	if _, err := store.AddWeights(ctx, name, tags); err != nil {
		return nil, "", fmt.Errorf("loading tags: %w", err)
	}

	h := api.NewHandler(store, api.Options{
		Cache:    api.NewCloudCache(32),
		Defaults: sizing,
		Logger:   logger,
	})
	return h, name, nil
}
