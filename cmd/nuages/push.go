package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/nuages/nuages/internal/storage"
	"github.com/nuages/nuages/internal/tagstore"
	"github.com/nuages/nuages/pkg/cloud"
	"github.com/nuages/nuages/pkg/config"
)

func newPushCmd() *cobra.Command {
	var (
		sizing     sizingFlags
		format     string
		collection string
		server     string
		apiKey     string
		replace    bool
	)

	cmd := &cobra.Command{
		Use:   "push <dataset>",
		Short: "Publish a dataset and its computed cloud",
		Long: `Without --server, stores the raw dataset and its computed cloud in the
configured blob storage (local, s3 or gcs). With --server, sends the tag
weights to a nuagesd instance instead.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sizing.capture(cmd)
			return runPush(cmd.Context(), pushOpts{
				location:   args[0],
				sizing:     sizing,
				format:     format,
				collection: collection,
				server:     server,
				apiKey:     apiKey,
				replace:    replace,
			})
		},
	}

	sizing.register(cmd)
	cmd.Flags().StringVar(&format, "format", "", "Dataset format: json or yaml (default: from extension or content)")
	cmd.Flags().StringVar(&collection, "collection", "", "Collection name (default: dataset file name)")
	cmd.Flags().StringVar(&server, "server", "", "nuagesd base URL, e.g. http://localhost:8080")
	cmd.Flags().StringVar(&apiKey, "api-key", "", "API key for --server (default from config)")
	cmd.Flags().BoolVar(&replace, "replace", false, "With --server, replace weights instead of adding to them")

	return cmd
}

type pushOpts struct {
	location   string
	sizing     sizingFlags
	format     string
	collection string
	server     string
	apiKey     string
	replace    bool
}

func runPush(ctx context.Context, opts pushOpts) error {
	cfg := loadConfig()

	data, raw, err := loadDataset(ctx, opts.location, opts.format)
	if err != nil {
		return err
	}
	c, _, err := opts.sizing.buildCloud(cfg, data)
	if err != nil {
		return err
	}

	name := firstNonEmpty(opts.collection, collectionName(opts.location))
	if opts.server != "" {
		return pushToServer(ctx, opts, firstNonEmpty(opts.apiKey, cfg.Server.APIKey), name, c)
	}
	return pushToStorage(ctx, cfg.Storage, name, raw, c)
}

func pushToStorage(ctx context.Context, sc config.StorageConfig, name string, raw []byte, c cloud.Cloud) error {
	client, err := storage.New(ctx, sc)
	if err != nil {
		return fmt.Errorf("opening storage: %w", err)
	}
	defer storage.Close(client)

	id := uuid.New().String()
	if err := client.PutDataset(ctx, name, id, raw); err != nil {
		return fmt.Errorf("storing dataset: %w", err)
	}

	body, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encoding cloud: %w", err)
	}
	if err := client.PutCloud(ctx, name, id, body); err != nil {
		return fmt.Errorf("storing cloud: %w", err)
	}

	fmt.Fprintf(os.Stderr, "Pushed %s/%s (%d tags) to %s storage\n", name, id, len(c), firstNonEmpty(sc.Backend, "local"))
	return nil
}

func pushToServer(ctx context.Context, opts pushOpts, apiKey, name string, c cloud.Cloud) error {
	tags := make([]tagstore.TagWeight, len(c))
	for i, t := range c {
		tags[i] = tagstore.TagWeight{Label: t.Label, Weight: t.Weight}
	}
	mode := "add"
	if opts.replace {
		mode = "set"
	}

	var result struct {
		Updated int    `json:"updated"`
		BatchID string `json:"batch_id"`
	}
	var apiErr struct {
		Error string `json:"error"`
	}

	req := resty.New().R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(map[string]any{"mode": mode, "tags": tags}).
		SetResult(&result).
		SetError(&apiErr)
	if apiKey != "" {
		req.SetHeader("X-API-Key", apiKey)
	}

	endpoint := strings.TrimRight(opts.server, "/") + "/api/v1/collections/" + url.PathEscape(name) + "/tags"
	resp, err := req.Post(endpoint)
	if err != nil {
		return fmt.Errorf("pushing to %s: %w", opts.server, err)
	}
	if resp.IsError() {
		return fmt.Errorf("pushing to %s: %s: %s", opts.server, resp.Status(), apiErr.Error)
	}

	fmt.Fprintf(os.Stderr, "Pushed %d tags to %s (collection %s)\n", result.Updated, opts.server, name)
	return nil
}

// collectionName derives a collection name from a dataset location.
func collectionName(location string) string {
	base := location
	if u, err := url.Parse(location); err == nil && u.Path != "" {
		base = u.Path
	}
	base = filepath.Base(base)
	for ext := filepath.Ext(base); ext != ""; ext = filepath.Ext(base) {
		base = strings.TrimSuffix(base, ext)
	}
	return base
}
