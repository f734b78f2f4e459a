package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nuages/nuages/internal/storage"
	"github.com/nuages/nuages/pkg/cloud"
	"github.com/nuages/nuages/pkg/config"
	"github.com/nuages/nuages/pkg/dataset"
)

// sizingFlags are the flags shared by every command that computes a cloud.
// Unset flags fall back to the config file.
type sizingFlags struct {
	key        string
	labelProp  string
	weightProp string
	minSize    float64
	maxSize    float64
	mode       string
	minSet     bool
	maxSet     bool
}

func (f *sizingFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.key, "key", dataset.DefaultKey, "Dataset variable holding the items (dotted path)")
	cmd.Flags().StringVar(&f.labelProp, "label", "", "Item property used as label (default from config)")
	cmd.Flags().StringVar(&f.weightProp, "weight", "", "Item property used as weight (default from config)")
	cmd.Flags().Float64Var(&f.minSize, "min", 0, "Smallest size (default from config)")
	cmd.Flags().Float64Var(&f.maxSize, "max", 0, "Largest size (default from config)")
	cmd.Flags().StringVar(&f.mode, "mode", "", "Scaling mode: lin or log (default from config)")
}

// capture records which size flags were given explicitly.
func (f *sizingFlags) capture(cmd *cobra.Command) {
	f.minSet = cmd.Flags().Changed("min")
	f.maxSet = cmd.Flags().Changed("max")
}

func (f sizingFlags) options(cfg *config.Config) (cloud.Options, error) {
	opts, err := cfg.CloudOptions()
	if err != nil {
		return cloud.Options{}, fmt.Errorf("config: %w", err)
	}
	if f.minSet {
		opts.MinSize = f.minSize
	}
	if f.maxSet {
		opts.MaxSize = f.maxSize
	}
	if f.mode != "" {
		m, err := cloud.ParseMode(f.mode)
		if err != nil {
			return cloud.Options{}, err
		}
		opts.Mode = m
	}
	return opts, opts.Validate()
}

// buildCloud reads label and weight from the items at f.key and sizes them.
func (f sizingFlags) buildCloud(cfg *config.Config, data map[string]any) (cloud.Cloud, cloud.Options, error) {
	opts, err := f.options(cfg)
	if err != nil {
		return nil, opts, err
	}
	items, err := dataset.Lookup(data, f.key)
	if err != nil {
		return nil, opts, err
	}
	c, err := cloud.FromItems(items,
		firstNonEmpty(f.labelProp, cfg.Cloud.LabelProperty, "label"),
		firstNonEmpty(f.weightProp, cfg.Cloud.WeightProperty, "weight"),
		nil)
	if err != nil {
		return nil, opts, err
	}
	if err := c.Compute(opts); err != nil {
		return nil, opts, err
	}
	return c, opts, nil
}

// loadDataset fetches a dataset from a path or URL and decodes it.
func loadDataset(ctx context.Context, location, format string) (map[string]any, []byte, error) {
	f, err := dataset.ParseFormat(format)
	if err != nil {
		return nil, nil, err
	}
	if f == dataset.FormatAuto {
		f = dataset.FormatFromPath(location)
	}

	raw, err := storage.Fetch(ctx, location)
	if err != nil {
		return nil, nil, fmt.Errorf("loading dataset: %w", err)
	}
	data, err := dataset.Decode(raw, f)
	if err != nil {
		return nil, nil, fmt.Errorf("loading %s: %w", location, err)
	}
	return data, raw, nil
}

func orderCloud(c cloud.Cloud, order string) error {
	switch order {
	case "rank":
		c.Rank()
	case "label":
		c.Sort()
	case "input", "":
	default:
		return fmt.Errorf("unknown order %q (want rank, label or input)", order)
	}
	return nil
}

func loadConfig() *config.Config {
	wd, err := os.Getwd()
	if err != nil {
		return config.DefaultConfig()
	}
	cfg, err := config.LoadNearest(wd)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to load config: %v\n", err)
		return config.DefaultConfig()
	}
	return cfg
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
