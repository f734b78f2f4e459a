package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/nuages/nuages/pkg/surface"
)

func newSizeCmd() *cobra.Command {
	var (
		sizing    sizingFlags
		format    string
		order     string
		outputFmt string
		limit     int
		title     string
		unit      string
		linkPref  string
	)

	cmd := &cobra.Command{
		Use:   "size <dataset>",
		Short: "Compute a tag cloud from a dataset and print it",
		Long: `Loads a JSON or YAML dataset from a path, http(s)://, s3:// or gs://
location, sizes its items by weight and renders the cloud.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sizing.capture(cmd)
			return runSize(cmd.Context(), cmd.OutOrStdout(), sizeOpts{
				location:  args[0],
				sizing:    sizing,
				format:    format,
				order:     order,
				outputFmt: outputFmt,
				limit:     limit,
				title:     title,
				unit:      unit,
				linkPref:  linkPref,
			})
		},
	}

	sizing.register(cmd)
	cmd.Flags().StringVar(&format, "format", "", "Dataset format: json or yaml (default: from extension or content)")
	cmd.Flags().StringVar(&order, "order", "rank", "Tag order: rank, label or input")
	cmd.Flags().StringVar(&outputFmt, "output", "text", "Output format: text, json or html")
	cmd.Flags().IntVar(&limit, "limit", 0, "Keep only the heaviest N tags (0 keeps all)")
	cmd.Flags().StringVar(&title, "title", "", "Heading for html output")
	cmd.Flags().StringVar(&unit, "unit", "px", "CSS unit for html output")
	cmd.Flags().StringVar(&linkPref, "link-prefix", "", "Link every tag in html output to this prefix + label")

	return cmd
}

type sizeOpts struct {
	location  string
	sizing    sizingFlags
	format    string
	order     string
	outputFmt string
	limit     int
	title     string
	unit      string
	linkPref  string
}

func runSize(ctx context.Context, w io.Writer, opts sizeOpts) error {
	cfg := loadConfig()

	data, _, err := loadDataset(ctx, opts.location, opts.format)
	if err != nil {
		return err
	}

	c, _, err := opts.sizing.buildCloud(cfg, data)
	if err != nil {
		return err
	}

	if opts.limit > 0 && len(c) > opts.limit {
		// Resize against the surviving tags only.
		c.Rank()
		c = c[:opts.limit]
		sizingOpts, err := opts.sizing.options(cfg)
		if err != nil {
			return err
		}
		if err := c.Compute(sizingOpts); err != nil {
			return err
		}
	}
	if err := orderCloud(c, opts.order); err != nil {
		return err
	}

	r, err := surface.New(opts.outputFmt)
	if err != nil {
		return err
	}
	if h, ok := r.(*surface.HTMLRenderer); ok {
		h.Title = opts.title
		h.Unit = opts.unit
		h.LinkPrefix = opts.linkPref
	}

	fmt.Fprintf(os.Stderr, "Sized %d tags from %s\n", len(c), opts.location)
	return r.Render(w, c)
}
