package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/nuages/nuages/pkg/dataset"
	"github.com/nuages/nuages/pkg/directive"
)

func newApplyCmd() *cobra.Command {
	var (
		dataPath  string
		format    string
		outPath   string
		outputFmt string
	)

	cmd := &cobra.Command{
		Use:   "apply <directive>",
		Short: "Run a compute_tag_cloud directive against a dataset",
		Long: `Runs a directive of the form

  compute_tag_cloud data count_property size_property min_size max_size mode

against the variables of a dataset and writes the annotated dataset.
The leading compute_tag_cloud keyword may be omitted.`,
		Example: `  nuages apply --data tags.yaml "items count font_size 10 55 log"`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runApply(cmd.Context(), cmd.OutOrStdout(), applyOpts{
				directive: args[0],
				dataPath:  dataPath,
				format:    format,
				outPath:   outPath,
				outputFmt: outputFmt,
			})
		},
	}

	cmd.Flags().StringVar(&dataPath, "data", "", "Dataset path or URL (required)")
	cmd.Flags().StringVar(&format, "format", "", "Dataset format: json or yaml (default: from extension or content)")
	cmd.Flags().StringVar(&outPath, "out", "", "Write the annotated dataset to this file instead of stdout")
	cmd.Flags().StringVar(&outputFmt, "output", "json", "Stdout format: json or yaml")
	_ = cmd.MarkFlagRequired("data")

	return cmd
}

type applyOpts struct {
	directive string
	dataPath  string
	format    string
	outPath   string
	outputFmt string
}

func runApply(ctx context.Context, w io.Writer, opts applyOpts) error {
	d, err := directive.Parse(opts.directive)
	if err != nil {
		return err
	}

	data, _, err := loadDataset(ctx, opts.dataPath, opts.format)
	if err != nil {
		return err
	}

	if err := d.Apply(data); err != nil {
		return err
	}

	if opts.outPath != "" {
		if err := dataset.Save(opts.outPath, data); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Wrote %s\n", opts.outPath)
		return nil
	}

	f, err := dataset.ParseFormat(opts.outputFmt)
	if err != nil {
		return err
	}
	return dataset.Encode(w, data, f)
}
