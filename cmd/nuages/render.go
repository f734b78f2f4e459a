package main

import (
	"context"
	"fmt"
	htmltemplate "html/template"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/spf13/cobra"

	"github.com/nuages/nuages/pkg/directive"
)

func newRenderCmd() *cobra.Command {
	var (
		dataPath string
		format   string
		outPath  string
		html     bool
	)

	cmd := &cobra.Command{
		Use:   "render <template>",
		Short: "Execute a Go template with the tag cloud functions",
		Long: `Executes a text/template (or html/template for .html files and --html)
with the dataset as its data. Templates can call

  {{ computeTagCloud .items "count" "size" 10 100 "lin" }}
  {{ range tagCloud .items "name" "count" 10 100 "log" }}...{{ end }}`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRender(cmd.Context(), cmd.OutOrStdout(), renderOpts{
				templatePath: args[0],
				dataPath:     dataPath,
				format:       format,
				outPath:      outPath,
				html:         html,
			})
		},
	}

	cmd.Flags().StringVar(&dataPath, "data", "", "Dataset path or URL (required)")
	cmd.Flags().StringVar(&format, "format", "", "Dataset format: json or yaml (default: from extension or content)")
	cmd.Flags().StringVar(&outPath, "out", "", "Write output to this file instead of stdout")
	cmd.Flags().BoolVar(&html, "html", false, "Use html/template escaping")
	_ = cmd.MarkFlagRequired("data")

	return cmd
}

type renderOpts struct {
	templatePath string
	dataPath     string
	format       string
	outPath      string
	html         bool
}

type executor interface {
	Execute(w io.Writer, data any) error
}

func runRender(ctx context.Context, w io.Writer, opts renderOpts) error {
	src, err := os.ReadFile(opts.templatePath)
	if err != nil {
		return fmt.Errorf("reading template: %w", err)
	}

	name := filepath.Base(opts.templatePath)
	useHTML := opts.html || strings.HasSuffix(name, ".html") || strings.HasSuffix(name, ".html.tmpl")

	var tmpl executor
	if useHTML {
		tmpl, err = htmltemplate.New(name).Funcs(directive.HTMLFuncMap()).Parse(string(src))
	} else {
		tmpl, err = template.New(name).Funcs(directive.FuncMap()).Parse(string(src))
	}
	if err != nil {
		return fmt.Errorf("parsing template: %w", err)
	}

	data, _, err := loadDataset(ctx, opts.dataPath, opts.format)
	if err != nil {
		return err
	}

	if opts.outPath != "" {
		f, err := os.Create(opts.outPath)
		if err != nil {
			return fmt.Errorf("creating output: %w", err)
		}
		defer f.Close()
		w = f
	}

	if err := tmpl.Execute(w, data); err != nil {
		return fmt.Errorf("rendering %s: %w", name, err)
	}
	return nil
}
