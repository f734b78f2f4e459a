// Package main provides the nuages CLI entry point.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:   "nuages",
		Short: "Weighted tag clouds from JSON and YAML datasets",
		Long: `nuages sizes the items of a dataset by weight, linearly or
logarithmically, and renders the result as a table, JSON or HTML.`,
		Version:      version,
		SilenceUsage: true,
	}

	rootCmd.AddCommand(
		newSizeCmd(),
		newApplyCmd(),
		newRenderCmd(),
		newPushCmd(),
		newServeCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
