package surface

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"gonum.org/v1/gonum/floats"

	"github.com/nuages/nuages/pkg/cloud"
)

// TerminalRenderer renders a Cloud as a table with a size bar per tag.
type TerminalRenderer struct {
	// BarWidth is the width of the bar drawn for the largest size. Defaults to 30.
	BarWidth int
}

// ANSI color codes
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorBold   = "\033[1m"
	colorDim    = "\033[2m"
)

// sizeColor picks a color from where size sits in the cloud's size span.
func sizeColor(size, lo, hi float64) string {
	if noColor() {
		return ""
	}
	if hi <= lo {
		return colorGreen
	}
	switch f := (size - lo) / (hi - lo); {
	case f >= 2.0/3:
		return colorGreen
	case f >= 1.0/3:
		return colorYellow
	default:
		return colorRed
	}
}

func noColor() bool {
	_, ok := os.LookupEnv("NO_COLOR")
	return ok
}

func bold(s string) string {
	if noColor() {
		return s
	}
	return colorBold + s + colorReset
}

func dim(s string) string {
	if noColor() {
		return s
	}
	return colorDim + s + colorReset
}

func colored(s, color string) string {
	if noColor() || color == "" {
		return s
	}
	return color + s + colorReset
}

func (r *TerminalRenderer) Render(w io.Writer, c cloud.Cloud) error {
	fmt.Fprintf(w, "%s\n\n",
		bold(fmt.Sprintf("Tag cloud: %d tags, total weight %g", len(c), c.TotalWeight())))

	if len(c) == 0 {
		fmt.Fprintln(w, "No tags.")
		return nil
	}

	width := r.BarWidth
	if width <= 0 {
		width = 30
	}

	lo, hi := sizeSpan(c)

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"LABEL", "WEIGHT", "SIZE", ""})
	for _, tag := range c {
		t.AppendRow(table.Row{
			tag.Label,
			dim(fmt.Sprintf("%g", tag.Weight)),
			fmt.Sprintf("%.2f", tag.Size),
			colored(bar(tag.Size, hi, width), sizeColor(tag.Size, lo, hi)),
		})
	}
	t.AppendFooter(table.Row{"", "", "", fmt.Sprintf("sizes %.2f to %.2f", lo, hi)})
	t.Render()
	return nil
}

func sizeSpan(c cloud.Cloud) (lo, hi float64) {
	sizes := make([]float64, len(c))
	for i, tag := range c {
		sizes[i] = tag.Size
	}
	return floats.Min(sizes), floats.Max(sizes)
}

// bar draws size as a run of blocks scaled so that hi fills width.
func bar(size, hi float64, width int) string {
	if hi <= 0 || size <= 0 {
		return ""
	}
	n := int(size / hi * float64(width))
	if n < 1 {
		n = 1
	}
	return strings.Repeat("█", n)
}
