// Package surface defines output rendering for computed tag clouds.
// Implementations handle different output targets: terminal, JSON, HTML.
package surface

import (
	"fmt"
	"io"

	"github.com/nuages/nuages/pkg/cloud"
)

// Renderer produces formatted output from a sized cloud.
type Renderer interface {
	// Render writes the formatted cloud to the writer.
	Render(w io.Writer, c cloud.Cloud) error
}

// New returns the renderer for a format name: text, json or html.
func New(format string) (Renderer, error) {
	switch format {
	case "", "text":
		return &TerminalRenderer{}, nil
	case "json":
		return &JSONRenderer{}, nil
	case "html":
		return &HTMLRenderer{}, nil
	default:
		return nil, fmt.Errorf("unknown format %q (want text, json or html)", format)
	}
}
