// Package dataset loads and saves the item collections nuages sizes.
//
// A dataset is a context: a map of variable names to values, usually lists of
// items. Files may be JSON or YAML. A file whose top level is a list is
// exposed under the "items" variable.
package dataset

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/nuages/nuages/pkg/cloud"
)

// DefaultKey names the variable holding a top-level list.
const DefaultKey = "items"

// Format is a serialization format.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	// FormatAuto sniffs the content: JSON when it starts with '{' or '[',
	// YAML otherwise.
	FormatAuto Format = ""
)

// FormatFromPath picks a format from a file extension.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatAuto
	}
}

// ParseFormat accepts "json", "yaml" and "yml".
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	case "", "auto":
		return FormatAuto, nil
	}
	return "", fmt.Errorf("unknown format %q (want json or yaml)", s)
}

// Decode parses data into a context.
func Decode(data []byte, f Format) (map[string]any, error) {
	if f == FormatAuto {
		f = sniff(data)
	}

	var v any
	switch f {
	case FormatJSON:
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, fmt.Errorf("parsing json: %w", err)
		}
	case FormatYAML:
		if err := yaml.Unmarshal(data, &v); err != nil {
			return nil, fmt.Errorf("parsing yaml: %w", err)
		}
	default:
		return nil, fmt.Errorf("unknown format %q", f)
	}

	switch t := v.(type) {
	case map[string]any:
		return t, nil
	case []any:
		return map[string]any{DefaultKey: t}, nil
	case nil:
		return map[string]any{}, nil
	default:
		return nil, fmt.Errorf("dataset must be a list or a mapping, got %T", v)
	}
}

// Load reads a dataset file.
func Load(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading dataset: %w", err)
	}
	ctx, err := Decode(data, FormatFromPath(path))
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}
	return ctx, nil
}

// Encode writes v in the given format. FormatAuto writes JSON.
func Encode(w io.Writer, v any, f Format) error {
	switch f {
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("encoding yaml: %w", err)
		}
		return enc.Close()
	default:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("encoding json: %w", err)
		}
		return nil
	}
}

// Save writes v to path in the format implied by its extension.
func Save(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating directory for dataset: %w", err)
	}

	var buf bytes.Buffer
	if err := Encode(&buf, v, FormatFromPath(path)); err != nil {
		return err
	}

	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("writing dataset: %w", err)
	}
	return nil
}

// Lookup resolves a dotted variable path such as "site.tags" in ctx. The
// first segment is a context key; the rest are read as fields, methods or
// map keys.
func Lookup(ctx map[string]any, path string) (any, error) {
	if path == "" {
		return nil, fmt.Errorf("empty variable name")
	}
	parts := strings.Split(path, ".")

	v, ok := ctx[parts[0]]
	if !ok {
		return nil, fmt.Errorf("variable %q is not defined", parts[0])
	}
	for i, p := range parts[1:] {
		next, err := cloud.Property(v, p)
		if err != nil {
			return nil, fmt.Errorf("resolving %q: %w", strings.Join(parts[:i+2], "."), err)
		}
		v = next
	}
	return v, nil
}

func sniff(data []byte) Format {
	trimmed := bytes.TrimLeft(data, " \t\r\n")
	if len(trimmed) > 0 && (trimmed[0] == '{' || trimmed[0] == '[') {
		return FormatJSON
	}
	return FormatYAML
}
