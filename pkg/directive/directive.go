// Package directive exposes tag cloud sizing to templates.
//
// The directive form is
//
//	compute_tag_cloud data weight_property size_property min_size max_size mode
//
// It resolves data in a template context, sizes every item from its
// weight_property and stores the result in size_property. The same operation
// is available to text/template and html/template as the computeTagCloud
// function, which renders as the empty string.
package directive

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/nuages/nuages/pkg/cloud"
	"github.com/nuages/nuages/pkg/dataset"
)

// Name is the directive keyword.
const Name = "compute_tag_cloud"

// SyntaxError reports a malformed directive.
type SyntaxError struct {
	Directive string
	Msg       string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%s: %s", e.Directive, e.Msg)
}

// Directive is a parsed compute_tag_cloud invocation.
type Directive struct {
	Data       string
	WeightProp string
	SizeProp   string
	Options    cloud.Options
}

// Parse reads a directive. The leading keyword is optional.
func Parse(s string) (*Directive, error) {
	bits := strings.Fields(s)
	if len(bits) > 0 && bits[0] == Name {
		bits = bits[1:]
	}
	if len(bits) != 6 {
		return nil, &SyntaxError{
			Directive: Name,
			Msg:       fmt.Sprintf("requires 6 arguments: data, count_property, new_property, min_size, max_size and mode (got %d)", len(bits)),
		}
	}

	minSize, err := strconv.ParseFloat(bits[3], 64)
	if err != nil {
		return nil, &SyntaxError{Directive: Name, Msg: fmt.Sprintf("min_size %q is not a number", bits[3])}
	}
	maxSize, err := strconv.ParseFloat(bits[4], 64)
	if err != nil {
		return nil, &SyntaxError{Directive: Name, Msg: fmt.Sprintf("max_size %q is not a number", bits[4])}
	}
	mode, err := cloud.ParseMode(bits[5])
	if err != nil {
		return nil, &SyntaxError{Directive: Name, Msg: fmt.Sprintf("mode must be lin or log, got %q", bits[5])}
	}

	d := &Directive{
		Data:       bits[0],
		WeightProp: bits[1],
		SizeProp:   bits[2],
		Options:    cloud.Options{MinSize: minSize, MaxSize: maxSize, Mode: mode},
	}
	if err := d.Options.Validate(); err != nil {
		return nil, &SyntaxError{Directive: Name, Msg: err.Error()}
	}
	return d, nil
}

// Apply sizes the collection named by Data in ctx, in place.
func (d *Directive) Apply(ctx map[string]any) error {
	items, err := dataset.Lookup(ctx, d.Data)
	if err != nil {
		return fmt.Errorf("%s: %w", Name, err)
	}
	if err := cloud.Annotate(items, d.WeightProp, d.SizeProp, d.Options, nil); err != nil {
		return fmt.Errorf("%s %s: %w", Name, d.Data, err)
	}
	return nil
}

// String renders the directive back to its textual form.
func (d *Directive) String() string {
	return fmt.Sprintf("%s %s %s %s %s %s %s", Name, d.Data, d.WeightProp, d.SizeProp,
		strconv.FormatFloat(d.Options.MinSize, 'g', -1, 64),
		strconv.FormatFloat(d.Options.MaxSize, 'g', -1, 64),
		d.Options.Mode)
}
