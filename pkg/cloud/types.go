// Package cloud computes tag cloud sizes. It rescales the numeric weight of
// each item in a collection into a target size range, either linearly or
// logarithmically, and writes the result back onto the item.
//
// Sizing is a two-pass operation over the whole collection: the first pass
// finds the weight range, the second applies the scaling formula. Running it
// again on its own output does not give the same sizes back; the sizes depend
// on the range of whatever is fed in.
package cloud

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/maruel/natural"
	"gonum.org/v1/gonum/floats"
)

var (
	// ErrEmpty is returned when a range is requested over no values.
	ErrEmpty = errors.New("cloud: empty collection")
	// ErrInvalidOptions wraps every Options validation failure.
	ErrInvalidOptions = errors.New("cloud: invalid options")
)

// Mode selects the scaling formula.
type Mode string

const (
	ModeLinear Mode = "lin"
	ModeLog    Mode = "log"
)

// ParseMode accepts "lin", "linear", "log" and "logarithmic" in any case.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "lin", "linear":
		return ModeLinear, nil
	case "log", "logarithmic":
		return ModeLog, nil
	default:
		return "", fmt.Errorf("%w: unknown mode %q (want lin or log)", ErrInvalidOptions, s)
	}
}

// Range is the observed minimum and maximum weight of a collection.
type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Span returns Max - Min.
func (r Range) Span() float64 {
	return r.Max - r.Min
}

// IsSingleValue reports whether every weight in the collection was equal.
func (r Range) IsSingleValue() bool {
	return r.Max == r.Min
}

// Options is the target size range and scaling mode.
type Options struct {
	MinSize float64 `json:"min_size" yaml:"min_size"`
	MaxSize float64 `json:"max_size" yaml:"max_size"`
	Mode    Mode    `json:"mode" yaml:"mode"`
}

// DefaultOptions sizes into 10..100 linearly.
func DefaultOptions() Options {
	return Options{MinSize: 10, MaxSize: 100, Mode: ModeLinear}
}

// Validate checks that sizes are finite, 0 <= MinSize <= MaxSize and the
// mode is known.
func (o Options) Validate() error {
	for _, v := range []float64{o.MinSize, o.MaxSize} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: size bounds must be finite", ErrInvalidOptions)
		}
	}
	if o.MinSize < 0 {
		return fmt.Errorf("%w: min size %g is negative", ErrInvalidOptions, o.MinSize)
	}
	if o.MinSize > o.MaxSize {
		return fmt.Errorf("%w: min size %g exceeds max size %g", ErrInvalidOptions, o.MinSize, o.MaxSize)
	}
	if o.Mode != ModeLinear && o.Mode != ModeLog {
		return fmt.Errorf("%w: unknown mode %q", ErrInvalidOptions, o.Mode)
	}
	return nil
}

// Tag is a single labelled entry of a cloud.
type Tag struct {
	Label  string  `json:"label"`
	Weight float64 `json:"weight"`
	Size   float64 `json:"size"`
}

// Cloud is an ordered list of tags.
type Cloud []*Tag

// Weights returns the weight of every tag, in order.
func (c Cloud) Weights() []float64 {
	out := make([]float64, len(c))
	for i, t := range c {
		out[i] = t.Weight
	}
	return out
}

// TotalWeight is the sum of all weights.
func (c Cloud) TotalWeight() float64 {
	return floats.Sum(c.Weights())
}

// Compute sets Size on every tag from the weights of the whole cloud.
func (c Cloud) Compute(opts Options) error {
	sizes, err := Sizes(c.Weights(), opts)
	if err != nil {
		return err
	}
	for i, t := range c {
		t.Size = sizes[i]
	}
	return nil
}

// Rank orders tags by weight, heaviest first. Ties keep natural label order.
func (c Cloud) Rank() {
	sort.SliceStable(c, func(i, j int) bool {
		if c[i].Weight != c[j].Weight {
			return c[i].Weight > c[j].Weight
		}
		return natural.Less(c[i].Label, c[j].Label)
	})
}

// Sort orders tags by label using natural ordering ("tag2" before "tag10").
func (c Cloud) Sort() {
	sort.SliceStable(c, func(i, j int) bool {
		return natural.Less(c[i].Label, c[j].Label)
	})
}
