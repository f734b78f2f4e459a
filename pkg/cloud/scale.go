package cloud

import (
	"fmt"
	"math"

	"golang.org/x/exp/constraints"
	"gonum.org/v1/gonum/floats"
)

// Number is any built-in integer or floating point type.
type Number interface {
	constraints.Integer | constraints.Float
}

// FindRange returns the minimum and maximum of values.
// Non-positive values take part in the range like any other.
func FindRange(values []float64) (Range, error) {
	if len(values) == 0 {
		return Range{}, ErrEmpty
	}
	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return Range{}, fmt.Errorf("cloud: weight #%d is not a finite number (%v)", i, v)
		}
	}
	return Range{Min: floats.Min(values), Max: floats.Max(values)}, nil
}

// Scale maps a single weight into [opts.MinSize, opts.MaxSize].
//
// Weights <= 0 always map to 0. When the range collapses (all weights equal
// in linear mode, or a maximum of 1 or less in log mode) positive weights map
// to MaxSize. Positive weights never leave the target range; in log mode a
// weight between 0 and 1 would otherwise fall below MinSize.
func Scale(value float64, r Range, opts Options) float64 {
	if value <= 0 {
		return 0
	}

	var ratio float64
	switch opts.Mode {
	case ModeLog:
		logMax := math.Log10(r.Max)
		if logMax <= 0 {
			return opts.MaxSize
		}
		ratio = math.Log10(value) / logMax
	default:
		if r.IsSingleValue() {
			return opts.MaxSize
		}
		ratio = (value - r.Min) / r.Span()
	}

	out := ratio*(opts.MaxSize-opts.MinSize) + opts.MinSize
	return clamp(out, opts.MinSize, opts.MaxSize)
}

// Sizes computes the size of every weight against the range of all of them.
// An empty input yields an empty result.
func Sizes[N Number](weights []N, opts Options) ([]float64, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if len(weights) == 0 {
		return []float64{}, nil
	}

	values := make([]float64, len(weights))
	for i, w := range weights {
		values[i] = float64(w)
	}

	r, err := FindRange(values)
	if err != nil {
		return nil, err
	}

	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = Scale(v, r, opts)
	}
	return out, nil
}

func clamp[T constraints.Ordered](v, lo, hi T) T {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
