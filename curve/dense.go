package curve

import (
	"fmt"
	"math"

	approx "github.com/cwbudde/algo-approx"
	algofft "github.com/cwbudde/algo-fft"
)

// Marking is a sparse dynamic value at a tick, e.g. from score dynamics.
type Marking struct {
	Tick  int64
	Value float64
}

// InterpolateOptions configures Interpolate.
type InterpolateOptions struct {
	Resolution int64
	// Steepness and Midpoint shape the logistic ease between markings.
	Steepness       float64
	Midpoint        float64
	SmoothingPasses int
	// Markings spanning less than MinSpan are stretched onto Range.
	MinSpan float64
	Range   Range
	Filter  Thresholds
}

// DefaultInterpolateOptions returns the stock dense dynamics settings.
func DefaultInterpolateOptions() InterpolateOptions {
	return InterpolateOptions{
		Resolution:      10,
		Steepness:       10,
		Midpoint:        0.5,
		SmoothingPasses: 2,
		MinSpan:         50,
		Range:           Range{Min: 30, Max: 115},
		Filter:          DefaultThresholds(),
	}
}

var smoothingKernel = []float32{0.2, 0.6, 0.2}

// Interpolate builds a filtered dense curve from sparse markings. Ticks must
// be strictly increasing.
func Interpolate(markings []Marking, opts InterpolateOptions) ([]Point, error) {
	for i := 1; i < len(markings); i++ {
		if markings[i].Tick <= markings[i-1].Tick {
			return nil, fmt.Errorf("marking %d at tick %d not after tick %d", i, markings[i].Tick, markings[i-1].Tick)
		}
	}
	if len(markings) < 2 {
		out := make([]Point, len(markings))
		for i, m := range markings {
			out[i] = Point{Tick: m.Tick, Value: math.Round(opts.Range.Clamp(m.Value))}
		}
		return out, nil
	}
	if opts.Resolution <= 0 {
		opts.Resolution = 10
	}

	values := expand(markings, opts)

	var ticks []int64
	var dense []float32
	var pinned []bool
	for i := 0; i < len(markings)-1; i++ {
		t0, t1 := markings[i].Tick, markings[i+1].Tick
		v0, v1 := values[i], values[i+1]
		for t := t0; t < t1; t += opts.Resolution {
			e := ease(float64(t-t0)/float64(t1-t0), opts.Steepness, opts.Midpoint)
			ticks = append(ticks, t)
			dense = append(dense, float32(v0+(v1-v0)*e))
			pinned = append(pinned, t == t0)
		}
	}
	last := len(markings) - 1
	ticks = append(ticks, markings[last].Tick)
	dense = append(dense, float32(values[last]))
	pinned = append(pinned, true)

	for pass := 0; pass < opts.SmoothingPasses; pass++ {
		var err error
		if dense, err = smooth(dense, pinned); err != nil {
			return nil, err
		}
	}

	out := make([]Point, len(dense))
	for i, v := range dense {
		out[i] = Point{Tick: ticks[i], Value: math.Round(opts.Range.Clamp(float64(v)))}
	}
	return Filter(out, opts.Filter), nil
}

// expand stretches a narrow set of marking values onto the full range.
func expand(markings []Marking, opts InterpolateOptions) []float64 {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, m := range markings {
		lo = math.Min(lo, m.Value)
		hi = math.Max(hi, m.Value)
	}
	out := make([]float64, len(markings))
	span := hi - lo
	for i, m := range markings {
		out[i] = m.Value
		if span > 0 && span < opts.MinSpan {
			out[i] = opts.Range.Min + (m.Value-lo)/span*(opts.Range.Max-opts.Range.Min)
		}
	}
	return out
}

// ease maps x in [0,1] through a logistic curve normalised to hit 0 and 1.
func ease(x, k, x0 float64) float64 {
	if k <= 0 {
		return x
	}
	s := func(v float64) float64 {
		return 1 / (1 + float64(approx.FastExp(float32(-k*(v-x0)))))
	}
	lo, hi := s(0), s(1)
	if hi-lo < 1e-9 {
		return x
	}
	return math.Max(0, math.Min(1, (s(x)-lo)/(hi-lo)))
}

// smooth convolves with a short kernel, leaving pinned samples untouched.
func smooth(values []float32, pinned []bool) ([]float32, error) {
	if len(values) < 3 {
		return values, nil
	}
	full := make([]float32, len(values)+len(smoothingKernel)-1)
	if err := algofft.ConvolveReal(full, values, smoothingKernel); err != nil {
		return nil, fmt.Errorf("smooth: %w", err)
	}
	out := make([]float32, len(values))
	for i := range values {
		if pinned[i] || i == 0 || i == len(values)-1 {
			out[i] = values[i]
			continue
		}
		out[i] = full[i+1]
	}
	return out, nil
}
