package curve

import "fmt"

// Spec is a named control-point curve. TimePoints are fractions of the
// shaped duration; ValueFactors multiply the base level at those points.
type Spec struct {
	Name         string
	TimePoints   []float64
	ValueFactors []float64
}

// Validate checks that points are strictly increasing in [0,1] and that both
// slices have the same non-zero length.
func (s Spec) Validate() error {
	if len(s.TimePoints) == 0 {
		return fmt.Errorf("%s: time_points must not be empty", s.Name)
	}
	if len(s.TimePoints) != len(s.ValueFactors) {
		return fmt.Errorf("%s: time_points has %d entries, value_factors has %d", s.Name, len(s.TimePoints), len(s.ValueFactors))
	}
	for i, t := range s.TimePoints {
		if t < 0 || t > 1 {
			return fmt.Errorf("%s: time_points[%d]=%g outside [0,1]", s.Name, i, t)
		}
		if i > 0 && t <= s.TimePoints[i-1] {
			return fmt.Errorf("%s: time_points[%d]=%g not greater than %g", s.Name, i, t, s.TimePoints[i-1])
		}
		if s.ValueFactors[i] <= 0 {
			return fmt.Errorf("%s: value_factors[%d] must be > 0", s.Name, i)
		}
	}
	return nil
}

// ValueAt interpolates the factor at frac. Before the first point the factor
// is 1; after the last point the last factor holds.
func (s Spec) ValueAt(frac float64) float64 {
	n := len(s.TimePoints)
	if n == 0 || frac < s.TimePoints[0] {
		return 1
	}
	if frac >= s.TimePoints[n-1] {
		return s.ValueFactors[n-1]
	}
	for i := 1; i < n; i++ {
		if frac < s.TimePoints[i] {
			t0, t1 := s.TimePoints[i-1], s.TimePoints[i]
			v0, v1 := s.ValueFactors[i-1], s.ValueFactors[i]
			return v0 + (v1-v0)*(frac-t0)/(t1-t0)
		}
	}
	return s.ValueFactors[n-1]
}
