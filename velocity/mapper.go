package velocity

import (
	"fmt"
	"math"

	"github.com/janoschsimon/Digital-Director/score"
)

// Regions holds the configured velocity mapping regions.
type Regions struct {
	VeryLowThreshold float64
	VeryLowMin       float64
	LowThreshold     float64
	LowSlope         float64
	MidThreshold     float64
	MidRange         float64
	HighRange        float64
}

// DefaultRegions returns the stock mapping.
func DefaultRegions() Regions {
	return Regions{
		VeryLowThreshold: 20,
		VeryLowMin:       30,
		LowThreshold:     40,
		LowSlope:         1.5,
		MidThreshold:     80,
		MidRange:         40,
		HighRange:        35,
	}
}

// Mapper converts raw dynamic values into MIDI velocities. The region
// formulas are anchored at each other's end points so the map is continuous.
type Mapper struct {
	r        Regions
	min, max float64
	roles    map[score.Role]float64

	lowTop float64
	midTop float64
}

// NewMapper checks region ordering and derives the breakpoints.
func NewMapper(r Regions, min, max float64, roleFactors map[score.Role]float64) (*Mapper, error) {
	if min < 0 || max > 127 || min > max {
		return nil, fmt.Errorf("dynamic_range [%g,%g] must lie within 0..127 with min <= max", min, max)
	}
	if !(r.VeryLowThreshold < r.LowThreshold && r.LowThreshold < r.MidThreshold && r.MidThreshold < 127) {
		return nil, fmt.Errorf("velocity thresholds must increase: %g < %g < %g < 127", r.VeryLowThreshold, r.LowThreshold, r.MidThreshold)
	}
	if r.LowSlope < 0 || r.MidRange < 0 || r.HighRange < 0 {
		return nil, fmt.Errorf("velocity slope and ranges must be >= 0")
	}
	roles := make(map[score.Role]float64, len(roleFactors))
	for k, v := range roleFactors {
		if v <= 0 {
			return nil, fmt.Errorf("role factor for %s must be > 0", k)
		}
		roles[k] = v
	}
	m := &Mapper{r: r, min: min, max: max, roles: roles}
	m.lowTop = r.VeryLowMin + (r.LowThreshold-r.VeryLowThreshold)*r.LowSlope
	m.midTop = m.lowTop + r.MidRange
	return m, nil
}

// Raw applies the region formulas without role weighting, rounding or clamping.
func (m *Mapper) Raw(v float64) float64 {
	r := m.r
	switch {
	case v < r.VeryLowThreshold:
		return r.VeryLowMin
	case v < r.LowThreshold:
		return r.VeryLowMin + (v-r.VeryLowThreshold)*r.LowSlope
	case v < r.MidThreshold:
		return m.lowTop + (v-r.LowThreshold)/(r.MidThreshold-r.LowThreshold)*r.MidRange
	}
	return m.midTop + (v-r.MidThreshold)/(127-r.MidThreshold)*r.HighRange
}

// RoleFactor returns the weighting for a role, 1 when unconfigured.
func (m *Mapper) RoleFactor(role score.Role) float64 {
	if f, ok := m.roles[role]; ok {
		return f
	}
	return 1
}

// Map returns the final velocity for a raw value played by role. The result
// always lies within the dynamic range.
func (m *Mapper) Map(v float64, role score.Role) int {
	out := m.Raw(v) * m.RoleFactor(role)
	out = math.Max(m.min, math.Min(m.max, math.Round(out)))
	return int(out)
}

// Range returns the dynamic range bounds.
func (m *Mapper) Range() (min, max float64) { return m.min, m.max }
