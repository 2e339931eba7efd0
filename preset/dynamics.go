package preset

import (
	"fmt"
	"sort"

	"github.com/janoschsimon/Digital-Director/curve"
	"github.com/janoschsimon/Digital-Director/score"
	"github.com/janoschsimon/Digital-Director/velocity"
)

// DynamicsFile is the schema of the dynamics and curve config.
type DynamicsFile struct {
	DynamicRange    *RangeFile           `json:"dynamic_range" yaml:"dynamic_range"`
	RoleFactors     map[string]float64   `json:"role_factors" yaml:"role_factors"`
	CurvePoints     *CurvePointsFile     `json:"curve_points" yaml:"curve_points"`
	Filtering       *FilteringFile       `json:"filtering" yaml:"filtering"`
	VelocityMapping *VelocityMappingFile `json:"velocity_mapping" yaml:"velocity_mapping"`
	Interpolation   *InterpolationFile   `json:"interpolation" yaml:"interpolation"`
}

type RangeFile struct {
	Min *float64 `json:"min" yaml:"min"`
	Max *float64 `json:"max" yaml:"max"`
}

// CurveFile is one control-point curve.
type CurveFile struct {
	TimePoints   []float64 `json:"time_points" yaml:"time_points"`
	ValueFactors []float64 `json:"value_factors" yaml:"value_factors"`
}

type CurvePointsFile struct {
	LocalPeak           *CurveFile           `json:"local_peak" yaml:"local_peak"`
	PhraseStart         *CurveFile           `json:"phrase_start" yaml:"phrase_start"`
	PhraseEnd           *CurveFile           `json:"phrase_end" yaml:"phrase_end"`
	NoteDecay           *NoteDecayFile       `json:"note_decay" yaml:"note_decay"`
	BassPatterns        []CurveFile          `json:"bass_patterns" yaml:"bass_patterns"`
	LongNotePatterns    map[string]CurveFile `json:"long_note_patterns" yaml:"long_note_patterns"`
	LongNoteMinDuration *int64               `json:"long_note_min_duration" yaml:"long_note_min_duration"`
}

type NoteDecayFile struct {
	ShortNote *struct {
		EndFactor *float64 `json:"end_factor" yaml:"end_factor"`
	} `json:"short_note" yaml:"short_note"`
	LongNote    *CurveFile `json:"long_note" yaml:"long_note"`
	MinDuration *int64     `json:"min_duration" yaml:"min_duration"`
}

type TierFile struct {
	Rate      *float64 `json:"rate" yaml:"rate"`
	TimeGap   *float64 `json:"time_gap" yaml:"time_gap"`
	ValueDiff *float64 `json:"value_diff" yaml:"value_diff"`
}

type FilteringFile struct {
	FastChange      *TierFile `json:"fast_change" yaml:"fast_change"`
	ModerateChange  *TierFile `json:"moderate_change" yaml:"moderate_change"`
	SlowChange      *TierFile `json:"slow_change" yaml:"slow_change"`
	ImportantPoints *struct {
		WindowSize *int `json:"window_size" yaml:"window_size"`
	} `json:"important_points" yaml:"important_points"`
	SampleStep *int64 `json:"sample_step" yaml:"sample_step"`
}

type VelocityMappingFile struct {
	VeryLow *struct {
		Threshold *float64 `json:"threshold" yaml:"threshold"`
		MinValue  *float64 `json:"min_value" yaml:"min_value"`
	} `json:"very_low" yaml:"very_low"`
	Low *struct {
		Threshold *float64 `json:"threshold" yaml:"threshold"`
		Slope     *float64 `json:"slope" yaml:"slope"`
	} `json:"low" yaml:"low"`
	Mid *struct {
		Threshold *float64 `json:"threshold" yaml:"threshold"`
		Range     *float64 `json:"range" yaml:"range"`
	} `json:"mid" yaml:"mid"`
	High *struct {
		Range *float64 `json:"range" yaml:"range"`
	} `json:"high" yaml:"high"`
}

// InterpolationFile tunes dense dynamics interpolation. All keys are optional.
type InterpolationFile struct {
	Resolution      *int64   `json:"resolution" yaml:"resolution"`
	Steepness       *float64 `json:"steepness" yaml:"steepness"`
	Midpoint        *float64 `json:"midpoint" yaml:"midpoint"`
	SmoothingPasses *int     `json:"smoothing_passes" yaml:"smoothing_passes"`
	MinSpan         *float64 `json:"min_span" yaml:"min_span"`
}

// Dynamics is a loaded, validated dynamics config.
type Dynamics struct {
	Velocity      *velocity.Mapper
	Curves        *curve.Synthesizer
	Interpolation curve.InterpolateOptions
}

// LoadDynamics reads a dynamics config file.
func LoadDynamics(path string) (*Dynamics, error) {
	var f DynamicsFile
	if err := readAndDecode(path, &f); err != nil {
		return nil, err
	}
	return ApplyDynamics(path, &f)
}

// ApplyDynamics validates a parsed dynamics file and builds the velocity
// mapper and curve synthesizer.
func ApplyDynamics(name string, f *DynamicsFile) (*Dynamics, error) {
	if f == nil {
		return nil, missing(name, "dynamics")
	}
	if f.DynamicRange == nil || f.DynamicRange.Min == nil || f.DynamicRange.Max == nil {
		return nil, missing(name, "dynamic_range.min/max")
	}
	rng := curve.Range{Min: *f.DynamicRange.Min, Max: *f.DynamicRange.Max}

	if f.RoleFactors == nil {
		return nil, missing(name, "role_factors")
	}
	roles := make(map[score.Role]float64, len(f.RoleFactors))
	for k, v := range f.RoleFactors {
		r, err := score.ParseRole(k)
		if err != nil {
			return nil, &ValidationError{File: name, Field: "role_factors." + k, Err: err}
		}
		roles[r] = v
	}

	regions, err := applyVelocityMapping(name, f.VelocityMapping)
	if err != nil {
		return nil, err
	}
	vm, err := velocity.NewMapper(regions, rng.Min, rng.Max, roles)
	if err != nil {
		return nil, &ValidationError{File: name, Field: "velocity_mapping", Err: err}
	}

	fam, err := applyCurvePoints(name, f.CurvePoints)
	if err != nil {
		return nil, err
	}
	th, step, err := applyFiltering(name, f.Filtering)
	if err != nil {
		return nil, err
	}
	synth, err := curve.NewSynthesizer(curve.Config{Families: fam, Range: rng, Filter: th, SampleStep: step})
	if err != nil {
		return nil, &ValidationError{File: name, Field: "curve_points", Err: err}
	}

	interp := curve.DefaultInterpolateOptions()
	interp.Range = rng
	interp.Filter = th
	if i := f.Interpolation; i != nil {
		if i.Resolution != nil {
			if *i.Resolution <= 0 {
				return nil, invalid(name, "interpolation.resolution", "must be > 0")
			}
			interp.Resolution = *i.Resolution
		}
		if i.Steepness != nil {
			interp.Steepness = *i.Steepness
		}
		if i.Midpoint != nil {
			interp.Midpoint = *i.Midpoint
		}
		if i.SmoothingPasses != nil {
			interp.SmoothingPasses = *i.SmoothingPasses
		}
		if i.MinSpan != nil {
			interp.MinSpan = *i.MinSpan
		}
	}
	return &Dynamics{Velocity: vm, Curves: synth, Interpolation: interp}, nil
}

func applyVelocityMapping(name string, v *VelocityMappingFile) (velocity.Regions, error) {
	var r velocity.Regions
	if v == nil {
		return r, missing(name, "velocity_mapping")
	}
	switch {
	case v.VeryLow == nil || v.VeryLow.Threshold == nil || v.VeryLow.MinValue == nil:
		return r, missing(name, "velocity_mapping.very_low")
	case v.Low == nil || v.Low.Threshold == nil || v.Low.Slope == nil:
		return r, missing(name, "velocity_mapping.low")
	case v.Mid == nil || v.Mid.Threshold == nil || v.Mid.Range == nil:
		return r, missing(name, "velocity_mapping.mid")
	case v.High == nil || v.High.Range == nil:
		return r, missing(name, "velocity_mapping.high")
	}
	r.VeryLowThreshold = *v.VeryLow.Threshold
	r.VeryLowMin = *v.VeryLow.MinValue
	r.LowThreshold = *v.Low.Threshold
	r.LowSlope = *v.Low.Slope
	r.MidThreshold = *v.Mid.Threshold
	r.MidRange = *v.Mid.Range
	r.HighRange = *v.High.Range
	return r, nil
}

func curveSpec(name, field string, c *CurveFile) (curve.Spec, error) {
	if c == nil {
		return curve.Spec{}, missing(name, field)
	}
	s := curve.Spec{Name: field, TimePoints: c.TimePoints, ValueFactors: c.ValueFactors}
	if err := s.Validate(); err != nil {
		return s, &ValidationError{File: name, Field: field, Err: err}
	}
	return s, nil
}

func applyCurvePoints(name string, c *CurvePointsFile) (curve.Families, error) {
	var f curve.Families
	if c == nil {
		return f, missing(name, "curve_points")
	}
	var err error
	if f.LocalPeak, err = curveSpec(name, "curve_points.local_peak", c.LocalPeak); err != nil {
		return f, err
	}
	if f.PhraseStart, err = curveSpec(name, "curve_points.phrase_start", c.PhraseStart); err != nil {
		return f, err
	}
	if f.PhraseEnd, err = curveSpec(name, "curve_points.phrase_end", c.PhraseEnd); err != nil {
		return f, err
	}

	d := c.NoteDecay
	switch {
	case d == nil:
		return f, missing(name, "curve_points.note_decay")
	case d.ShortNote == nil || d.ShortNote.EndFactor == nil:
		return f, missing(name, "curve_points.note_decay.short_note.end_factor")
	case d.MinDuration == nil:
		return f, missing(name, "curve_points.note_decay.min_duration")
	}
	if *d.ShortNote.EndFactor <= 0 {
		return f, invalid(name, "curve_points.note_decay.short_note.end_factor", "must be > 0")
	}
	f.ShortNoteEnd = *d.ShortNote.EndFactor
	f.DecayMinDuration = *d.MinDuration
	if f.LongDecay, err = curveSpec(name, "curve_points.note_decay.long_note", d.LongNote); err != nil {
		return f, err
	}

	if len(c.BassPatterns) == 0 {
		return f, missing(name, "curve_points.bass_patterns")
	}
	for i := range c.BassPatterns {
		s, err := curveSpec(name, fmt.Sprintf("curve_points.bass_patterns[%d]", i), &c.BassPatterns[i])
		if err != nil {
			return f, err
		}
		f.BassPatterns = append(f.BassPatterns, s)
	}

	if len(c.LongNotePatterns) == 0 {
		return f, missing(name, "curve_points.long_note_patterns")
	}
	// variants cycle in name order
	keys := make([]string, 0, len(c.LongNotePatterns))
	for k := range c.LongNotePatterns {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		p := c.LongNotePatterns[k]
		s, err := curveSpec(name, "curve_points.long_note_patterns."+k, &p)
		if err != nil {
			return f, err
		}
		s.Name = k
		f.LongNotePatterns = append(f.LongNotePatterns, s)
	}

	if c.LongNoteMinDuration == nil {
		return f, missing(name, "curve_points.long_note_min_duration")
	}
	f.LongNoteMinDuration = *c.LongNoteMinDuration
	return f, nil
}

func applyTier(name, field string, t *TierFile, needRate bool) (curve.Tier, error) {
	if t == nil || t.TimeGap == nil || t.ValueDiff == nil || (needRate && t.Rate == nil) {
		return curve.Tier{}, missing(name, field)
	}
	out := curve.Tier{TimeGap: *t.TimeGap, ValueDiff: *t.ValueDiff}
	if t.Rate != nil {
		out.Rate = *t.Rate
	}
	return out, nil
}

func applyFiltering(name string, f *FilteringFile) (curve.Thresholds, int64, error) {
	var th curve.Thresholds
	if f == nil {
		return th, 0, missing(name, "filtering")
	}
	var err error
	if th.Fast, err = applyTier(name, "filtering.fast_change", f.FastChange, true); err != nil {
		return th, 0, err
	}
	if th.Moderate, err = applyTier(name, "filtering.moderate_change", f.ModerateChange, true); err != nil {
		return th, 0, err
	}
	if th.Slow, err = applyTier(name, "filtering.slow_change", f.SlowChange, false); err != nil {
		return th, 0, err
	}
	if th.Fast.Rate < th.Moderate.Rate {
		return th, 0, invalid(name, "filtering.fast_change.rate", "must be >= moderate_change.rate")
	}
	if f.ImportantPoints == nil || f.ImportantPoints.WindowSize == nil {
		return th, 0, missing(name, "filtering.important_points.window_size")
	}
	if *f.ImportantPoints.WindowSize < 1 {
		return th, 0, invalid(name, "filtering.important_points.window_size", "must be >= 1")
	}
	th.WindowSize = *f.ImportantPoints.WindowSize
	step := int64(10)
	if f.SampleStep != nil {
		if *f.SampleStep <= 0 {
			return th, 0, invalid(name, "filtering.sample_step", "must be > 0")
		}
		step = *f.SampleStep
	}
	return th, step, nil
}
