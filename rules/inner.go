package rules

import "math"

var innerRules = []Definition{
	{
		Name:     "inner_base_velocity",
		Category: Inner,
		Required: []string{"velocity_decrease_factor"},
		Apply:    innerBaseVelocity,
	},
	{
		Name:     "inner_contour",
		Category: Inner,
		Required: []string{"velocity_increase_factor"},
		Apply:    innerContour,
	},
	{
		Name:     "inner_consonant",
		Category: Inner,
		Required: []string{"length_increase_factor"},
		Lists:    []string{"consonant_intervals"},
		Apply:    innerConsonant,
	},
	{
		Name:     "inner_timing_flow",
		Category: Inner,
		Required: []string{"max_variation_factor"},
		Apply:    innerTimingFlow,
	},
	{
		Name:     "inner_short_note",
		Category: Inner,
		Required: []string{"very_short_reduction", "short_reduction", "min_duration_factor", "min_duration"},
		Apply:    innerShortNote,
	},
}

func innerBaseVelocity(in Input) (Delta, bool) {
	d := Identity()
	d.Velocity = 1 - in.Params.Float("velocity_decrease_factor")
	return d, true
}

func innerContour(in Input) (Delta, bool) {
	d := Identity()
	if !in.Record.IsLocalPeak && !in.Record.IsLocalTrough {
		return d, false
	}
	d.Velocity = 1 + in.Params.Float("velocity_increase_factor")
	return d, true
}

func innerConsonant(in Input) (Delta, bool) {
	d := Identity()
	if !in.Record.HasPrev {
		return d, false
	}
	iv := in.Record.IntervalToPrev
	if iv < 0 {
		iv = -iv
	}
	iv %= 12
	for _, c := range in.Params.List("consonant_intervals") {
		if int(c) == iv {
			d.Duration = 1 + in.Params.Float("length_increase_factor")
			return d, true
		}
	}
	return d, false
}

func innerTimingFlow(in Input) (Delta, bool) {
	d := Identity()
	d.Timing = in.Jitter * in.Params.Float("max_variation_factor")
	return d, d.Timing != 0
}

func innerShortNote(in Input) (Delta, bool) {
	p := in.Params
	d := Identity()
	beats := in.beats()
	if beats >= 0.25 || in.Acc.Duration > 1 {
		return d, false
	}
	reduction := p.Float("short_reduction")
	if beats < 0.125 {
		reduction = p.Float("very_short_reduction")
	}
	minTicks := math.Max(p.Float("min_duration"), float64(in.Note.Duration)*p.Float("min_duration_factor"))
	d.Duration = minScale(in.Note.Duration, 1-reduction, minTicks)
	return d, true
}
