package rules

import "math"

var bassRules = []Definition{
	{
		Name:     "bass_downbeat",
		Category: Bass,
		Required: []string{"timing_delay_factor", "velocity_increase_factor"},
		Apply:    downbeat,
	},
	{
		Name:     "bass_phrase_end",
		Category: Bass,
		Required: []string{"length_increase_factor", "min_duration_threshold"},
		Apply:    bassPhraseEnd,
	},
	{
		Name:     "bass_repeated",
		Category: Bass,
		Required: []string{"velocity_variation", "duration_variation", "min_duration_factor", "min_duration_absolute", "acceleration_factor", "max_acceleration", "repetition_threshold"},
		Apply:    bassRepeated,
	},
	{
		Name:     "bass_short",
		Category: Bass,
		Required: []string{"very_short_reduction", "short_reduction", "min_duration_factor", "min_duration_absolute"},
		Apply:    bassShort,
	},
}

func bassPhraseEnd(in Input) (Delta, bool) {
	r, p := in.Record, in.Params
	d := Identity()
	if r.InFragment || r.PhraseLen < 2 || r.PositionInPhrase < 0.9 {
		return d, false
	}
	if in.beats() <= p.Float("min_duration_threshold") {
		return d, false
	}
	d.Duration = 1 + p.Float("length_increase_factor")
	return d, true
}

// bassRepeated gives repeated bass notes a pulse: small reproducible
// velocity and length variation, pushing forward on long repetitions.
func bassRepeated(in Input) (Delta, bool) {
	r, p := in.Record, in.Params
	d := Identity()
	if !r.IsRepeated {
		return d, false
	}
	d.Velocity = 1 + in.Jitter*p.Float("velocity_variation")

	dur := float64(in.Note.Duration)
	minTicks := math.Max(p.Float("min_duration_absolute"), dur*p.Float("min_duration_factor"))
	d.Duration = minScale(in.Note.Duration, 1-math.Abs(in.Jitter)*p.Float("duration_variation"), minTicks)

	threshold := p.Float("repetition_threshold")
	if count := float64(r.RepeatCount); count >= threshold {
		ramp := math.Min(1, (count-threshold+1)*0.2)
		d.Directional = math.Max(p.Float("acceleration_factor")*ramp, p.Float("max_acceleration"))
	}
	return d, true
}

func bassShort(in Input) (Delta, bool) {
	p := in.Params
	d := Identity()
	beats := in.beats()
	if beats >= 0.5 || in.Acc.Duration > 1 {
		return d, false
	}
	reduction := p.Float("short_reduction")
	if beats < 0.25 {
		reduction = p.Float("very_short_reduction")
	}
	minTicks := math.Max(p.Float("min_duration_absolute"), float64(in.Note.Duration)*p.Float("min_duration_factor"))
	d.Duration = minScale(in.Note.Duration, 1-reduction, minTicks)
	return d, true
}
