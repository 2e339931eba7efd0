package rules

import "math"

var melodyRules = []Definition{
	{
		Name:     "phrase_start",
		Category: Melody,
		Required: []string{"first_note_timing_factor", "second_note_timing_factor", "velocity_increase_factor", "phrase_position_threshold", "min_duration"},
		Apply:    phraseStart,
	},
	{
		Name:     "phrase_end",
		Category: Melody,
		Required: []string{"timing_delay_factor", "velocity_decrease_factor", "length_increase_factor", "length_increase_threshold"},
		Apply:    phraseEnd,
	},
	{
		Name:     "pre_leap",
		Category: Melody,
		Required: []string{"up_acceleration_factor", "down_delay_factor", "reduction_factor", "interval_threshold", "min_duration"},
		Apply:    preLeap,
	},
	{
		Name:     "local_peak",
		Category: Melody,
		Required: []string{"timing_delay_factor", "velocity_increase_factor"},
		Apply:    localPeak,
	},
	{
		Name:     "downbeat",
		Category: Melody,
		Required: []string{"timing_delay_factor", "velocity_increase_factor"},
		Apply:    downbeat,
	},
	{
		Name:     "accelerando",
		Category: Melody,
		Required: []string{"timing_acceleration_factor", "min_notes_sequence", "interval_threshold"},
		Apply:    accelerando,
	},
	{
		Name:     "sequence_accel",
		Category: Melody,
		Required: []string{"acceleration_factor", "pattern_detection_window", "max_acceleration", "dynamic_increase"},
		Apply:    sequenceAccel,
	},
	{
		Name:     "directional_timing",
		Category: Melody,
		Required: []string{"up_acceleration_factor", "down_delay_factor", "interval_threshold", "velocity_adjustment"},
		Apply:    directionalTiming,
	},
	{
		Name:     "long_note",
		Category: Melody,
		Required: []string{"velocity_increase", "threshold"},
		Apply:    longNote,
	},
	{
		Name:     "short_note",
		Category: Melody,
		Required: []string{"very_short_reduction", "short_reduction", "velocity_increase", "very_short_threshold", "short_threshold"},
		Apply:    shortNote,
	},
}

func phraseStart(in Input) (Delta, bool) {
	r, p := in.Record, in.Params
	d := Identity()
	if r.InFragment || float64(in.Note.Duration) < p.Float("min_duration") {
		return d, false
	}
	threshold := p.Float("phrase_position_threshold")
	switch {
	case r.IndexInPhrase == 0 && r.PositionInPhrase < threshold:
		d.Timing = p.Float("first_note_timing_factor")
		d.Velocity = 1 + p.Float("velocity_increase_factor")
	case r.IndexInPhrase == 1 && r.PositionInPhrase < 2*threshold:
		d.Timing = p.Float("second_note_timing_factor")
		d.Velocity = 1 + p.FloatOr("second_note_velocity_factor", 0.03)
	default:
		return d, false
	}
	return d, true
}

func phraseEnd(in Input) (Delta, bool) {
	r, p := in.Record, in.Params
	d := Identity()
	if r.InFragment || r.PhraseLen < 2 || r.PositionInPhrase < 1-p.FloatOr("phrase_position_threshold", 0.1) {
		return d, false
	}
	d.Timing = p.Float("timing_delay_factor")
	d.Velocity = 1 - p.Float("velocity_decrease_factor")
	if float64(in.Note.Duration) > p.Float("length_increase_threshold") {
		d.Duration = 1 + p.Float("length_increase_factor")
	}
	return d, true
}

// preLeap shapes the note before a leap and accents the note the leap lands on.
func preLeap(in Input) (Delta, bool) {
	r, p := in.Record, in.Params
	d := Identity()
	threshold := p.Float("interval_threshold")
	applied := false

	if r.HasNext && math.Abs(float64(r.IntervalToNext)) >= threshold && float64(in.Note.Duration) >= p.Float("min_duration") {
		if r.IntervalToNext > 0 {
			d.Directional = p.Float("up_acceleration_factor")
		} else {
			d.Directional = p.Float("down_delay_factor")
		}
		d.Duration = minScale(in.Note.Duration, 1-p.Float("reduction_factor"), p.Float("min_duration"))
		applied = true
	}
	if r.HasPrev && math.Abs(float64(r.IntervalToPrev)) >= threshold {
		d.Velocity = 1 + p.FloatOr("target_velocity_factor", 0.12)
		applied = true
	}
	return d, applied
}

func localPeak(in Input) (Delta, bool) {
	d := Identity()
	if !in.Record.IsLocalPeak {
		return d, false
	}
	d.Timing = in.Params.Float("timing_delay_factor")
	d.Velocity = 1 + in.Params.Float("velocity_increase_factor")
	return d, true
}

func downbeat(in Input) (Delta, bool) {
	d := Identity()
	if !in.Record.IsDownbeat {
		return d, false
	}
	d.Timing = in.Params.Float("timing_delay_factor")
	d.Velocity = 1 + in.Params.Float("velocity_increase_factor")
	return d, true
}

func accelerando(in Input) (Delta, bool) {
	r, p := in.Record, in.Params
	d := Identity()
	if !r.Ascending {
		return d, false
	}
	span := float64(r.IntervalToPrev + r.IntervalToNext)
	// AscendingRun counts rising steps into this note; the next note adds one more.
	notes := float64(r.AscendingRun + 2)
	if span < p.Float("interval_threshold") || notes < p.Float("min_notes_sequence") {
		return d, false
	}
	d.Directional = p.Float("timing_acceleration_factor")
	d.Velocity = 1 + p.FloatOr("velocity_boost", 0.05)
	return d, true
}

func sequenceAccel(in Input) (Delta, bool) {
	p := in.Params
	d := Identity()
	run := in.Record.EqualIntervalRun
	if w := int(p.Float("pattern_detection_window")); w > 0 && run > w {
		run = w
	}
	if run < 2 {
		return d, false
	}
	pos := float64(run - 1)
	d.Directional = math.Max(p.Float("acceleration_factor")*(1+0.1*pos), p.Float("max_acceleration"))
	d.Velocity = 1 + p.Float("dynamic_increase")*pos
	return d, true
}

func directionalTiming(in Input) (Delta, bool) {
	r, p := in.Record, in.Params
	d := Identity()
	iv := float64(r.IntervalToPrev)
	if !r.HasPrev || math.Abs(iv) < p.Float("interval_threshold") || iv == 0 {
		return d, false
	}
	strength := math.Min(1.5, math.Abs(iv)/7)
	adj := p.Float("velocity_adjustment") * strength
	if iv > 0 {
		d.Directional = p.Float("up_acceleration_factor") * strength
		d.Velocity = 1 + adj
	} else {
		d.Directional = p.Float("down_delay_factor") * strength
		d.Velocity = 1 - adj
	}
	return d, true
}

// longNote accents notes longer than threshold beats. The optional
// length_increase param also stretches them.
func longNote(in Input) (Delta, bool) {
	d := Identity()
	if in.beats() <= in.Params.Float("threshold") {
		return d, false
	}
	d.Velocity = 1 + in.Params.Float("velocity_increase")
	d.Duration = 1 + in.Params.FloatOr("length_increase", 0)
	return d, true
}

// shortNote tightens notes under a quarter beat. It leaves the length of a
// note an earlier rule already stretched.
func shortNote(in Input) (Delta, bool) {
	p := in.Params
	d := Identity()
	beats := in.beats()
	if beats >= 0.25 {
		return d, false
	}
	d.Velocity = 1 + p.Float("velocity_increase")
	if in.Acc.Duration > 1 {
		return d, true
	}
	var reduction float64
	switch {
	case beats <= p.Float("very_short_threshold"):
		reduction = p.Float("very_short_reduction")
	case beats <= p.Float("short_threshold"):
		reduction = p.Float("short_reduction")
	default:
		reduction = p.Float("short_reduction") * 0.75
	}
	minTicks := math.Max(2, float64(in.Note.Duration)*0.5)
	d.Duration = minScale(in.Note.Duration, 1-reduction, minTicks)
	return d, true
}
