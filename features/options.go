package features

import "github.com/janoschsimon/Digital-Director/score"

// Options controls phrase detection and metric features.
type Options struct {
	TicksPerBeat    int
	BeatsPerMeasure int

	// GapTicks ends a phrase when the rest between two notes is longer.
	GapTicks int64
	// LongNoteTicks ends a phrase after a note held longer than this.
	LongNoteTicks int64
	// MaxLeap ends a phrase on an interval strictly larger than this.
	MaxLeap int
	// ContourReversal, when > 0, splits a phrase where the pitch direction
	// reverses after a run covering at least this fraction of the voice.
	ContourReversal float64
	// MinPhraseNotes marks shorter phrases as fragments.
	MinPhraseNotes int
	// DownbeatTolerance is the distance in beats still counted as on the beat.
	DownbeatTolerance float64
}

// DefaultOptions returns the documented phrase heuristics for a resolution.
func DefaultOptions(ticksPerBeat, beatsPerMeasure int) Options {
	if ticksPerBeat <= 0 {
		ticksPerBeat = score.DefaultTicksPerBeat
	}
	if beatsPerMeasure <= 0 {
		beatsPerMeasure = score.DefaultBeatsPerMeasure
	}
	return Options{
		TicksPerBeat:      ticksPerBeat,
		BeatsPerMeasure:   beatsPerMeasure,
		GapTicks:          int64(ticksPerBeat),
		LongNoteTicks:     int64(2 * ticksPerBeat),
		MaxLeap:           7,
		MinPhraseNotes:    3,
		DownbeatTolerance: 0.1,
	}
}

func (o Options) normalized() Options {
	d := DefaultOptions(o.TicksPerBeat, o.BeatsPerMeasure)
	if o.GapTicks > 0 {
		d.GapTicks = o.GapTicks
	}
	if o.LongNoteTicks > 0 {
		d.LongNoteTicks = o.LongNoteTicks
	}
	if o.MaxLeap > 0 {
		d.MaxLeap = o.MaxLeap
	}
	if o.MinPhraseNotes > 0 {
		d.MinPhraseNotes = o.MinPhraseNotes
	}
	if o.DownbeatTolerance > 0 {
		d.DownbeatTolerance = o.DownbeatTolerance
	}
	d.ContourReversal = o.ContourReversal
	return d
}
