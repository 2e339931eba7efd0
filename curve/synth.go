package curve

import (
	"fmt"
	"math"
	"sort"

	"github.com/janoschsimon/Digital-Director/score"
)

// Range bounds every curve value.
type Range struct {
	Min float64
	Max float64
}

// Clamp limits v to the range.
func (r Range) Clamp(v float64) float64 {
	return math.Max(r.Min, math.Min(r.Max, v))
}

// Families holds the curve templates used to shape notes.
type Families struct {
	LocalPeak   Spec
	PhraseStart Spec
	PhraseEnd   Spec

	// Notes no longer than DecayMinDuration ticks only get ShortNoteEnd at
	// their release; longer notes follow LongDecay.
	ShortNoteEnd     float64
	LongDecay        Spec
	DecayMinDuration int64

	BassPatterns []Spec
	// LongNotePatterns are chosen cyclically by note index.
	LongNotePatterns    []Spec
	LongNoteMinDuration int64
}

func (f Families) specs() []Spec {
	out := []Spec{f.LocalPeak, f.PhraseStart, f.PhraseEnd, f.LongDecay}
	out = append(out, f.BassPatterns...)
	return append(out, f.LongNotePatterns...)
}

// Config configures a Synthesizer.
type Config struct {
	Families   Families
	Range      Range
	Filter     Thresholds
	SampleStep int64
	// Transition points are inserted into rests longer than TransitionGap
	// ticks when the level changes by more than TransitionDiff.
	TransitionGap  int64
	TransitionDiff float64
}

// Synthesizer turns performed notes into velocity curves.
type Synthesizer struct {
	cfg Config
}

// NewSynthesizer validates every curve template.
func NewSynthesizer(cfg Config) (*Synthesizer, error) {
	for _, s := range cfg.Families.specs() {
		if err := s.Validate(); err != nil {
			return nil, err
		}
	}
	if cfg.Range.Min > cfg.Range.Max {
		return nil, fmt.Errorf("dynamic range min %g above max %g", cfg.Range.Min, cfg.Range.Max)
	}
	if cfg.SampleStep <= 0 {
		cfg.SampleStep = 10
	}
	if cfg.TransitionGap <= 0 {
		cfg.TransitionGap = 15
	}
	if cfg.TransitionDiff <= 0 {
		cfg.TransitionDiff = 5
	}
	return &Synthesizer{cfg: cfg}, nil
}

// NoteContext describes one performed note for curve synthesis.
type NoteContext struct {
	Start    int64
	Duration int64
	// Index is the note's position in its voice, used for pattern cycling.
	Index int
	// Level is the mapped velocity the curve is built around.
	Level        float64
	Role         score.Role
	PhraseStart  bool
	PhraseEnd    bool
	LocalPeak    bool
	TicksPerBeat int
}

// Templates returns the curve templates that shape a note, in application
// order. Short notes get none; see NoteCurve.
func (s *Synthesizer) Templates(nc NoteContext) []Spec {
	f := s.cfg.Families
	if nc.Duration <= f.DecayMinDuration {
		return nil
	}
	out := []Spec{f.LongDecay}
	tpb := nc.TicksPerBeat
	if tpb <= 0 {
		tpb = score.DefaultTicksPerBeat
	}
	if nc.Role == score.RoleBass {
		if len(f.BassPatterns) > 0 {
			out = append(out, f.BassPatterns[nc.Index%len(f.BassPatterns)])
		}
	} else if len(f.LongNotePatterns) > 0 && nc.Duration > f.LongNoteMinDuration && nc.Duration > int64(tpb/2) {
		out = append(out, f.LongNotePatterns[nc.Index%len(f.LongNotePatterns)])
	}
	if nc.PhraseStart {
		out = append(out, f.PhraseStart)
	}
	if nc.PhraseEnd {
		out = append(out, f.PhraseEnd)
	}
	if nc.LocalPeak {
		out = append(out, f.LocalPeak)
	}
	return out
}

// NoteCurve samples the product of a note's templates over its duration.
func (s *Synthesizer) NoteCurve(nc NoteContext) []Point {
	end := nc.Start + nc.Duration
	if nc.Duration <= s.cfg.Families.DecayMinDuration {
		return []Point{
			{Tick: nc.Start, Value: s.level(nc.Level)},
			{Tick: end, Value: s.level(nc.Level * s.cfg.Families.ShortNoteEnd)},
		}
	}

	specs := s.Templates(nc)
	ticks := map[int64]struct{}{nc.Start: {}, end: {}}
	for t := nc.Start + s.cfg.SampleStep; t < end; t += s.cfg.SampleStep {
		ticks[t] = struct{}{}
	}
	for _, sp := range specs {
		for _, tp := range sp.TimePoints {
			ticks[nc.Start+int64(math.Round(tp*float64(nc.Duration)))] = struct{}{}
		}
	}
	sorted := make([]int64, 0, len(ticks))
	for t := range ticks {
		sorted = append(sorted, t)
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	out := make([]Point, len(sorted))
	for i, t := range sorted {
		frac := float64(t-nc.Start) / float64(nc.Duration)
		v := nc.Level
		for _, sp := range specs {
			v *= sp.ValueAt(frac)
		}
		out[i] = Point{Tick: t, Value: s.level(v)}
	}
	return out
}

// PhraseCurve joins the note curves of one phrase, bridges rests between
// notes and filters the result. Simultaneous samples keep the loudest value.
func (s *Synthesizer) PhraseCurve(notes []NoteContext) []Point {
	if len(notes) == 0 {
		return nil
	}
	var dense []Point
	for i, nc := range notes {
		curve := s.NoteCurve(nc)
		if i > 0 {
			dense = append(dense, s.transition(dense[len(dense)-1], curve[0])...)
		}
		dense = append(dense, curve...)
	}
	return Filter(mergeTicks(dense), s.cfg.Filter)
}

func (s *Synthesizer) transition(from, to Point) []Point {
	gap := to.Tick - from.Tick
	diff := to.Value - from.Value
	if gap <= s.cfg.TransitionGap || math.Abs(diff) <= s.cfg.TransitionDiff {
		return nil
	}
	w1, w2 := 0.25, 0.85
	if diff > 0 {
		w1, w2 = 0.15, 0.75
	}
	return []Point{
		{Tick: from.Tick + int64(float64(gap)*0.3), Value: math.Round(from.Value + diff*w1)},
		{Tick: from.Tick + int64(float64(gap)*0.7), Value: math.Round(from.Value + diff*w2)},
	}
}

func (s *Synthesizer) level(v float64) float64 {
	return math.Round(s.cfg.Range.Clamp(v))
}

func mergeTicks(points []Point) []Point {
	sort.SliceStable(points, func(i, j int) bool { return points[i].Tick < points[j].Tick })
	out := points[:0]
	for _, p := range points {
		if n := len(out); n > 0 && out[n-1].Tick == p.Tick {
			if p.Value > out[n-1].Value {
				out[n-1].Value = p.Value
			}
			continue
		}
		out = append(out, p)
	}
	return out
}
