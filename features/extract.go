package features

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/janoschsimon/Digital-Director/score"
)

// Record holds the context of one note inside its voice.
type Record struct {
	Index            int
	Phrase           int
	IndexInPhrase    int
	PhraseLen        int
	PositionInPhrase float64
	InFragment       bool

	HasPrev        bool
	HasNext        bool
	IntervalToPrev int
	IntervalToNext int

	IsLocalPeak   bool
	IsLocalTrough bool
	IsRepeated    bool
	// RepeatCount is the number of immediately preceding notes with the same pitch.
	RepeatCount int
	// EqualIntervalRun counts consecutive identical non-zero intervals ending here.
	EqualIntervalRun int
	// AscendingRun counts consecutive rising intervals ending here.
	AscendingRun int
	Ascending    bool

	RelativeDuration float64
	Beats            float64
	IsDownbeat       bool
	MetricPosition   float64
}

// IsPhraseStart reports whether the note opens a non-fragment phrase.
func (r Record) IsPhraseStart() bool { return !r.InFragment && r.IndexInPhrase == 0 }

// IsPhraseEnd reports whether the note closes a non-fragment phrase.
func (r Record) IsPhraseEnd() bool { return !r.InFragment && r.IndexInPhrase == r.PhraseLen-1 }

// Analysis is the feature extraction result for one voice.
type Analysis struct {
	Records        []Record
	Phrases        []score.Phrase
	MedianDuration float64
}

// Extract computes per-note and per-phrase features for one ordered voice.
// The scan is sequential: phrase boundaries depend on the previous note.
func Extract(voice string, notes []score.Note, opts Options) (*Analysis, error) {
	if err := score.ValidateSequence(voice, notes); err != nil {
		return nil, err
	}
	opts = opts.normalized()

	a := &Analysis{
		Records:        make([]Record, len(notes)),
		MedianDuration: medianDuration(notes),
	}
	a.Phrases = detectPhrases(notes, opts)

	tpb := float64(opts.TicksPerBeat)
	for pi, ph := range a.Phrases {
		for i := ph.Start; i <= ph.End; i++ {
			r := &a.Records[i]
			r.Index = i
			r.Phrase = pi
			r.IndexInPhrase = i - ph.Start
			r.PhraseLen = ph.Len()
			r.InFragment = ph.Fragment
			if ph.Len() > 1 {
				r.PositionInPhrase = float64(r.IndexInPhrase) / float64(ph.Len()-1)
			}
		}
	}

	for i, n := range notes {
		r := &a.Records[i]
		r.HasPrev = i > 0
		r.HasNext = i < len(notes)-1
		if r.HasPrev {
			prev := notes[i-1]
			pr := a.Records[i-1]
			r.IntervalToPrev = n.Pitch - prev.Pitch
			if r.IntervalToPrev == 0 {
				r.IsRepeated = true
				r.RepeatCount = pr.RepeatCount + 1
			}
			if r.IntervalToPrev != 0 {
				r.EqualIntervalRun = 1
				if pr.HasPrev && pr.IntervalToPrev == r.IntervalToPrev {
					r.EqualIntervalRun = pr.EqualIntervalRun + 1
				}
			}
			if r.IntervalToPrev > 0 {
				r.AscendingRun = pr.AscendingRun + 1
			}
		}
		if r.HasNext {
			r.IntervalToNext = notes[i+1].Pitch - n.Pitch
		}
		if r.HasPrev && r.HasNext {
			p, q := notes[i-1].Pitch, notes[i+1].Pitch
			r.IsLocalPeak = n.Pitch > p && n.Pitch > q
			r.IsLocalTrough = n.Pitch < p && n.Pitch < q
			r.Ascending = p < n.Pitch && n.Pitch < q
		}
		if a.MedianDuration > 0 {
			r.RelativeDuration = float64(n.Duration) / a.MedianDuration
		}
		r.Beats = float64(n.Duration) / tpb
		r.IsDownbeat, r.MetricPosition = metric(n.Start, opts)
	}
	return a, nil
}

func medianDuration(notes []score.Note) float64 {
	d := make([]float64, len(notes))
	for i, n := range notes {
		d[i] = float64(n.Duration)
	}
	sort.Float64s(d)
	return stat.Quantile(0.5, stat.Empirical, d, nil)
}

// metric places a tick inside its measure. Beat one and, in even meters, the
// middle beat count as downbeats.
func metric(start int64, opts Options) (bool, float64) {
	beat := float64(start) / float64(opts.TicksPerBeat)
	bpm := float64(opts.BeatsPerMeasure)
	inMeasure := math.Mod(beat, bpm)
	pos := inMeasure / bpm

	tol := opts.DownbeatTolerance
	near := func(b float64) bool {
		d := math.Abs(inMeasure - b)
		return d <= tol || math.Abs(d-bpm) <= tol
	}
	if near(0) {
		return true, pos
	}
	if opts.BeatsPerMeasure%2 == 0 && opts.BeatsPerMeasure >= 4 && near(bpm/2) {
		return true, pos
	}
	return false, pos
}

// ClassifyRole guesses a role for an unlabelled voice from its mean pitch.
func ClassifyRole(notes []score.Note) score.Role {
	if len(notes) == 0 {
		return score.RoleUnknown
	}
	p := make([]float64, len(notes))
	for i, n := range notes {
		p[i] = float64(n.Pitch)
	}
	avg := stat.Mean(p, nil)
	switch {
	case avg > 70:
		return score.RoleMelody
	case avg < 50:
		return score.RoleBass
	}
	return score.RoleInnerVoice
}
