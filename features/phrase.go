package features

import (
	"math"

	"github.com/janoschsimon/Digital-Director/score"
)

func detectPhrases(notes []score.Note, opts Options) []score.Phrase {
	minRun := 0
	if opts.ContourReversal > 0 {
		minRun = int(math.Ceil(opts.ContourReversal * float64(len(notes))))
		if minRun < 2 {
			minRun = 2
		}
	}

	var phrases []score.Phrase
	start := 0
	dir, run := 0, 0
	for i := 1; i < len(notes); i++ {
		prev, cur := notes[i-1], notes[i]
		iv := cur.Pitch - prev.Pitch
		d := sign(iv)

		split := false
		if cur.Start-prev.End() > opts.GapTicks {
			split = true
		}
		if prev.Duration > opts.LongNoteTicks {
			split = true
		}
		if abs(iv) > opts.MaxLeap {
			split = true
		}
		if minRun > 0 && d != 0 && dir != 0 && d != dir && run >= minRun {
			split = true
		}

		if d != 0 {
			if d == dir {
				run++
			} else {
				dir, run = d, 1
			}
		}

		if split {
			phrases = append(phrases, newPhrase(len(phrases), start, i-1, opts))
			start = i
			dir, run = 0, 0
		}
	}
	phrases = append(phrases, newPhrase(len(phrases), start, len(notes)-1, opts))
	return phrases
}

func newPhrase(idx, start, end int, opts Options) score.Phrase {
	return score.Phrase{
		Index:    idx,
		Start:    start,
		End:      end,
		Fragment: end-start+1 < opts.MinPhraseNotes,
	}
}

func sign(v int) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
