package features

import (
	"errors"
	"testing"

	"github.com/janoschsimon/Digital-Director/score"
)

func seq(pitches []int, dur int64) []score.Note {
	out := make([]score.Note, len(pitches))
	for i, p := range pitches {
		out[i] = score.Note{Pitch: p, Start: int64(i) * dur, Duration: dur, Velocity: 80}
	}
	return out
}

func TestExtractIntervalsAndExtrema(t *testing.T) {
	a, err := Extract("m", seq([]int{60, 64, 62, 62, 67}, 240), DefaultOptions(480, 4))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	r := a.Records
	if r[1].IntervalToPrev != 4 || r[1].IntervalToNext != -2 {
		t.Fatalf("intervals mismatch: %+v", r[1])
	}
	if !r[1].IsLocalPeak || r[1].IsLocalTrough {
		t.Fatalf("expected note 1 to be a peak: %+v", r[1])
	}
	if !r[3].IsRepeated || r[3].RepeatCount != 1 {
		t.Fatalf("expected note 3 repeated once: %+v", r[3])
	}
	if r[0].HasPrev || r[4].HasNext {
		t.Fatalf("edge notes must not have outer neighbours")
	}
	if r[0].RelativeDuration != 1 {
		t.Fatalf("uniform durations should have relative duration 1, got %f", r[0].RelativeDuration)
	}
}

func TestExtractPositionSpansPhrase(t *testing.T) {
	a, err := Extract("m", seq([]int{60, 62, 64, 65}, 480), DefaultOptions(480, 4))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(a.Phrases) != 1 {
		t.Fatalf("expected one phrase, got %d", len(a.Phrases))
	}
	want := []float64{0, 1.0 / 3, 2.0 / 3, 1}
	for i, w := range want {
		if got := a.Records[i].PositionInPhrase; got < w-1e-9 || got > w+1e-9 {
			t.Fatalf("position[%d]: got=%f want=%f", i, got, w)
		}
	}
	if !a.Records[0].IsPhraseStart() || !a.Records[3].IsPhraseEnd() {
		t.Fatalf("expected phrase start/end flags")
	}
}

func TestExtractSplitsOnGapAndLeap(t *testing.T) {
	notes := seq([]int{60, 62, 64, 65, 67, 69}, 240)
	// rest of two beats before note 3
	for i := 3; i < len(notes); i++ {
		notes[i].Start += 960
	}
	a, err := Extract("m", notes, DefaultOptions(480, 4))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(a.Phrases) != 2 || a.Phrases[1].Start != 3 {
		t.Fatalf("expected split at note 3, got %+v", a.Phrases)
	}

	b, err := Extract("m", seq([]int{60, 62, 64, 76, 74, 72}, 240), DefaultOptions(480, 4))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(b.Phrases) != 2 || b.Phrases[1].Start != 3 {
		t.Fatalf("expected leap split at note 3, got %+v", b.Phrases)
	}

	c, err := Extract("m", seq([]int{60, 67, 64}, 240), DefaultOptions(480, 4))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(c.Phrases) != 1 {
		t.Fatalf("a fifth must not split a phrase: %+v", c.Phrases)
	}
}

func TestExtractMarksFragments(t *testing.T) {
	notes := seq([]int{60, 62, 64, 65}, 240)
	notes[3].Start += 2000
	a, err := Extract("m", notes, DefaultOptions(480, 4))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if a.Phrases[0].Fragment || !a.Phrases[1].Fragment {
		t.Fatalf("fragment flags mismatch: %+v", a.Phrases)
	}
	if a.Records[3].IsPhraseStart() {
		t.Fatalf("fragment notes are not phrase starts")
	}
}

func TestExtractContourReversal(t *testing.T) {
	pitches := []int{60, 62, 64, 65, 67, 65, 64, 62, 60, 59}
	opts := DefaultOptions(480, 4)
	a, err := Extract("m", seq(pitches, 240), opts)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(a.Phrases) != 1 {
		t.Fatalf("reversal split must be off by default, got %+v", a.Phrases)
	}
	opts.ContourReversal = 0.3
	b, err := Extract("m", seq(pitches, 240), opts)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(b.Phrases) != 2 || b.Phrases[1].Start != 5 {
		t.Fatalf("expected reversal split at note 5, got %+v", b.Phrases)
	}
}

func TestExtractDownbeats(t *testing.T) {
	a, err := Extract("m", seq([]int{60, 60, 60, 60, 60}, 480), DefaultOptions(480, 4))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	want := []bool{true, false, true, false, true}
	for i, w := range want {
		if a.Records[i].IsDownbeat != w {
			t.Fatalf("downbeat[%d]: got=%v want=%v", i, a.Records[i].IsDownbeat, w)
		}
	}
}

func TestExtractRejectsNonMonotonic(t *testing.T) {
	notes := seq([]int{60, 62, 64}, 240)
	notes[2].Start = 10
	_, err := Extract("m", notes, DefaultOptions(480, 4))
	var mse *score.MalformedSequenceError
	if !errors.As(err, &mse) || mse.Index != 2 {
		t.Fatalf("expected malformed sequence at 2, got %v", err)
	}
	if _, err := Extract("m", nil, DefaultOptions(480, 4)); !errors.As(err, &mse) {
		t.Fatalf("expected malformed sequence for empty voice, got %v", err)
	}
}

func TestClassifyRole(t *testing.T) {
	if r := ClassifyRole(seq([]int{72, 76, 79}, 10)); r != score.RoleMelody {
		t.Fatalf("high voice: got %q", r)
	}
	if r := ClassifyRole(seq([]int{36, 43, 40}, 10)); r != score.RoleBass {
		t.Fatalf("low voice: got %q", r)
	}
	if r := ClassifyRole(seq([]int{60, 64}, 10)); r != score.RoleInnerVoice {
		t.Fatalf("middle voice: got %q", r)
	}
}
