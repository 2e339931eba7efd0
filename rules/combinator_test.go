package rules

import (
	"math"
	"reflect"
	"strings"
	"testing"

	"github.com/janoschsimon/Digital-Director/features"
	"github.com/janoschsimon/Digital-Director/score"
)

func line(pitches []int, dur int64) []score.Note {
	out := make([]score.Note, len(pitches))
	for i, p := range pitches {
		out[i] = score.Note{Pitch: p, Start: int64(i) * dur, Duration: dur, Velocity: 80, Role: score.RoleMelody}
	}
	return out
}

func run(t *testing.T, notes []score.Note, cfg map[string]Config, s Settings) []Result {
	t.Helper()
	c, err := NewCombinator(map[Category]map[string]Config{Melody: cfg}, s)
	if err != nil {
		t.Fatalf("NewCombinator: %v", err)
	}
	a, err := features.Extract("test", notes, features.DefaultOptions(480, 4))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	res, _ := c.Apply(notes, a, score.RoleMelody, 480)
	return res
}

func phraseEndConfig(lengthFactor float64) Config {
	return Config{Enabled: true, Params: NewParams(map[string]float64{
		"timing_delay_factor":       0.8,
		"velocity_decrease_factor":  0.05,
		"length_increase_factor":    lengthFactor,
		"length_increase_threshold": 50,
	}, nil)}
}

func shortNoteConfig() Config {
	return Config{Enabled: true, Params: NewParams(map[string]float64{
		"very_short_reduction": 0.05,
		"short_reduction":      0.08,
		"velocity_increase":    0.06,
		"very_short_threshold": 0.0625,
		"short_threshold":      0.125,
	}, nil)}
}

func TestDurationScaleCeiling(t *testing.T) {
	notes := line([]int{60, 62, 64, 65}, 100)
	res := run(t, notes, map[string]Config{"phrase_end": phraseEndConfig(1.5)}, DefaultSettings())
	last := res[3]
	if last.DurationScale != MaxDurationScale {
		t.Fatalf("expected duration scale clamped to %.1f, got %f", MaxDurationScale, last.DurationScale)
	}
	if last.TimingTicks != 8 {
		t.Fatalf("expected phrase end delay of 8 ticks, got %d", last.TimingTicks)
	}
	for i := 0; i < 3; i++ {
		if res[i].DurationScale != 1 || len(res[i].Applied) != 0 {
			t.Fatalf("note %d should be untouched: %+v", i, res[i])
		}
	}
}

func TestDurationScaleCeilingStackedRules(t *testing.T) {
	notes := line([]int{60, 62, 64, 65}, 960)
	cfg := map[string]Config{
		"phrase_end": phraseEndConfig(0.6),
		"long_note": {Enabled: true, Params: NewParams(map[string]float64{
			"velocity_increase": 0.05,
			"threshold":         1.0,
			"length_increase":   0.5,
		}, nil)},
	}
	res := run(t, notes, cfg, DefaultSettings())
	if got := res[0].DurationScale; math.Abs(got-1.5) > 1e-9 {
		t.Fatalf("expected long note alone to stretch by 1.5, got %f", got)
	}
	last := res[3]
	if last.DurationScale != MaxDurationScale {
		t.Fatalf("expected stacked scale 1.6*1.5 clamped to %.1f, got %f", MaxDurationScale, last.DurationScale)
	}
	if !reflect.DeepEqual(last.Applied, []string{"phrase_end", "long_note"}) {
		t.Fatalf("unexpected rules on last note: %v", last.Applied)
	}
}

func phraseStartConfig() Config {
	return Config{Enabled: true, Params: NewParams(map[string]float64{
		"first_note_timing_factor":    -0.7,
		"second_note_timing_factor":   0.3,
		"velocity_increase_factor":    0.07,
		"second_note_velocity_factor": 0.03,
		"phrase_position_threshold":   0.1,
		"min_duration":                3,
	}, nil)}
}

func TestPhraseStartSecondNotePosition(t *testing.T) {
	cfg := map[string]Config{"phrase_start": phraseStartConfig()}

	short := run(t, line([]int{60, 62, 64, 65}, 100), cfg, DefaultSettings())
	if !reflect.DeepEqual(short[0].Applied, []string{"phrase_start"}) || short[0].TimingTicks >= 0 {
		t.Fatalf("first note should be pulled earlier: %+v", short[0])
	}
	if len(short[1].Applied) != 0 || short[1].TimingTicks != 0 || short[1].VelocityFactor != 1 {
		t.Fatalf("second note at position 0.33 should be untouched: %+v", short[1])
	}

	long := run(t, line([]int{60, 62, 64, 65, 67, 69, 71, 72}, 100), cfg, DefaultSettings())
	if !reflect.DeepEqual(long[1].Applied, []string{"phrase_start"}) || long[1].TimingTicks <= 0 {
		t.Fatalf("second note at position 0.14 should be pushed later: %+v", long[1])
	}
	if math.Abs(long[1].VelocityFactor-1.03) > 1e-9 {
		t.Fatalf("second note velocity factor = %f, want 1.03", long[1].VelocityFactor)
	}
}

func TestTimingClampedToHalfDuration(t *testing.T) {
	notes := line([]int{60, 62, 64, 65}, 100)
	cfg := phraseEndConfig(0)
	cfg.Params.values["timing_delay_factor"] = 40
	res := run(t, notes, map[string]Config{"phrase_end": cfg}, DefaultSettings())
	if res[3].TimingTicks != 50 {
		t.Fatalf("expected timing clamp at 50 ticks, got %d", res[3].TimingTicks)
	}
}

func TestShortNoteKeepsStretchedLength(t *testing.T) {
	notes := line([]int{60, 62, 64, 65}, 100)
	res := run(t, notes, map[string]Config{
		"phrase_end": phraseEndConfig(0.1),
		"short_note": shortNoteConfig(),
	}, DefaultSettings())

	if math.Abs(res[3].DurationScale-1.1) > 1e-9 {
		t.Fatalf("stretched note must not be shortened: got %f", res[3].DurationScale)
	}
	if !reflect.DeepEqual(res[3].Applied, []string{"phrase_end", "short_note"}) {
		t.Fatalf("applied order mismatch: %v", res[3].Applied)
	}
	// 100 ticks at 480 tpb is above short_threshold, so 0.75 of short_reduction.
	if math.Abs(res[0].DurationScale-0.94) > 1e-9 {
		t.Fatalf("expected eighth-note reduction to 0.94, got %f", res[0].DurationScale)
	}
}

func TestDisabledRuleMatchesAbsentRule(t *testing.T) {
	notes := line([]int{60, 62, 64, 65, 67}, 100)
	disabled := phraseEndConfig(0.5)
	disabled.Enabled = false

	with := run(t, notes, map[string]Config{"phrase_end": disabled, "short_note": shortNoteConfig()}, DefaultSettings())
	without := run(t, notes, map[string]Config{"short_note": shortNoteConfig()}, DefaultSettings())
	if !reflect.DeepEqual(with, without) {
		t.Fatalf("disabled rule changed output:\nwith=%+v\nwithout=%+v", with, without)
	}
}

func TestDirectionBiasDampsAccelerations(t *testing.T) {
	notes := line([]int{60, 64, 68}, 480)
	cfg := map[string]Config{"directional_timing": {Enabled: true, Params: NewParams(map[string]float64{
		"up_acceleration_factor": -0.5,
		"down_delay_factor":      0.4,
		"interval_threshold":     2,
		"velocity_adjustment":    0.04,
	}, nil)}}

	neutral := run(t, notes, cfg, DefaultSettings())
	if neutral[1].TimingTicks != -14 {
		t.Fatalf("expected -14 ticks for a rising third, got %d", neutral[1].TimingTicks)
	}

	s := DefaultSettings()
	s.TimingDirectionBias = 1
	biased := run(t, notes, cfg, s)
	if biased[1].TimingTicks != 0 {
		t.Fatalf("full positive bias should remove accelerations, got %d", biased[1].TimingTicks)
	}
	if biased[1].VelocityFactor != neutral[1].VelocityFactor {
		t.Fatalf("bias must only affect timing")
	}
}

func TestImportanceScalesDeltas(t *testing.T) {
	notes := line([]int{60, 62, 64, 65}, 100)
	s := DefaultSettings()
	s.MelodicImportance = 0.5
	res := run(t, notes, map[string]Config{"phrase_end": phraseEndConfig(0.2)}, s)
	if math.Abs(res[3].DurationScale-1.1) > 1e-9 {
		t.Fatalf("expected half-weighted duration 1.1, got %f", res[3].DurationScale)
	}
	if math.Abs(res[3].VelocityFactor-0.975) > 1e-9 {
		t.Fatalf("expected half-weighted velocity 0.975, got %f", res[3].VelocityFactor)
	}
	if res[3].TimingTicks != 4 {
		t.Fatalf("expected half-weighted delay of 4 ticks, got %d", res[3].TimingTicks)
	}
}

func TestNewCombinatorValidation(t *testing.T) {
	_, err := NewCombinator(map[Category]map[string]Config{Melody: {"nope": {Enabled: true}}}, DefaultSettings())
	if err == nil || !strings.Contains(err.Error(), "nope") {
		t.Fatalf("expected unknown rule error, got %v", err)
	}

	cfg := phraseEndConfig(0.1)
	delete(cfg.Params.values, "length_increase_threshold")
	_, err = NewCombinator(map[Category]map[string]Config{Melody: {"phrase_end": cfg}}, DefaultSettings())
	if err == nil || !strings.Contains(err.Error(), "length_increase_threshold") {
		t.Fatalf("expected missing param error, got %v", err)
	}

	// disabled rules are still validated
	cfg.Enabled = false
	if _, err := NewCombinator(map[Category]map[string]Config{Melody: {"phrase_end": cfg}}, DefaultSettings()); err == nil {
		t.Fatalf("expected validation error for disabled rule")
	}

	inner := Config{Enabled: true, Params: NewParams(map[string]float64{"length_increase_factor": 0.05}, nil)}
	if _, err := NewCombinator(map[Category]map[string]Config{Inner: {"inner_consonant": inner}}, DefaultSettings()); err == nil {
		t.Fatalf("expected missing list param error")
	}
}

func TestOrderIsFixed(t *testing.T) {
	m := Order(Melody)
	if m[0] != "phrase_start" || m[len(m)-1] != "short_note" {
		t.Fatalf("unexpected melody order: %v", m)
	}
	b := Order(Bass)
	if !reflect.DeepEqual(b, []string{"bass_downbeat", "bass_phrase_end", "bass_repeated", "bass_short"}) {
		t.Fatalf("unexpected bass order: %v", b)
	}
	if len(Order(Inner)) != 5 {
		t.Fatalf("unexpected inner order: %v", Order(Inner))
	}
}

func TestJitterIsReproducible(t *testing.T) {
	for i := 0; i < 100; i++ {
		a := jitter(7, "inner_timing_flow", i)
		if a != jitter(7, "inner_timing_flow", i) {
			t.Fatalf("jitter not deterministic at %d", i)
		}
		if a < -1 || a > 1 {
			t.Fatalf("jitter out of range: %f", a)
		}
	}
	if jitter(1, "x", 0) == jitter(2, "x", 0) {
		t.Fatalf("seed should change jitter")
	}
}
