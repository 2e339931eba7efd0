package conductor

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"math"
	"reflect"
	"testing"

	"github.com/janoschsimon/Digital-Director/articulation"
	"github.com/janoschsimon/Digital-Director/preset"
	"github.com/janoschsimon/Digital-Director/score"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// bundleWith returns the default bundle with only the named rules enabled.
// Without names every default rule setting is kept.
func bundleWith(t *testing.T, enabled ...string) *preset.Bundle {
	t.Helper()
	b, err := preset.Default()
	if err != nil {
		t.Fatalf("preset.Default: %v", err)
	}
	if len(enabled) == 0 {
		return b
	}
	raw, err := preset.DefaultDocument("rules")
	if err != nil {
		t.Fatalf("DefaultDocument: %v", err)
	}
	var f preset.RulesFile
	if err := json.Unmarshal(raw, &f); err != nil {
		t.Fatalf("decode rules: %v", err)
	}
	on := make(map[string]bool, len(enabled))
	for _, name := range enabled {
		on[name] = true
	}
	for cat, set := range f.Rules {
		for name, entry := range set {
			v := on[name]
			entry.Enabled = &v
			f.Rules[cat][name] = entry
		}
	}
	if b.Rules, err = preset.ApplyRules("rules.json", &f); err != nil {
		t.Fatalf("ApplyRules: %v", err)
	}
	return b
}

func newConductor(t *testing.T, b *preset.Bundle, opts ...Option) *Conductor {
	t.Helper()
	c, err := New(b, append([]Option{WithLogger(quietLogger())}, opts...)...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func melody(start int64, dur int64, vel int, pitches ...int) []score.Note {
	out := make([]score.Note, len(pitches))
	for i, p := range pitches {
		out[i] = score.Note{Pitch: p, Start: start + int64(i)*dur, Duration: dur, Velocity: vel}
	}
	return out
}

func TestCompileFourNotePhrase(t *testing.T) {
	b := bundleWith(t, "phrase_start", "pre_leap", "phrase_end")
	c := newConductor(t, b)
	const start, dur = 1920, 480
	s := &score.Score{TicksPerBeat: 480, Voices: []score.Voice{{
		Name:  "Baroque Violin 1",
		Role:  score.RoleMelody,
		Notes: melody(start, dur, 80, 60, 62, 69, 67),
	}}}

	perf, err := c.Compile(context.Background(), s)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if len(perf.Voices) != 1 || len(perf.Errors) != 0 || len(perf.Warnings) != 0 {
		t.Fatalf("unexpected result: voices=%d errors=%v warnings=%v", len(perf.Voices), perf.Errors, perf.Warnings)
	}
	v := perf.Voices[0]
	scale := b.Rules.Combinator.Settings().TimingScale
	ticks := func(f float64) int64 { return int64(math.Round(f * 1 * scale * dur)) }

	if got, want := v.Notes[0].TimingDelta(), ticks(-0.7); got != want || want >= 0 {
		t.Fatalf("note 1 timing = %d, want %d (earlier)", got, want)
	}
	if got, want := v.Notes[1].TimingDelta(), ticks(-0.12); got != want {
		t.Fatalf("note 2 timing = %d, want %d", got, want)
	}
	if got, want := v.Notes[1].Duration, int64(math.Round(dur*0.88)); got != want {
		t.Fatalf("note 2 duration = %d, want %d", got, want)
	}
	if got := v.Notes[2].TimingDelta(); got != 0 {
		t.Fatalf("leap target timing = %d, want 0", got)
	}
	if got, want := v.Notes[3].TimingDelta(), ticks(0.8); got != want || want <= 0 {
		t.Fatalf("note 4 timing = %d, want %d (later)", got, want)
	}
	if v.Notes[3].Duration != dur {
		t.Fatalf("last note should keep its length, got %d", v.Notes[3].Duration)
	}

	vm := b.Dynamics.Velocity
	wantVel := []int{
		vm.Map(80*1.07, score.RoleMelody),
		vm.Map(80, score.RoleMelody),
		vm.Map(80*1.12, score.RoleMelody),
		vm.Map(80*0.95, score.RoleMelody),
	}
	for i, n := range v.Notes {
		if n.Velocity != wantVel[i] {
			t.Fatalf("note %d velocity = %d, want %d", i+1, n.Velocity, wantVel[i])
		}
	}
	if v.Notes[3].Velocity != 110 {
		t.Fatalf("phrase end velocity = %d, want 110", v.Notes[3].Velocity)
	}
	if v.Stats["phrase_start"] != 1 || v.Stats["pre_leap"] != 2 || v.Stats["phrase_end"] != 1 {
		t.Fatalf("rule stats = %v", v.Stats)
	}

	if len(v.Keyswitches) != 1 {
		t.Fatalf("keyswitches = %+v", v.Keyswitches)
	}
	ks := v.Keyswitches[0]
	if ks.Key != "D0" || ks.Number != 26 || ks.Tick != v.Notes[0].Start-10 {
		t.Fatalf("keyswitch = %+v", ks)
	}

	if len(v.Curves) != 1 || len(v.Curves[0].Points) < 2 {
		t.Fatalf("curves = %+v", v.Curves)
	}
	prev := int64(-1)
	for _, p := range v.Curves[0].Points {
		if p.Tick < prev {
			t.Fatalf("curve ticks not ordered: %+v", v.Curves[0].Points)
		}
		prev = p.Tick
		if p.Value < 30 || p.Value > 115 {
			t.Fatalf("curve value %f outside dynamic range", p.Value)
		}
	}
}

func TestCompileCembaloKeyswitch(t *testing.T) {
	c := newConductor(t, bundleWith(t))
	s := &score.Score{Voices: []score.Voice{{
		Name:  "Cembalo",
		Role:  score.RoleMelody,
		Notes: melody(960, 200, 70, 60, 62, 64, 65),
	}}}
	perf, err := c.Compile(context.Background(), s)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	v := perf.Voices[0]
	if len(v.Keyswitches) != 1 {
		t.Fatalf("keyswitches = %+v", v.Keyswitches)
	}
	first := v.Notes[0].Start
	for _, n := range v.Notes {
		if n.Start < first {
			first = n.Start
		}
	}
	ks := v.Keyswitches[0]
	want := articulation.KeyswitchEvent{
		Tick:         first - 20,
		Key:          "C#6",
		Number:       97,
		Velocity:     127,
		Length:       10,
		Articulation: "Buff",
		Instrument:   "French Harpsichord",
	}
	if ks != want {
		t.Fatalf("keyswitch = %+v, want %+v", ks, want)
	}

	events := v.Events()
	var ch, key, vel uint8
	if !events[0].Message.GetNoteOn(&ch, &key, &vel) || key != 97 || events[0].Tick != want.Tick {
		t.Fatalf("first event should be the keyswitch, got %v at %d", events[0].Message, events[0].Tick)
	}
	for i := 1; i < len(events); i++ {
		if events[i].Tick < events[i-1].Tick {
			t.Fatalf("events not sorted at %d", i)
		}
	}
}

func TestCompileSkipsMalformedVoice(t *testing.T) {
	c := newConductor(t, bundleWith(t))
	s := &score.Score{Voices: []score.Voice{
		{Name: "Broken Violin", Role: score.RoleMelody, Notes: []score.Note{
			{Pitch: 60, Start: 480, Duration: 240, Velocity: 80},
			{Pitch: 62, Start: 0, Duration: 240, Velocity: 80},
		}},
		{Name: "Empty Viola", Role: score.RoleInnerVoice},
		{Name: "Basso", Role: score.RoleBass, Notes: melody(0, 480, 90, 36, 36, 43, 36)},
	}}
	perf, err := c.Compile(context.Background(), s)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if len(perf.Voices) != 1 || perf.Voices[0].Name != "Basso" {
		t.Fatalf("voices = %+v", perf.Voices)
	}
	if len(perf.Errors) != 2 {
		t.Fatalf("errors = %v", perf.Errors)
	}
	for _, err := range perf.Errors {
		var me *score.MalformedSequenceError
		if !errors.As(err, &me) {
			t.Fatalf("expected MalformedSequenceError, got %T: %v", err, err)
		}
	}
	if perf.Err() == nil {
		t.Fatalf("Err() should report skipped voices")
	}
}

func TestCompileUnrecognizedInstrumentWarns(t *testing.T) {
	c := newConductor(t, bundleWith(t))
	s := &score.Score{Voices: []score.Voice{{
		Name:  "Theremin",
		Role:  score.RoleMelody,
		Notes: melody(0, 240, 80, 72, 74, 76),
	}}}
	perf, err := c.Compile(context.Background(), s)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if len(perf.Voices) != 1 || len(perf.Voices[0].Keyswitches) != 0 {
		t.Fatalf("expected notes without keyswitches: %+v", perf.Voices)
	}
	if len(perf.Voices[0].Notes) != 3 {
		t.Fatalf("notes = %d", len(perf.Voices[0].Notes))
	}
	if len(perf.Warnings) != 1 {
		t.Fatalf("warnings = %v", perf.Warnings)
	}
	var ue *articulation.UnrecognizedInstrumentError
	if !errors.As(perf.Warnings[0], &ue) || ue.Track != "Theremin" {
		t.Fatalf("warning = %v", perf.Warnings[0])
	}
	if perf.Err() != nil {
		t.Fatalf("warnings must not fail the run: %v", perf.Err())
	}
}

func TestCompileUsesInstrumentOverName(t *testing.T) {
	c := newConductor(t, bundleWith(t))
	s := &score.Score{Voices: []score.Voice{{
		Name:       "Part 1",
		Instrument: "Flauto traverso",
		Role:       score.RoleMelody,
		Notes:      melody(0, 960, 80, 72, 74, 76),
	}}}
	perf, err := c.Compile(context.Background(), s)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if len(perf.Warnings) != 0 || len(perf.Voices[0].Keyswitches) != 1 {
		t.Fatalf("warnings=%v keyswitches=%+v", perf.Warnings, perf.Voices[0].Keyswitches)
	}
	if got := perf.Voices[0].Keyswitches[0].Instrument; got != "Baroque Flute" {
		t.Fatalf("instrument = %q", got)
	}
}

func TestCompileInfersRole(t *testing.T) {
	c := newConductor(t, bundleWith(t))
	s := &score.Score{Voices: []score.Voice{
		{Name: "Continuo", Notes: melody(0, 480, 80, 36, 38, 40, 41)},
		{Name: "Violin", Role: score.RoleUnknown, Notes: melody(0, 480, 80, 76, 77, 79, 81)},
	}}
	perf, err := c.Compile(context.Background(), s)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if perf.Voices[0].Role != score.RoleBass || perf.Voices[1].Role != score.RoleMelody {
		t.Fatalf("roles = %s, %s", perf.Voices[0].Role, perf.Voices[1].Role)
	}
}

func TestCompileCancelled(t *testing.T) {
	c := newConductor(t, bundleWith(t))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := &score.Score{Voices: []score.Voice{{Name: "Violin", Role: score.RoleMelody, Notes: melody(0, 480, 80, 60, 62, 64)}}}
	if _, err := c.Compile(ctx, s); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestCompileVelocityRangeAndDeterminism(t *testing.T) {
	b := bundleWith(t)
	roles := []score.Role{score.RoleMelody, score.RoleBass, score.RoleInnerVoice, score.RoleUnknown}
	var voices []score.Voice
	for vi, role := range roles {
		notes := make([]score.Note, 0, 128)
		var tick int64
		for v := 0; v <= 127; v++ {
			dur := int64(60 + (v*37)%900)
			notes = append(notes, score.Note{Pitch: 40 + (v*7+vi*5)%40, Start: tick, Duration: dur, Velocity: v})
			tick += dur + int64((v%5)*120)
		}
		voices = append(voices, score.Voice{Name: "Viola " + string(role), Role: role, Notes: notes})
	}
	s := &score.Score{TicksPerBeat: 480, Voices: voices}

	serial, err := newConductor(t, b, WithWorkers(1)).Compile(context.Background(), s)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	parallel, err := newConductor(t, b, WithWorkers(4)).Compile(context.Background(), s)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if !reflect.DeepEqual(serial.Voices, parallel.Voices) {
		t.Fatalf("output depends on worker count")
	}

	lo, hi := b.Dynamics.Velocity.Range()
	for _, v := range serial.Voices {
		for i, n := range v.Notes {
			if float64(n.Velocity) < lo || float64(n.Velocity) > hi {
				t.Fatalf("%s note %d velocity %d outside [%v,%v]", v.Name, i, n.Velocity, lo, hi)
			}
			if n.Duration < 1 || n.Start < 0 {
				t.Fatalf("%s note %d: %+v", v.Name, i, n)
			}
			src := float64(n.Source.Duration)
			if d := float64(n.Duration); d < math.Floor(0.25*src) || d > math.Ceil(2*src) {
				t.Fatalf("%s note %d duration %d outside clamp of %d", v.Name, i, n.Duration, n.Source.Duration)
			}
		}
	}
	if serial.NoteCount() != 4*128 {
		t.Fatalf("note count = %d", serial.NoteCount())
	}
}

func TestNewRejectsIncompleteBundle(t *testing.T) {
	b := bundleWith(t)
	b.Catalog = nil
	_, err := New(b)
	var ve *preset.ValidationError
	if !errors.As(err, &ve) || ve.Field != "articulations" {
		t.Fatalf("expected articulations validation error, got %v", err)
	}
	if _, err := New(nil); err == nil {
		t.Fatalf("expected error for nil bundle")
	}
}
