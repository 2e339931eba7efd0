package conductor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"runtime"

	"github.com/janoschsimon/Digital-Director/articulation"
	"github.com/janoschsimon/Digital-Director/curve"
	"github.com/janoschsimon/Digital-Director/features"
	"github.com/janoschsimon/Digital-Director/internal/mathx"
	"github.com/janoschsimon/Digital-Director/preset"
	"github.com/janoschsimon/Digital-Director/score"
	"github.com/remeh/sizedwaitgroup"
)

// Conductor compiles scores into performances with one immutable
// configuration bundle. It is safe for concurrent use.
type Conductor struct {
	rules    *preset.RuleSet
	dynamics *preset.Dynamics
	catalog  *articulation.Catalog

	workers int
	channel uint8
	log     *slog.Logger
}

// New checks the bundle and applies options.
func New(bundle *preset.Bundle, opts ...Option) (*Conductor, error) {
	switch {
	case bundle == nil:
		return nil, &preset.ValidationError{Field: "bundle", Err: errors.New("nil configuration")}
	case bundle.Rules == nil || bundle.Rules.Combinator == nil:
		return nil, &preset.ValidationError{Field: "rules", Err: errors.New("not loaded")}
	case bundle.Dynamics == nil || bundle.Dynamics.Velocity == nil || bundle.Dynamics.Curves == nil:
		return nil, &preset.ValidationError{Field: "dynamics", Err: errors.New("not loaded")}
	case bundle.Catalog == nil:
		return nil, &preset.ValidationError{Field: "articulations", Err: errors.New("not loaded")}
	}
	c := &Conductor{
		rules:    bundle.Rules,
		dynamics: bundle.Dynamics,
		catalog:  bundle.Catalog,
		workers:  runtime.NumCPU(),
		log:      slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type voiceResult struct {
	perf *VoicePerformance
	err  error
	warn error
}

// Compile renders every voice of s. Voices run concurrently; the result keeps
// input voice order. A malformed voice is skipped and reported in
// Performance.Errors. The only returned error is ctx's.
func (c *Conductor) Compile(ctx context.Context, s *score.Score) (*Performance, error) {
	if s == nil {
		return &Performance{}, nil
	}
	tpb, bpm := s.Resolution()
	opts := c.rules.Phrases.Options(tpb, bpm)

	results := make([]voiceResult, len(s.Voices))
	wg := sizedwaitgroup.New(c.workers)
	for i := range s.Voices {
		if err := ctx.Err(); err != nil {
			wg.Wait()
			return nil, err
		}
		wg.Add()
		go func(i int) {
			defer wg.Done()
			if ctx.Err() != nil {
				return
			}
			results[i] = c.compileVoice(s.Voices[i], opts, tpb)
		}(i)
	}
	wg.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p := &Performance{TicksPerBeat: tpb}
	for i, r := range results {
		if r.err != nil {
			c.log.Error("voice skipped", "voice", s.Voices[i].Name, "error", r.err)
			p.Errors = append(p.Errors, r.err)
			continue
		}
		if r.warn != nil {
			p.Warnings = append(p.Warnings, r.warn)
		}
		p.Voices = append(p.Voices, *r.perf)
	}
	return p, nil
}

func (c *Conductor) compileVoice(v score.Voice, opts features.Options, tpb int) voiceResult {
	a, err := features.Extract(v.Name, v.Notes, opts)
	if err != nil {
		return voiceResult{err: err}
	}
	role := v.Role
	if role == score.RoleUnknown || role == "" {
		role = features.ClassifyRole(v.Notes)
		c.log.Debug("role inferred", "voice", v.Name, "role", role)
	}

	results, stats := c.rules.Combinator.Apply(v.Notes, a, role, tpb)
	vm := c.dynamics.Velocity
	notes := make([]score.AdjustedNote, len(v.Notes))
	for i, n := range v.Notes {
		r := results[i]
		notes[i] = score.AdjustedNote{
			Source:   n,
			Start:    mathx.MaxInt64(0, n.Start+r.TimingTicks),
			Duration: mathx.MaxInt64(1, int64(math.Round(float64(n.Duration)*r.DurationScale))),
			Velocity: vm.Map(float64(n.Velocity)*r.VelocityFactor, role),
		}
		if len(r.Applied) > 0 {
			c.log.Debug("rules applied", "voice", v.Name, "note", i, "rules", r.Applied,
				"ticks", r.TimingTicks, "velocity", r.VelocityFactor, "duration", r.DurationScale)
		}
	}

	perf := &VoicePerformance{
		Name:    v.Name,
		Role:    role,
		Channel: c.channel,
		Notes:   notes,
		Stats:   stats,
	}
	perf.Curves = c.curves(a, notes, role, tpb)
	track := v.Instrument
	if track == "" {
		track = v.Name
	}
	keyswitches, warn := c.articulate(track, a, v.Notes, notes)
	perf.Keyswitches = keyswitches
	if warn != nil {
		c.log.Warn("no keyswitches", "voice", v.Name, "error", warn)
	}

	c.log.Info("voice compiled",
		"voice", v.Name,
		"role", role,
		"notes", len(notes),
		"phrases", len(a.Phrases),
		"keyswitches", len(perf.Keyswitches),
		"rules", len(stats.Names()))
	return voiceResult{perf: perf, warn: warn}
}

// curves builds one filtered dynamics curve per phrase around the mapped
// note velocities.
func (c *Conductor) curves(a *features.Analysis, notes []score.AdjustedNote, role score.Role, tpb int) []PhraseCurve {
	out := make([]PhraseCurve, 0, len(a.Phrases))
	for _, ph := range a.Phrases {
		ctxs := make([]curve.NoteContext, 0, ph.Len())
		for i := ph.Start; i <= ph.End; i++ {
			r := a.Records[i]
			ctxs = append(ctxs, curve.NoteContext{
				Start:        notes[i].Start,
				Duration:     notes[i].Duration,
				Index:        i,
				Level:        float64(notes[i].Velocity),
				Role:         role,
				PhraseStart:  r.IsPhraseStart(),
				PhraseEnd:    r.IsPhraseEnd(),
				LocalPeak:    r.IsLocalPeak,
				TicksPerBeat: tpb,
			})
		}
		out = append(out, PhraseCurve{Phrase: ph, Points: c.dynamics.Curves.PhraseCurve(ctxs)})
	}
	return out
}

// articulate chooses an articulation per phrase and emits a keyswitch only
// where it changes. An unresolvable track yields no keyswitches and a warning.
func (c *Conductor) articulate(track string, a *features.Analysis, src []score.Note, notes []score.AdjustedNote) ([]articulation.KeyswitchEvent, error) {
	inst, err := c.catalog.Resolve(track)
	if err != nil {
		return nil, err
	}
	var (
		out  []articulation.KeyswitchEvent
		last string
	)
	for _, ph := range a.Phrases {
		st := articulation.GroupStats(src[ph.Start : ph.End+1])
		_, ch, err := c.catalog.Choose(track, st)
		if err != nil {
			return out, err
		}
		if ch.Articulation == last {
			continue
		}
		at := notes[ph.Start].Start
		for i := ph.Start + 1; i <= ph.End; i++ {
			if notes[i].Start < at {
				at = notes[i].Start
			}
		}
		ev, err := c.catalog.Event(inst, ch, at)
		if err != nil {
			return out, fmt.Errorf("voice %s phrase %d: %w", track, ph.Index, err)
		}
		out = append(out, ev)
		last = ch.Articulation
	}
	return out, nil
}
