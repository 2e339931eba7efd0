package rules

import (
	"fmt"
	"hash/fnv"
	"math"
	"sort"

	"github.com/janoschsimon/Digital-Director/features"
	"github.com/janoschsimon/Digital-Director/score"
)

// Combination bounds, as fractions of the source note.
const (
	MaxTimingFraction = 0.5
	MinDurationScale  = 0.25
	MaxDurationScale  = 2.0
)

// Settings are the run-wide weights applied to every combined delta.
type Settings struct {
	// TimingDirectionBias in [-1,1]: positive damps accelerations from
	// directional rules, negative damps their delays.
	TimingDirectionBias  float64
	MelodicImportance    float64
	BassImportance       float64
	InnerVoiceImportance float64
	// TimingScale converts a summed timing factor into a fraction of the
	// note duration.
	TimingScale float64
	Seed        uint64
}

// DefaultSettings returns neutral weights.
func DefaultSettings() Settings {
	return Settings{
		MelodicImportance:    1,
		BassImportance:       1,
		InnerVoiceImportance: 1,
		TimingScale:          0.1,
	}
}

// Importance returns the weight for a role. Unknown voices use the melodic weight.
func (s Settings) Importance(role score.Role) float64 {
	switch role {
	case score.RoleBass:
		return s.BassImportance
	case score.RoleInnerVoice:
		return s.InnerVoiceImportance
	}
	return s.MelodicImportance
}

func (s Settings) bias(v float64) float64 {
	b := math.Max(-1, math.Min(1, s.TimingDirectionBias))
	switch {
	case b > 0 && v < 0:
		return v * (1 - b)
	case b < 0 && v > 0:
		return v * (1 + b)
	}
	return v
}

// Result is the combined adjustment for one note.
type Result struct {
	TimingTicks    int64
	VelocityFactor float64
	DurationScale  float64
	Applied        []string
}

// Stats counts rule applications per rule name.
type Stats map[string]int

// Names returns the counted rule names in sorted order.
func (s Stats) Names() []string {
	out := make([]string, 0, len(s))
	for k := range s {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

type boundRule struct {
	def    Definition
	params Params
}

// Combinator evaluates the enabled rules of each category in registry order.
// It is immutable after construction and safe for concurrent use.
type Combinator struct {
	sets     map[Category][]boundRule
	settings Settings
}

// NewCombinator validates configs and binds the enabled rules. Disabled rules
// are validated but never bound.
func NewCombinator(configs map[Category]map[string]Config, settings Settings) (*Combinator, error) {
	c := &Combinator{sets: make(map[Category][]boundRule), settings: settings}
	for cat, set := range configs {
		if _, ok := registry[cat]; !ok {
			return nil, fmt.Errorf("unknown rule category %q", cat)
		}
		for name, cfg := range set {
			if err := Validate(cat, name, cfg); err != nil {
				return nil, err
			}
		}
	}
	for _, cat := range Categories {
		set := configs[cat]
		for _, def := range registry[cat] {
			cfg, ok := set[def.Name]
			if !ok || !cfg.Enabled {
				continue
			}
			c.sets[cat] = append(c.sets[cat], boundRule{def: def, params: cfg.Params})
		}
	}
	return c, nil
}

// Settings returns the weights the combinator was built with.
func (c *Combinator) Settings() Settings { return c.settings }

// Enabled returns the bound rule names of a category in evaluation order.
func (c *Combinator) Enabled(cat Category) []string {
	out := make([]string, 0, len(c.sets[cat]))
	for _, b := range c.sets[cat] {
		out = append(out, b.def.Name)
	}
	return out
}

// Apply runs the rules for one voice. notes and analysis must come from the
// same features.Extract call.
func (c *Combinator) Apply(notes []score.Note, a *features.Analysis, role score.Role, ticksPerBeat int) ([]Result, Stats) {
	if ticksPerBeat <= 0 {
		ticksPerBeat = score.DefaultTicksPerBeat
	}
	cat := CategoryFor(role)
	weight := c.settings.Importance(role)
	stats := make(Stats)
	out := make([]Result, len(notes))

	for i, n := range notes {
		acc := Identity()
		var applied []string
		for _, b := range c.sets[cat] {
			d, ok := b.def.Apply(Input{
				Note:         n,
				Record:       a.Records[i],
				Params:       b.params,
				Acc:          acc,
				TicksPerBeat: ticksPerBeat,
				Jitter:       jitter(c.settings.Seed, b.def.Name, i),
			})
			if !ok {
				continue
			}
			acc.Timing += d.Timing
			acc.Directional += c.settings.bias(d.Directional)
			acc.Velocity *= d.Velocity
			acc.Duration *= d.Duration
			applied = append(applied, b.def.Name)
			stats[b.def.Name]++
		}
		out[i] = c.combine(n, acc, weight)
		out[i].Applied = applied
	}
	return out, stats
}

func (c *Combinator) combine(n score.Note, acc Delta, weight float64) Result {
	frac := (acc.Timing + acc.Directional) * weight * c.settings.TimingScale
	frac = math.Max(-MaxTimingFraction, math.Min(MaxTimingFraction, frac))

	vel := math.Max(0, 1+(acc.Velocity-1)*weight)
	dur := 1 + (acc.Duration-1)*weight
	dur = math.Max(MinDurationScale, math.Min(MaxDurationScale, dur))

	return Result{
		TimingTicks:    int64(math.Round(frac * float64(n.Duration))),
		VelocityFactor: vel,
		DurationScale:  dur,
	}
}

// jitter maps (seed, rule, index) to a reproducible value in [-1, 1].
func jitter(seed uint64, rule string, index int) float64 {
	h := fnv.New64a()
	var buf [16]byte
	for i := 0; i < 8; i++ {
		buf[i] = byte(seed >> (8 * i))
		buf[8+i] = byte(uint64(index) >> (8 * i))
	}
	h.Write(buf[:])
	h.Write([]byte(rule))
	return float64(h.Sum64()>>11)/float64(1<<53)*2 - 1
}
