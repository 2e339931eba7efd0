package rules

import (
	"fmt"

	"github.com/janoschsimon/Digital-Director/features"
	"github.com/janoschsimon/Digital-Director/score"
)

// Category selects the rule set a voice is interpreted with.
type Category string

const (
	Melody Category = "melody"
	Bass   Category = "bass"
	Inner  Category = "inner"
)

// Categories lists every category in configuration order.
var Categories = []Category{Melody, Bass, Inner}

// CategoryFor maps a voice role to its rule set. Unknown voices use the
// melody rules.
func CategoryFor(role score.Role) Category {
	switch role {
	case score.RoleBass:
		return Bass
	case score.RoleInnerVoice:
		return Inner
	}
	return Melody
}

// Delta is one rule's contribution, or the running total for a note.
// Timing and Directional are signed fractions of the note duration and sum;
// Velocity and Duration are multipliers.
type Delta struct {
	Timing      float64
	Directional float64
	Velocity    float64
	Duration    float64
}

// Identity is the contribution of a rule that changes nothing.
func Identity() Delta { return Delta{Velocity: 1, Duration: 1} }

// Input is everything a rule may look at for one note.
type Input struct {
	Note         score.Note
	Record       features.Record
	Params       Params
	Acc          Delta
	TicksPerBeat int
	// Jitter is a reproducible value in [-1, 1] for this rule and note.
	Jitter float64
}

func (in Input) beats() float64 { return float64(in.Note.Duration) / float64(in.TicksPerBeat) }

// Func evaluates one rule. ok is false when the rule does not apply.
type Func func(in Input) (d Delta, ok bool)

// Definition registers a rule implementation under its configuration name.
type Definition struct {
	Name     string
	Category Category
	Required []string
	Lists    []string
	Apply    Func
}

// registry holds each category's rules in evaluation order. Later rules read
// the deltas accumulated by earlier ones.
var registry = map[Category][]Definition{
	Melody: melodyRules,
	Bass:   bassRules,
	Inner:  innerRules,
}

// Order returns the evaluation order of a category.
func Order(c Category) []string {
	defs := registry[c]
	out := make([]string, len(defs))
	for i, d := range defs {
		out[i] = d.Name
	}
	return out
}

// Lookup finds a registered rule.
func Lookup(c Category, name string) (Definition, bool) {
	for _, d := range registry[c] {
		if d.Name == name {
			return d, true
		}
	}
	return Definition{}, false
}

// Config is the loaded state of one rule.
type Config struct {
	Enabled bool
	Params  Params
}

// Validate checks a rule config against its registered definition.
func Validate(c Category, name string, cfg Config) error {
	def, ok := Lookup(c, name)
	if !ok {
		return fmt.Errorf("unknown %s rule %q", c, name)
	}
	for _, p := range def.Required {
		if _, ok := cfg.Params.values[p]; !ok {
			return fmt.Errorf("%s.%s: missing required param %q", c, name, p)
		}
	}
	for _, p := range def.Lists {
		if _, ok := cfg.Params.lists[p]; !ok {
			return fmt.Errorf("%s.%s: missing required list param %q", c, name, p)
		}
	}
	return nil
}

// minScale limits a shortening factor so the note keeps at least minTicks.
func minScale(duration int64, scale, minTicks float64) float64 {
	if duration <= 0 || scale >= 1 {
		return scale
	}
	floor := minTicks / float64(duration)
	if floor >= 1 {
		return 1
	}
	if scale < floor {
		return floor
	}
	return scale
}
