package articulation

import (
	"fmt"
	"sort"
)

// Lengths are a family's named note length thresholds in ticks.
type Lengths struct {
	VeryShort float64
	Short     float64
	Medium    float64
	Long      float64
}

// Rule is one ordered articulation rule.
type Rule struct {
	Condition    string
	Articulation string
	Description  string
}

// Style controls how keyswitch notes are emitted for a family.
type Style struct {
	// Lead is how many ticks before the passage the keyswitch sounds.
	Lead     int64
	Velocity int
	Length   int64
}

// DefaultStyle returns the keyswitch style used when a family sets none.
func DefaultStyle(family string) Style {
	switch family {
	case "harpsichord":
		return Style{Lead: 20, Velocity: 127, Length: 10}
	case "continuo":
		return Style{Lead: 15, Velocity: 120, Length: 5}
	}
	return Style{Lead: 10, Velocity: 100, Length: 1}
}

// Family is the articulation rule set of one instrument family.
type Family struct {
	Name    string
	Lengths Lengths
	Default string
	Rules   []Rule
	Style   Style
}

type compiledFamily struct {
	Family
	preds []predicate
}

// Choice is the outcome of a selection. Rule is -1 when the default applied.
type Choice struct {
	Family       string
	Articulation string
	Description  string
	Rule         int
}

// Selector picks articulations by evaluating each family's rules in
// declaration order. The first matching rule wins.
type Selector struct {
	families map[string]*compiledFamily
}

// NewSelector compiles every rule condition up front.
func NewSelector(families []Family) (*Selector, error) {
	s := &Selector{families: make(map[string]*compiledFamily, len(families))}
	for _, f := range families {
		if f.Name == "" {
			return nil, fmt.Errorf("articulation family without name")
		}
		if f.Default == "" {
			return nil, fmt.Errorf("articulation_rules.%s: missing default", f.Name)
		}
		if _, dup := s.families[f.Name]; dup {
			return nil, fmt.Errorf("articulation_rules.%s: duplicate family", f.Name)
		}
		if f.Style == (Style{}) {
			f.Style = DefaultStyle(f.Name)
		}
		cf := &compiledFamily{Family: f}
		for i, r := range f.Rules {
			if r.Articulation == "" {
				return nil, fmt.Errorf("articulation_rules.%s.rules[%d]: missing articulation", f.Name, i)
			}
			p, err := compileCondition(r.Condition)
			if err != nil {
				return nil, fmt.Errorf("articulation_rules.%s.rules[%d]: %w", f.Name, i, err)
			}
			cf.preds = append(cf.preds, p)
		}
		s.families[f.Name] = cf
	}
	return s, nil
}

// Families returns the configured family names in sorted order.
func (s *Selector) Families() []string {
	out := make([]string, 0, len(s.families))
	for name := range s.families {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Family returns a configured family.
func (s *Selector) Family(name string) (Family, bool) {
	cf, ok := s.families[name]
	if !ok {
		return Family{}, false
	}
	return cf.Family, true
}

// Select returns the articulation for stats played by family.
func (s *Selector) Select(family string, st Stats) (Choice, error) {
	cf, ok := s.families[family]
	if !ok {
		return Choice{}, &UnrecognizedInstrumentError{Family: family, Instrument: family}
	}
	l := cf.Lengths
	for i, p := range cf.preds {
		if p(st.AvgNoteLength, st.AvgVelocity, st.IntervalSize, float64(st.NoteCount), l.VeryShort, l.Short, l.Medium, l.Long) {
			r := cf.Rules[i]
			return Choice{Family: family, Articulation: r.Articulation, Description: r.Description, Rule: i}, nil
		}
	}
	return Choice{Family: family, Articulation: cf.Default, Description: "default", Rule: -1}, nil
}
