package rules

import "sort"

// Params holds the numeric parameters of one rule. A few rules also take
// lists, e.g. inner_consonant's consonant_intervals.
type Params struct {
	values map[string]float64
	lists  map[string][]float64
}

// NewParams copies values and lists into an immutable parameter set.
func NewParams(values map[string]float64, lists map[string][]float64) Params {
	p := Params{values: make(map[string]float64, len(values)), lists: make(map[string][]float64, len(lists))}
	for k, v := range values {
		p.values[k] = v
	}
	for k, v := range lists {
		p.lists[k] = append([]float64(nil), v...)
	}
	return p
}

// Float returns a scalar parameter, zero when absent.
func (p Params) Float(name string) float64 { return p.values[name] }

// FloatOr returns a scalar parameter or def when absent.
func (p Params) FloatOr(name string, def float64) float64 {
	if v, ok := p.values[name]; ok {
		return v
	}
	return def
}

// List returns a list parameter.
func (p Params) List(name string) []float64 { return p.lists[name] }

// Has reports whether name is present as a scalar or a list.
func (p Params) Has(name string) bool {
	if _, ok := p.values[name]; ok {
		return true
	}
	_, ok := p.lists[name]
	return ok
}

// Names returns all parameter names in sorted order.
func (p Params) Names() []string {
	out := make([]string, 0, len(p.values)+len(p.lists))
	for k := range p.values {
		out = append(out, k)
	}
	for k := range p.lists {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
