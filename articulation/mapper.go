package articulation

import (
	"sort"
	"strings"
)

type alias struct {
	instrument string
	pattern    string
}

// Mapper resolves free-form track names to configured instrument names.
type Mapper struct {
	aliases []alias
	custom  map[string]string
}

// NewMapper builds a mapper from instrument aliases and exact overrides.
// Longer aliases are tried first so "basso continuo" beats "bass".
func NewMapper(aliases map[string][]string, custom map[string]string) *Mapper {
	m := &Mapper{custom: make(map[string]string, len(custom))}
	for track, inst := range custom {
		m.custom[strings.TrimSpace(track)] = inst
	}
	for inst, pats := range aliases {
		for _, p := range pats {
			p = strings.ToLower(strings.TrimSpace(p))
			if p == "" {
				continue
			}
			m.aliases = append(m.aliases, alias{instrument: inst, pattern: p})
		}
	}
	sort.Slice(m.aliases, func(i, j int) bool {
		a, b := m.aliases[i], m.aliases[j]
		if len(a.pattern) != len(b.pattern) {
			return len(a.pattern) > len(b.pattern)
		}
		if a.instrument != b.instrument {
			return a.instrument < b.instrument
		}
		return a.pattern < b.pattern
	})
	return m
}

// Resolve returns the instrument for a track name. Exact custom mappings win
// over case-insensitive alias substrings.
func (m *Mapper) Resolve(track string) (string, bool) {
	name := strings.TrimSpace(track)
	if inst, ok := m.custom[name]; ok {
		return inst, true
	}
	lower := strings.ToLower(name)
	if lower == "" {
		return "", false
	}
	for _, a := range m.aliases {
		if strings.Contains(lower, a.pattern) {
			return a.instrument, true
		}
	}
	return "", false
}
