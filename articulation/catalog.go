package articulation

import (
	"fmt"
	"sort"
)

// Articulation is one keyswitch offered by an instrument.
type Articulation struct {
	Key    string
	Name   string
	Number int
}

// Instrument is a sampled instrument with its keyswitch layout.
type Instrument struct {
	Name          string
	Family        string
	Articulations map[string]Articulation
}

// Catalog ties track names to instruments and their family's rules.
type Catalog struct {
	mapper      *Mapper
	selector    *Selector
	instruments map[string]Instrument
}

// NewCatalog checks that every instrument belongs to a configured family and
// that every keyswitch name resolves to a MIDI note.
func NewCatalog(instruments []Instrument, mapper *Mapper, selector *Selector) (*Catalog, error) {
	c := &Catalog{mapper: mapper, selector: selector, instruments: make(map[string]Instrument, len(instruments))}
	for _, inst := range instruments {
		if inst.Family == "" {
			return nil, fmt.Errorf("instruments.%s: missing family", inst.Name)
		}
		fam, ok := selector.Family(inst.Family)
		if !ok {
			return nil, fmt.Errorf("instruments.%s: family %q has no articulation_rules", inst.Name, inst.Family)
		}
		arts := make(map[string]Articulation, len(inst.Articulations))
		for key, a := range inst.Articulations {
			a.Key = key
			if a.Number == 0 {
				n, err := KeyNumber(key)
				if err != nil {
					return nil, fmt.Errorf("instruments.%s.articulations: %w", inst.Name, err)
				}
				a.Number = n
			}
			arts[key] = a
		}
		for _, key := range append(ruleKeys(fam), fam.Default) {
			if _, ok := arts[key]; ok {
				continue
			}
			if _, err := KeyNumber(key); err != nil {
				return nil, fmt.Errorf("instruments.%s: family %s uses %w", inst.Name, fam.Name, err)
			}
		}
		inst.Articulations = arts
		c.instruments[inst.Name] = inst
	}
	return c, nil
}

func ruleKeys(f Family) []string {
	out := make([]string, 0, len(f.Rules))
	for _, r := range f.Rules {
		out = append(out, r.Articulation)
	}
	return out
}

// Instruments returns the configured instrument names in sorted order.
func (c *Catalog) Instruments() []string {
	out := make([]string, 0, len(c.instruments))
	for name := range c.instruments {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Resolve maps a track name to its instrument. It never guesses: a track
// matching no alias, or an instrument without a known family, is an
// *UnrecognizedInstrumentError.
func (c *Catalog) Resolve(track string) (Instrument, error) {
	name, ok := c.mapper.Resolve(track)
	if !ok {
		return Instrument{}, &UnrecognizedInstrumentError{Track: track}
	}
	inst, ok := c.instruments[name]
	if !ok {
		return Instrument{}, &UnrecognizedInstrumentError{Track: track, Instrument: name}
	}
	if _, ok := c.selector.Family(inst.Family); !ok {
		return Instrument{}, &UnrecognizedInstrumentError{Track: track, Instrument: name, Family: inst.Family}
	}
	return inst, nil
}

// Choose resolves the track and selects an articulation for stats.
func (c *Catalog) Choose(track string, st Stats) (Instrument, Choice, error) {
	inst, err := c.Resolve(track)
	if err != nil {
		return Instrument{}, Choice{}, err
	}
	ch, err := c.selector.Select(inst.Family, st)
	if err != nil {
		return Instrument{}, Choice{}, err
	}
	return inst, ch, nil
}

// Event builds the keyswitch event for a choice placed before tick.
func (c *Catalog) Event(inst Instrument, ch Choice, tick int64) (KeyswitchEvent, error) {
	fam, _ := c.selector.Family(inst.Family)
	style := fam.Style
	number := 0
	name := ch.Description
	if a, ok := inst.Articulations[ch.Articulation]; ok {
		number = a.Number
		if a.Name != "" {
			name = a.Name
		}
	} else {
		n, err := KeyNumber(ch.Articulation)
		if err != nil {
			return KeyswitchEvent{}, err
		}
		number = n
	}
	at := tick - style.Lead
	if at < 0 {
		at = 0
	}
	return KeyswitchEvent{
		Tick:         at,
		Key:          ch.Articulation,
		Number:       number,
		Velocity:     style.Velocity,
		Length:       style.Length,
		Articulation: name,
		Instrument:   inst.Name,
	}, nil
}
