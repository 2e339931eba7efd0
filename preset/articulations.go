package preset

import (
	"fmt"
	"sort"

	"github.com/janoschsimon/Digital-Director/articulation"
)

// ArticulationsFile is the schema of the instrument and articulation config.
type ArticulationsFile struct {
	Instruments       map[string]InstrumentFile     `json:"instruments" yaml:"instruments"`
	InstrumentMapper  map[string][]string           `json:"instrument_mapper" yaml:"instrument_mapper"`
	CustomMappings    map[string]string             `json:"custom_mappings" yaml:"custom_mappings"`
	ArticulationRules map[string]ArticulationFamily `json:"articulation_rules" yaml:"articulation_rules"`
}

type InstrumentFile struct {
	Family        *string                  `json:"family" yaml:"family"`
	Articulations map[string]KeyswitchFile `json:"articulations" yaml:"articulations"`
}

type KeyswitchFile struct {
	Name       string `json:"name" yaml:"name"`
	MidiNumber *int   `json:"midi_number" yaml:"midi_number"`
}

type ArticulationFamily struct {
	LengthThresholds *struct {
		VeryShort *float64 `json:"very_short" yaml:"very_short"`
		Short     *float64 `json:"short" yaml:"short"`
		Medium    *float64 `json:"medium" yaml:"medium"`
		Long      *float64 `json:"long" yaml:"long"`
	} `json:"length_thresholds" yaml:"length_thresholds"`
	Default   *string    `json:"default" yaml:"default"`
	Rules     []RuleFile `json:"rules" yaml:"rules"`
	Keyswitch *struct {
		Lead     *int64 `json:"lead" yaml:"lead"`
		Velocity *int   `json:"velocity" yaml:"velocity"`
		Length   *int64 `json:"length" yaml:"length"`
	} `json:"keyswitch" yaml:"keyswitch"`
}

type RuleFile struct {
	Condition    string `json:"condition" yaml:"condition"`
	Articulation string `json:"articulation" yaml:"articulation"`
	Description  string `json:"description" yaml:"description"`
}

// LoadArticulations reads an articulation config file.
func LoadArticulations(path string) (*articulation.Catalog, error) {
	var f ArticulationsFile
	if err := readAndDecode(path, &f); err != nil {
		return nil, err
	}
	return ApplyArticulations(path, &f)
}

// ApplyArticulations validates a parsed articulation file, compiles every
// rule condition and builds the catalog.
func ApplyArticulations(name string, f *ArticulationsFile) (*articulation.Catalog, error) {
	if f == nil {
		return nil, missing(name, "articulations")
	}
	if f.Instruments == nil {
		return nil, missing(name, "instruments")
	}
	if f.InstrumentMapper == nil {
		return nil, missing(name, "instrument_mapper")
	}
	if f.ArticulationRules == nil {
		return nil, missing(name, "articulation_rules")
	}

	famNames := make([]string, 0, len(f.ArticulationRules))
	for k := range f.ArticulationRules {
		famNames = append(famNames, k)
	}
	sort.Strings(famNames)
	families := make([]articulation.Family, 0, len(famNames))
	for _, fn := range famNames {
		fam, err := applyFamily(name, fn, f.ArticulationRules[fn])
		if err != nil {
			return nil, err
		}
		families = append(families, fam)
	}
	sel, err := articulation.NewSelector(families)
	if err != nil {
		return nil, &ValidationError{File: name, Field: "articulation_rules", Err: err}
	}

	instNames := make([]string, 0, len(f.Instruments))
	for k := range f.Instruments {
		instNames = append(instNames, k)
	}
	sort.Strings(instNames)
	instruments := make([]articulation.Instrument, 0, len(instNames))
	for _, in := range instNames {
		entry := f.Instruments[in]
		if entry.Family == nil {
			return nil, missing(name, "instruments."+in+".family")
		}
		inst := articulation.Instrument{Name: in, Family: *entry.Family, Articulations: map[string]articulation.Articulation{}}
		for key, ks := range entry.Articulations {
			a := articulation.Articulation{Name: ks.Name}
			if ks.MidiNumber != nil {
				if *ks.MidiNumber < 0 || *ks.MidiNumber > 127 {
					return nil, invalid(name, fmt.Sprintf("instruments.%s.articulations.%s.midi_number", in, key), "must be in 0..127")
				}
				a.Number = *ks.MidiNumber
			}
			inst.Articulations[key] = a
		}
		instruments = append(instruments, inst)
	}
	cat, err := articulation.NewCatalog(instruments, articulation.NewMapper(f.InstrumentMapper, f.CustomMappings), sel)
	if err != nil {
		return nil, &ValidationError{File: name, Field: "instruments", Err: err}
	}
	return cat, nil
}

func applyFamily(name, fn string, af ArticulationFamily) (articulation.Family, error) {
	field := "articulation_rules." + fn
	fam := articulation.Family{Name: fn, Style: articulation.DefaultStyle(fn)}
	lt := af.LengthThresholds
	if lt == nil || lt.VeryShort == nil || lt.Short == nil || lt.Medium == nil || lt.Long == nil {
		return fam, missing(name, field+".length_thresholds")
	}
	fam.Lengths = articulation.Lengths{VeryShort: *lt.VeryShort, Short: *lt.Short, Medium: *lt.Medium, Long: *lt.Long}
	if !(fam.Lengths.VeryShort <= fam.Lengths.Short && fam.Lengths.Short <= fam.Lengths.Medium && fam.Lengths.Medium <= fam.Lengths.Long) {
		return fam, invalid(name, field+".length_thresholds", "must be ordered very_short <= short <= medium <= long")
	}
	if af.Default == nil {
		return fam, missing(name, field+".default")
	}
	fam.Default = *af.Default
	for i, r := range af.Rules {
		if r.Condition == "" || r.Articulation == "" {
			return fam, missing(name, fmt.Sprintf("%s.rules[%d].condition/articulation", field, i))
		}
		fam.Rules = append(fam.Rules, articulation.Rule{Condition: r.Condition, Articulation: r.Articulation, Description: r.Description})
	}
	if ks := af.Keyswitch; ks != nil {
		if ks.Lead != nil {
			fam.Style.Lead = *ks.Lead
		}
		if ks.Velocity != nil {
			if *ks.Velocity < 1 || *ks.Velocity > 127 {
				return fam, invalid(name, field+".keyswitch.velocity", "must be in 1..127")
			}
			fam.Style.Velocity = *ks.Velocity
		}
		if ks.Length != nil {
			fam.Style.Length = *ks.Length
		}
	}
	return fam, nil
}
