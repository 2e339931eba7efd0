package preset

import (
	"fmt"
	"sort"

	"github.com/janoschsimon/Digital-Director/features"
	"github.com/janoschsimon/Digital-Director/rules"
)

// RulesFile is the schema of the interpretation rule config.
type RulesFile struct {
	GlobalSettings  *GlobalSettingsFile             `json:"global_settings" yaml:"global_settings"`
	PhraseDetection *PhraseDetectionFile            `json:"phrase_detection" yaml:"phrase_detection"`
	Rules           map[string]map[string]RuleEntry `json:"rules" yaml:"rules"`
}

// GlobalSettingsFile holds run-wide weights.
type GlobalSettingsFile struct {
	TimingDirectionBias  *float64 `json:"timing_direction_bias" yaml:"timing_direction_bias"`
	MelodicImportance    *float64 `json:"melodic_importance" yaml:"melodic_importance"`
	BassImportance       *float64 `json:"bass_importance" yaml:"bass_importance"`
	InnerVoiceImportance *float64 `json:"inner_voice_importance" yaml:"inner_voice_importance"`
	TimingScale          *float64 `json:"timing_scale" yaml:"timing_scale"`
	Seed                 *uint64  `json:"seed" yaml:"seed"`
}

// PhraseDetectionFile tunes phrase boundary heuristics. Lengths are in beats.
type PhraseDetectionFile struct {
	GapBeats        *float64 `json:"gap_beats" yaml:"gap_beats"`
	LongNoteBeats   *float64 `json:"long_note_beats" yaml:"long_note_beats"`
	MaxLeap         *int     `json:"max_leap" yaml:"max_leap"`
	MinPhraseNotes  *int     `json:"min_phrase_notes" yaml:"min_phrase_notes"`
	ContourReversal *float64 `json:"contour_reversal" yaml:"contour_reversal"`
}

// RuleEntry is one rule's configuration.
type RuleEntry struct {
	Enabled *bool             `json:"enabled" yaml:"enabled"`
	Params  map[string]Number `json:"params" yaml:"params"`
}

// PhraseDetection is the resolved phrase heuristics config.
type PhraseDetection struct {
	GapBeats        float64
	LongNoteBeats   float64
	MaxLeap         int
	MinPhraseNotes  int
	ContourReversal float64
}

// DefaultPhraseDetection mirrors features.DefaultOptions.
func DefaultPhraseDetection() PhraseDetection {
	return PhraseDetection{GapBeats: 1, LongNoteBeats: 2, MaxLeap: 7, MinPhraseNotes: 3}
}

// Options converts beat lengths into ticks for one score resolution.
func (p PhraseDetection) Options(ticksPerBeat, beatsPerMeasure int) features.Options {
	o := features.DefaultOptions(ticksPerBeat, beatsPerMeasure)
	o.GapTicks = int64(p.GapBeats * float64(o.TicksPerBeat))
	o.LongNoteTicks = int64(p.LongNoteBeats * float64(o.TicksPerBeat))
	o.MaxLeap = p.MaxLeap
	o.MinPhraseNotes = p.MinPhraseNotes
	o.ContourReversal = p.ContourReversal
	return o
}

// RuleSet is a loaded, validated rule configuration.
type RuleSet struct {
	Combinator *rules.Combinator
	Phrases    PhraseDetection
}

// LoadRules reads a rule config file.
func LoadRules(path string) (*RuleSet, error) {
	var f RulesFile
	if err := readAndDecode(path, &f); err != nil {
		return nil, err
	}
	return ApplyRules(path, &f)
}

// ApplyRules validates a parsed rule file. Every category and rule must be
// present with all its required params.
func ApplyRules(name string, f *RulesFile) (*RuleSet, error) {
	if f == nil {
		return nil, missing(name, "rules")
	}
	settings, err := applySettings(name, f.GlobalSettings)
	if err != nil {
		return nil, err
	}
	phrases, err := applyPhraseDetection(name, f.PhraseDetection)
	if err != nil {
		return nil, err
	}
	if f.Rules == nil {
		return nil, missing(name, "rules")
	}

	configs := make(map[rules.Category]map[string]rules.Config)
	for _, cat := range rules.Categories {
		section, ok := f.Rules[string(cat)]
		if !ok {
			return nil, missing(name, "rules."+string(cat))
		}
		set := make(map[string]rules.Config, len(section))
		ruleNames := make([]string, 0, len(section))
		for k := range section {
			ruleNames = append(ruleNames, k)
		}
		sort.Strings(ruleNames)
		for _, rn := range ruleNames {
			entry := section[rn]
			field := fmt.Sprintf("rules.%s.%s", cat, rn)
			if entry.Enabled == nil {
				return nil, missing(name, field+".enabled")
			}
			if entry.Params == nil {
				return nil, missing(name, field+".params")
			}
			values := make(map[string]float64)
			lists := make(map[string][]float64)
			for pk, pv := range entry.Params {
				switch {
				case pv.Scalar != nil:
					values[pk] = *pv.Scalar
				case pv.List != nil:
					lists[pk] = pv.List
				default:
					return nil, invalid(name, field+".params."+pk, "empty value")
				}
			}
			cfg := rules.Config{Enabled: *entry.Enabled, Params: rules.NewParams(values, lists)}
			if err := rules.Validate(cat, rn, cfg); err != nil {
				return nil, &ValidationError{File: name, Field: field, Err: err}
			}
			set[rn] = cfg
		}
		for _, rn := range rules.Order(cat) {
			if _, ok := set[rn]; !ok {
				return nil, missing(name, fmt.Sprintf("rules.%s.%s", cat, rn))
			}
		}
		configs[cat] = set
	}
	for k := range f.Rules {
		if _, ok := configs[rules.Category(k)]; !ok {
			return nil, invalid(name, "rules."+k, "unknown rule category")
		}
	}

	c, err := rules.NewCombinator(configs, settings)
	if err != nil {
		return nil, &ValidationError{File: name, Field: "rules", Err: err}
	}
	return &RuleSet{Combinator: c, Phrases: phrases}, nil
}

func applySettings(name string, g *GlobalSettingsFile) (rules.Settings, error) {
	s := rules.DefaultSettings()
	if g == nil {
		return s, missing(name, "global_settings")
	}
	required := []struct {
		field string
		src   *float64
		dst   *float64
	}{
		{"timing_direction_bias", g.TimingDirectionBias, &s.TimingDirectionBias},
		{"melodic_importance", g.MelodicImportance, &s.MelodicImportance},
		{"bass_importance", g.BassImportance, &s.BassImportance},
		{"inner_voice_importance", g.InnerVoiceImportance, &s.InnerVoiceImportance},
	}
	for _, r := range required {
		if r.src == nil {
			return s, missing(name, "global_settings."+r.field)
		}
		*r.dst = *r.src
	}
	if s.TimingDirectionBias < -1 || s.TimingDirectionBias > 1 {
		return s, invalid(name, "global_settings.timing_direction_bias", "must be in [-1,1]")
	}
	for _, r := range required[1:] {
		if *r.dst < 0 {
			return s, invalid(name, "global_settings."+r.field, "must be >= 0")
		}
	}
	if g.TimingScale != nil {
		if *g.TimingScale < 0 {
			return s, invalid(name, "global_settings.timing_scale", "must be >= 0")
		}
		s.TimingScale = *g.TimingScale
	}
	if g.Seed != nil {
		s.Seed = *g.Seed
	}
	return s, nil
}

func applyPhraseDetection(name string, f *PhraseDetectionFile) (PhraseDetection, error) {
	p := DefaultPhraseDetection()
	if f == nil {
		return p, nil
	}
	if f.GapBeats != nil {
		if *f.GapBeats <= 0 {
			return p, invalid(name, "phrase_detection.gap_beats", "must be > 0")
		}
		p.GapBeats = *f.GapBeats
	}
	if f.LongNoteBeats != nil {
		if *f.LongNoteBeats <= 0 {
			return p, invalid(name, "phrase_detection.long_note_beats", "must be > 0")
		}
		p.LongNoteBeats = *f.LongNoteBeats
	}
	if f.MaxLeap != nil {
		if *f.MaxLeap < 1 {
			return p, invalid(name, "phrase_detection.max_leap", "must be >= 1")
		}
		p.MaxLeap = *f.MaxLeap
	}
	if f.MinPhraseNotes != nil {
		if *f.MinPhraseNotes < 1 {
			return p, invalid(name, "phrase_detection.min_phrase_notes", "must be >= 1")
		}
		p.MinPhraseNotes = *f.MinPhraseNotes
	}
	if f.ContourReversal != nil {
		if *f.ContourReversal < 0 || *f.ContourReversal > 1 {
			return p, invalid(name, "phrase_detection.contour_reversal", "must be in [0,1]")
		}
		p.ContourReversal = *f.ContourReversal
	}
	return p, nil
}
