package score

import "fmt"

// DefaultTicksPerBeat is used when a score leaves TicksPerBeat unset.
const DefaultTicksPerBeat = 480

// DefaultBeatsPerMeasure is used when a score leaves BeatsPerMeasure unset.
const DefaultBeatsPerMeasure = 4

// Role is the musical function of a voice.
type Role string

const (
	RoleMelody     Role = "melody"
	RoleBass       Role = "bass"
	RoleInnerVoice Role = "inner_voice"
	RoleUnknown    Role = "unknown"
)

// ParseRole accepts the role labels used by configuration and note files.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleMelody, RoleBass, RoleInnerVoice, RoleUnknown:
		return Role(s), nil
	case "inner":
		return RoleInnerVoice, nil
	case "":
		return RoleUnknown, nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

// Note is one quantized input event. Start and Duration are in ticks.
type Note struct {
	Pitch    int   `json:"pitch" yaml:"pitch"`
	Start    int64 `json:"start" yaml:"start"`
	Duration int64 `json:"duration" yaml:"duration"`
	Velocity int   `json:"velocity" yaml:"velocity"`
	Role     Role  `json:"role,omitempty" yaml:"role,omitempty"`
}

// End returns the tick at which the note releases.
func (n Note) End() int64 { return n.Start + n.Duration }

// Voice is one track of notes sharing a role and an instrument.
type Voice struct {
	Name       string `json:"name" yaml:"name"`
	Instrument string `json:"instrument,omitempty" yaml:"instrument,omitempty"`
	Role       Role   `json:"role" yaml:"role"`
	Notes      []Note `json:"notes" yaml:"notes"`
}

// Score groups the voices of one piece with its timing resolution.
type Score struct {
	TicksPerBeat    int     `json:"ticks_per_beat" yaml:"ticks_per_beat"`
	BeatsPerMeasure int     `json:"beats_per_measure,omitempty" yaml:"beats_per_measure,omitempty"`
	Voices          []Voice `json:"voices" yaml:"voices"`
}

// Resolution returns ticks per beat and beats per measure with defaults applied.
func (s *Score) Resolution() (tpb int, bpm int) {
	tpb, bpm = s.TicksPerBeat, s.BeatsPerMeasure
	if tpb <= 0 {
		tpb = DefaultTicksPerBeat
	}
	if bpm <= 0 {
		bpm = DefaultBeatsPerMeasure
	}
	return tpb, bpm
}

// Phrase is a contiguous run of notes inside one voice. Start and End are
// inclusive note indexes. Fragments are too short for phrase-level shaping.
type Phrase struct {
	Index    int  `json:"index"`
	Start    int  `json:"start"`
	End      int  `json:"end"`
	Fragment bool `json:"fragment,omitempty"`
}

// Len returns the number of notes in the phrase.
func (p Phrase) Len() int { return p.End - p.Start + 1 }

// AdjustedNote is the performed copy of a source note.
type AdjustedNote struct {
	Source   Note  `json:"source"`
	Start    int64 `json:"start"`
	Duration int64 `json:"duration"`
	Velocity int   `json:"velocity"`
}

// TimingDelta returns the signed start offset in ticks.
func (a AdjustedNote) TimingDelta() int64 { return a.Start - a.Source.Start }

// DurationScale returns performed duration over source duration.
func (a AdjustedNote) DurationScale() float64 {
	if a.Source.Duration <= 0 {
		return 1
	}
	return float64(a.Duration) / float64(a.Source.Duration)
}
