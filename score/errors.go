package score

import "fmt"

// MalformedSequenceError reports a voice whose notes cannot be analysed.
// Index is the offending note, or -1 for an empty sequence.
type MalformedSequenceError struct {
	Voice  string
	Index  int
	Reason string
}

func (e *MalformedSequenceError) Error() string {
	name := e.Voice
	if name == "" {
		name = "<unnamed>"
	}
	if e.Index < 0 {
		return fmt.Sprintf("voice %s: malformed sequence: %s", name, e.Reason)
	}
	return fmt.Sprintf("voice %s: malformed sequence at note %d: %s", name, e.Index, e.Reason)
}

// ValidateSequence checks that notes is non-empty, start times never
// decrease and every note has a positive duration and a MIDI pitch/velocity.
func ValidateSequence(voice string, notes []Note) error {
	if len(notes) == 0 {
		return &MalformedSequenceError{Voice: voice, Index: -1, Reason: "no notes"}
	}
	for i, n := range notes {
		if n.Duration <= 0 {
			return &MalformedSequenceError{Voice: voice, Index: i, Reason: fmt.Sprintf("duration %d must be > 0", n.Duration)}
		}
		if n.Pitch < 0 || n.Pitch > 127 {
			return &MalformedSequenceError{Voice: voice, Index: i, Reason: fmt.Sprintf("pitch %d outside 0..127", n.Pitch)}
		}
		if n.Velocity < 0 || n.Velocity > 127 {
			return &MalformedSequenceError{Voice: voice, Index: i, Reason: fmt.Sprintf("velocity %d outside 0..127", n.Velocity)}
		}
		if n.Start < 0 {
			return &MalformedSequenceError{Voice: voice, Index: i, Reason: fmt.Sprintf("start %d is negative", n.Start)}
		}
		if i > 0 && n.Start < notes[i-1].Start {
			return &MalformedSequenceError{
				Voice:  voice,
				Index:  i,
				Reason: fmt.Sprintf("start %d before previous start %d", n.Start, notes[i-1].Start),
			}
		}
	}
	return nil
}
