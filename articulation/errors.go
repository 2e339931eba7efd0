package articulation

import "fmt"

// UnrecognizedInstrumentError reports a track that cannot be tied to an
// articulation family. Keyswitches are skipped for that passage.
type UnrecognizedInstrumentError struct {
	Track      string
	Instrument string
	Family     string
}

func (e *UnrecognizedInstrumentError) Error() string {
	switch {
	case e.Instrument == "":
		return fmt.Sprintf("no instrument matches track %q", e.Track)
	case e.Family == "":
		return fmt.Sprintf("instrument %q (track %q) has no articulation family", e.Instrument, e.Track)
	}
	return fmt.Sprintf("instrument %q (track %q): unknown articulation family %q", e.Instrument, e.Track, e.Family)
}
