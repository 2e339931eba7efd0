package articulation

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"gitlab.com/gomidi/midi/v2"
)

var keyNameRe = regexp.MustCompile(`^([A-Ga-g])([#b]?)(-?\d+)$`)

var semitones = map[byte]int{'C': 0, 'D': 2, 'E': 4, 'F': 5, 'G': 7, 'A': 9, 'B': 11}

// KeyNumber converts a keyswitch name such as "C#6" or "G#0" to a MIDI note
// number. Octave 0 starts at note 24, as in common sample library charts.
func KeyNumber(name string) (int, error) {
	m := keyNameRe.FindStringSubmatch(strings.TrimSpace(name))
	if m == nil {
		return 0, fmt.Errorf("invalid keyswitch name %q", name)
	}
	semi := semitones[strings.ToUpper(m[1])[0]]
	switch m[2] {
	case "#":
		semi++
	case "b":
		semi--
	}
	oct, err := strconv.Atoi(m[3])
	if err != nil {
		return 0, fmt.Errorf("invalid keyswitch octave in %q", name)
	}
	n := 12*(oct+2) + semi
	if n < 0 || n > 127 {
		return 0, fmt.Errorf("keyswitch %q maps to %d outside 0..127", name, n)
	}
	return n, nil
}

// KeyswitchEvent is a keyswitch note inserted ahead of a passage.
type KeyswitchEvent struct {
	Tick         int64  `json:"tick"`
	Key          string `json:"key"`
	Number       int    `json:"number"`
	Velocity     int    `json:"velocity"`
	Length       int64  `json:"length"`
	Articulation string `json:"articulation"`
	Instrument   string `json:"instrument"`
}

// Messages returns the note-on and note-off that play the keyswitch. The
// note-off belongs at Tick+Length.
func (e KeyswitchEvent) Messages(channel uint8) (on, off midi.Message) {
	key := uint8(e.Number)
	vel := uint8(e.Velocity)
	if e.Velocity > 127 {
		vel = 127
	}
	return midi.NoteOn(channel, key, vel), midi.NoteOff(channel, key)
}
