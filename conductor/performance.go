package conductor

import (
	"errors"
	"sort"

	"github.com/janoschsimon/Digital-Director/articulation"
	"github.com/janoschsimon/Digital-Director/curve"
	"github.com/janoschsimon/Digital-Director/internal/mathx"
	"github.com/janoschsimon/Digital-Director/rules"
	"github.com/janoschsimon/Digital-Director/score"
	"gitlab.com/gomidi/midi/v2"
)

// DynamicsController is the MIDI controller that carries phrase curves.
const DynamicsController = 1

// PhraseCurve is the filtered dynamics curve of one phrase.
type PhraseCurve struct {
	Phrase score.Phrase  `json:"phrase"`
	Points []curve.Point `json:"points"`
}

// VoicePerformance is the rendered output of one voice.
type VoicePerformance struct {
	Name        string                        `json:"name"`
	Role        score.Role                    `json:"role"`
	Channel     uint8                         `json:"channel"`
	Notes       []score.AdjustedNote          `json:"notes"`
	Curves      []PhraseCurve                 `json:"curves"`
	Keyswitches []articulation.KeyswitchEvent `json:"keyswitches"`
	Stats       rules.Stats                   `json:"stats"`
}

// Performance is the result of compiling a score. Voices that failed
// validation are missing from Voices and listed in Errors.
type Performance struct {
	TicksPerBeat int                `json:"ticks_per_beat"`
	Voices       []VoicePerformance `json:"voices"`
	Errors       []error            `json:"-"`
	Warnings     []error            `json:"-"`
}

// Err joins the collected voice errors, or returns nil.
func (p *Performance) Err() error {
	return errors.Join(p.Errors...)
}

// NoteCount returns the number of rendered notes over all voices.
func (p *Performance) NoteCount() int {
	n := 0
	for _, v := range p.Voices {
		n += len(v.Notes)
	}
	return n
}

// End returns the tick at which the last rendered event finishes.
func (p *Performance) End() int64 {
	var end int64
	for _, v := range p.Voices {
		for _, n := range v.Notes {
			if e := n.Start + n.Duration; e > end {
				end = e
			}
		}
	}
	return end
}

// Event is one timed MIDI message.
type Event struct {
	Tick    int64
	Message midi.Message
	// rank orders simultaneous events: releases, controllers, keyswitches, notes.
	rank int
}

// Events flattens the voice into MIDI messages sorted by tick: note on/off
// pairs, keyswitch notes and the phrase curves as controller changes.
func (v VoicePerformance) Events() []Event {
	ch := v.Channel
	var out []Event
	for _, n := range v.Notes {
		key := uint8(n.Source.Pitch)
		out = append(out,
			Event{Tick: n.Start, Message: midi.NoteOn(ch, key, uint8(n.Velocity)), rank: 3},
			Event{Tick: n.Start + n.Duration, Message: midi.NoteOff(ch, key), rank: 0},
		)
	}
	for _, ks := range v.Keyswitches {
		on, off := ks.Messages(ch)
		out = append(out,
			Event{Tick: ks.Tick, Message: on, rank: 2},
			Event{Tick: ks.Tick + ks.Length, Message: off, rank: 0},
		)
	}
	for _, c := range v.Curves {
		for _, p := range c.Points {
			val := uint8(mathx.Clamp(p.Value, 0, 127))
			out = append(out, Event{Tick: p.Tick, Message: midi.ControlChange(ch, DynamicsController, val), rank: 1})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Tick != out[j].Tick {
			return out[i].Tick < out[j].Tick
		}
		return out[i].rank < out[j].rank
	})
	return out
}
