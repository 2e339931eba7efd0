package articulation

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/janoschsimon/Digital-Director/score"
)

// Stats summarises a note group for articulation rules.
type Stats struct {
	AvgNoteLength float64 `json:"avg_note_length"`
	AvgVelocity   float64 `json:"avg_velocity"`
	// IntervalSize is the largest absolute interval between neighbours.
	IntervalSize float64 `json:"interval_size"`
	NoteCount    int     `json:"note_count"`
}

// GroupStats aggregates a contiguous note window.
func GroupStats(notes []score.Note) Stats {
	if len(notes) == 0 {
		return Stats{}
	}
	lengths := make([]float64, len(notes))
	vels := make([]float64, len(notes))
	maxIv := 0.0
	for i, n := range notes {
		lengths[i] = float64(n.Duration)
		vels[i] = float64(n.Velocity)
		if i > 0 {
			maxIv = math.Max(maxIv, math.Abs(float64(n.Pitch-notes[i-1].Pitch)))
		}
	}
	return Stats{
		AvgNoteLength: stat.Mean(lengths, nil),
		AvgVelocity:   stat.Mean(vels, nil),
		IntervalSize:  maxIv,
		NoteCount:     len(notes),
	}
}
