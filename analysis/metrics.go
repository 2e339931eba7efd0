package analysis

import (
	"math"

	"github.com/janoschsimon/Digital-Director/score"
	"gonum.org/v1/gonum/stat"
)

// Metrics describes how far a rendered voice deviates from its quantized
// source notes.
type Metrics struct {
	NoteCount    int `json:"note_count"`
	TicksPerBeat int `json:"ticks_per_beat"`

	TimingRMSETicks   float64 `json:"timing_rmse_ticks"`
	MaxTimingTicks    int64   `json:"max_timing_ticks"`
	EarlierShare      float64 `json:"earlier_share"`
	LaterShare        float64 `json:"later_share"`
	VelocityRMSE      float64 `json:"velocity_rmse"`
	MeanVelocityDelta float64 `json:"mean_velocity_delta"`
	// VelocitySlope is the fitted velocity change per beat over the voice.
	VelocitySlope     float64 `json:"velocity_slope"`
	MeanDurationScale float64 `json:"mean_duration_scale"`
	DurationRMSE      float64 `json:"duration_rmse"`

	// Score in [0,1] grows with the amount of deviation; Similarity is
	// exp(-4*Score).
	Score      float64 `json:"score"`
	Similarity float64 `json:"similarity"`
}

// Compare measures the deviation of performed notes from their sources.
func Compare(notes []score.AdjustedNote, ticksPerBeat int) Metrics {
	if ticksPerBeat <= 0 {
		ticksPerBeat = score.DefaultTicksPerBeat
	}
	m := Metrics{NoteCount: len(notes), TicksPerBeat: ticksPerBeat}
	if len(notes) == 0 {
		m.MeanDurationScale = 1
		m.Similarity = 1
		return m
	}

	n := len(notes)
	srcVel := make([]float64, n)
	perfVel := make([]float64, n)
	zero := make([]float64, n)
	offsets := make([]float64, n)
	scales := make([]float64, n)
	ones := make([]float64, n)
	beats := make([]float64, n)
	velDelta := make([]float64, n)
	var earlier, later int
	for i, a := range notes {
		d := a.TimingDelta()
		offsets[i] = float64(d)
		if abs64(d) > m.MaxTimingTicks {
			m.MaxTimingTicks = abs64(d)
		}
		switch {
		case d < 0:
			earlier++
		case d > 0:
			later++
		}
		srcVel[i] = float64(a.Source.Velocity)
		perfVel[i] = float64(a.Velocity)
		velDelta[i] = perfVel[i] - srcVel[i]
		scales[i] = a.DurationScale()
		ones[i] = 1
		beats[i] = float64(a.Start) / float64(ticksPerBeat)
	}

	m.TimingRMSETicks = rmse(offsets, zero)
	m.EarlierShare = float64(earlier) / float64(n)
	m.LaterShare = float64(later) / float64(n)
	m.VelocityRMSE = rmse(perfVel, srcVel)
	m.MeanVelocityDelta = stat.Mean(velDelta, nil)
	m.MeanDurationScale = stat.Mean(scales, nil)
	m.DurationRMSE = rmse(scales, ones)
	if n > 1 && beats[n-1] > beats[0] {
		_, beta := stat.LinearRegression(beats, perfVel, nil, false)
		if isFinite(beta) {
			m.VelocitySlope = beta
		}
	}

	// A quarter beat of timing spread, 32 velocity steps or half the note
	// length each count as full deviation.
	timeNorm := clamp01(m.TimingRMSETicks / (0.25 * float64(ticksPerBeat)))
	velNorm := clamp01(m.VelocityRMSE / 32.0)
	durNorm := clamp01(m.DurationRMSE / 0.5)
	m.Score = clamp01(0.40*timeNorm + 0.35*velNorm + 0.25*durNorm)
	m.Similarity = clamp01(math.Exp(-4.0 * m.Score))
	return m
}

func rmse(a []float64, b []float64) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	if n == 0 {
		return 0
	}
	var sum float64
	for i := 0; i < n; i++ {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum / float64(n))
}

func abs64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
