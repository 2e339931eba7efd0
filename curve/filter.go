package curve

import "math"

// Point is one curve sample at an absolute tick.
type Point struct {
	Tick  int64   `json:"tick"`
	Value float64 `json:"value"`
}

// Tier is one change-rate class of the important-point filter.
type Tier struct {
	Rate      float64
	TimeGap   float64
	ValueDiff float64
}

// Thresholds configures Filter.
type Thresholds struct {
	Fast     Tier
	Moderate Tier
	Slow     Tier
	// WindowSize is the half width of the local extremum check.
	WindowSize int
}

// DefaultThresholds returns the stock filter tiers.
func DefaultThresholds() Thresholds {
	return Thresholds{
		Fast:       Tier{Rate: 0.4, TimeGap: 4, ValueDiff: 2},
		Moderate:   Tier{Rate: 0.2, TimeGap: 6, ValueDiff: 3},
		Slow:       Tier{TimeGap: 10, ValueDiff: 4},
		WindowSize: 5,
	}
}

// Filter decimates a curve to its perceptually important points. Endpoints
// and strict local extrema are always kept. Other points survive when they
// are far enough, in time or value, from the last kept point; how far
// depends on the rate of change. Passes repeat until nothing changes, so
// Filter(Filter(c)) equals Filter(c).
func Filter(points []Point, th Thresholds) []Point {
	cur := append([]Point(nil), points...)
	for {
		next := filterPass(cur, th)
		if len(next) == len(cur) {
			return next
		}
		cur = next
	}
}

func filterPass(points []Point, th Thresholds) []Point {
	n := len(points)
	if n <= 2 {
		return append([]Point(nil), points...)
	}

	out := make([]Point, 0, n)
	out = append(out, points[0])
	last := points[0]
	for i := 1; i < n; i++ {
		p := points[i]
		keep := i == n-1 || isExtremum(points, i, th.WindowSize)
		if !keep {
			gap := float64(p.Tick - last.Tick)
			diff := math.Abs(p.Value - last.Value)
			tier := th.Slow
			switch rate := diff / math.Max(1, gap); {
			case rate >= th.Fast.Rate:
				tier = th.Fast
			case rate >= th.Moderate.Rate:
				tier = th.Moderate
			}
			keep = gap >= tier.TimeGap || diff >= tier.ValueDiff
		}
		if keep {
			out = append(out, p)
			last = p
		}
	}
	return out
}

// isExtremum reports whether points[i] is strictly above or below every
// neighbour within w. Points without a full window are not extrema.
func isExtremum(points []Point, i, w int) bool {
	if w <= 0 || i < w || i+w >= len(points) {
		return false
	}
	v := points[i].Value
	isMax, isMin := true, true
	for j := i - w; j <= i+w; j++ {
		if j == i {
			continue
		}
		if points[j].Value >= v {
			isMax = false
		}
		if points[j].Value <= v {
			isMin = false
		}
	}
	return isMax || isMin
}
