// Package resample converts an irregularly-timestamped position trace into a
// fixed-interval series suitable for smooth playback animation.
package resample

import (
	"math"
	"slices"

	"github.com/f1replay/replay-service-go/pkg/model"
)

// rounding keeps artifact size bounded: 10ms on the time axis,
// one decimal on coordinates
const (
	timePrecision  = 100.0
	coordPrecision = 10.0
)

// Series resamples the given trace at a fixed step. Samples may arrive in any
// order; they are sorted by timestamp first. Each grid point is linearly
// interpolated between its bracketing raw samples; before the first sample the
// first value is held, at or after the last sample the last value is held.
// The result has exactly floor((tmax-tmin)/step)+1 entries and re-running on
// its own output is a no-op.
func Series(samples []model.PositionSample, step float64) model.PositionSeries {
	series := model.PositionSeries{
		T: make([]float64, 0),
		X: make([]float64, 0),
		Y: make([]float64, 0),
	}
	if len(samples) == 0 || step <= 0 {
		return series
	}
	// stable so the later of two coincident samples wins
	sorted := slices.Clone(samples)
	slices.SortStableFunc(sorted, func(a, b model.PositionSample) int {
		switch {
		case a.T < b.T:
			return -1
		case a.T > b.T:
			return 1
		default:
			return 0
		}
	})

	t0 := sorted[0].T
	tMax := sorted[len(sorted)-1].T
	// small epsilon so a grid point landing exactly on tMax survives
	// floating point noise
	n := int(math.Floor((tMax-t0)/step+1e-9)) + 1

	j := 0
	for k := range n {
		cursor := t0 + float64(k)*step
		for j+1 < len(sorted) && sorted[j+1].T <= cursor {
			j++
		}
		x, y := interpolate(sorted, j, cursor)
		series.T = append(series.T, math.Round(cursor*timePrecision)/timePrecision)
		series.X = append(series.X, math.Round(x*coordPrecision)/coordPrecision)
		series.Y = append(series.Y, math.Round(y*coordPrecision)/coordPrecision)
	}
	return series
}

func interpolate(sorted []model.PositionSample, j int, cursor float64) (x, y float64) {
	if cursor <= sorted[j].T || j == len(sorted)-1 {
		// before the first sample or past the last one: hold value
		return sorted[j].X, sorted[j].Y
	}
	next := sorted[j+1]
	cur := sorted[j]
	frac := 0.0
	if denom := next.T - cur.T; denom > 0 {
		frac = (cursor - cur.T) / denom
	}
	return cur.X + frac*(next.X-cur.X), cur.Y + frac*(next.Y-cur.Y)
}
