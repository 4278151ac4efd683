package track

import (
	"math"
	"slices"

	"github.com/f1replay/replay-service-go/pkg/model"
)

const (
	// absorbs clock skew between pit timestamps and position pings
	// at lane entry/exit
	entryExitBuffer = 8.0
	// used when the pit record carries no lane transit duration
	defaultLaneDuration = 30.0
	// minimum distance from the racing line (source coordinate units)
	// for a point to count as being inside the pit lane
	deviationThreshold = 150.0
)

// ExtractPitLane isolates the pit-lane shape from a pitting driver's trace.
// It windows the samples around the stop, then keeps only points whose
// nearest-outline distance exceeds the deviation threshold. With an empty
// outline, or when nothing deviates far enough, the raw window is returned
// as-is; a rough path beats no path.
func ExtractPitLane(
	samples []model.PositionSample,
	stop model.PitStop,
	outline model.TrackOutline,
) model.PitLanePath {
	lane := defaultLaneDuration
	if stop.LaneDuration != nil {
		lane = *stop.LaneDuration
	}
	from := stop.Timestamp - entryExitBuffer
	to := stop.Timestamp + lane + entryExitBuffer

	sorted := slices.Clone(samples)
	slices.SortFunc(sorted, func(a, b model.PositionSample) int {
		switch {
		case a.T < b.T:
			return -1
		case a.T > b.T:
			return 1
		default:
			return 0
		}
	})
	window := make([]model.PositionSample, 0)
	for _, s := range sorted {
		if s.T >= from && s.T <= to {
			window = append(window, s)
		}
	}

	path := model.PitLanePath{X: make([]float64, 0), Y: make([]float64, 0)}
	if outline.IsEmpty() {
		return appendPoints(path, window)
	}

	threshSq := deviationThreshold * deviationThreshold
	deviating := make([]model.PositionSample, 0, len(window))
	for _, s := range window {
		if nearestDistSq(outline, s.X, s.Y) > threshSq {
			deviating = append(deviating, s)
		}
	}
	if len(deviating) == 0 {
		return appendPoints(path, window)
	}
	return appendPoints(path, deviating)
}

// brute force over the outline points; outlines stay small enough
// (≤ ~1000 points) that a spatial index would not pay for itself
func nearestDistSq(outline model.TrackOutline, x, y float64) float64 {
	best := math.MaxFloat64
	for i := range outline.X {
		dx := x - outline.X[i]
		dy := y - outline.Y[i]
		if d := dx*dx + dy*dy; d < best {
			best = d
		}
	}
	return best
}

func appendPoints(path model.PitLanePath, pts []model.PositionSample) model.PitLanePath {
	for _, s := range pts {
		path.X = append(path.X, round1(s.X))
		path.Y = append(path.Y, round1(s.Y))
	}
	return path
}
