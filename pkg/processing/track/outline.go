// Package track derives the track shape artifacts from noisy position
// traces: the canonical outline, the pit-lane path and the rotation angle
// that levels the start/finish straight.
package track

import (
	"math"
	"slices"

	"github.com/samber/lo"

	"github.com/f1replay/replay-service-go/pkg/model"
)

// opening laps are excluded from outline selection; the field is still
// bunched up and off-line there
const minOutlineLap = 3

// ExtractOutline picks one clean lap from a single driver's records and
// returns the position samples of that lap window as the track outline.
// Preferred candidates have a recorded duration, are not pit-out laps and
// are past the opening laps; any timed lap serves as fallback. The fastest
// candidate wins. The second return value is false when no usable lap
// exists; callers must tolerate the empty outline.
func ExtractOutline(laps []model.Lap, samples []model.PositionSample) (model.TrackOutline, bool) {
	outline := model.TrackOutline{X: make([]float64, 0), Y: make([]float64, 0)}

	timed := lo.Filter(laps, func(l model.Lap, _ int) bool {
		return l.LapTime != nil && l.LapStart != nil && l.Lap != nil
	})
	if len(timed) == 0 {
		return outline, false
	}
	candidates := lo.Filter(timed, func(l model.Lap, _ int) bool {
		return l.PitOut == nil && *l.Lap >= minOutlineLap
	})
	if len(candidates) == 0 {
		candidates = timed
	}
	ref := lo.MinBy(candidates, func(a, b model.Lap) bool {
		return *a.LapTime < *b.LapTime
	})

	start := *ref.LapStart
	end := start + *ref.LapTime
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
	for _, s := range sorted {
		if s.T < start || s.T > end {
			continue
		}
		outline.X = append(outline.X, round1(s.X))
		outline.Y = append(outline.Y, round1(s.Y))
	}
	return outline, len(outline.X) > 0
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }
