package track

import (
	"math"

	"github.com/f1replay/replay-service-go/pkg/model"
)

// outlines with fewer points carry too little of the start/finish straight
// to estimate a direction from
const minRotationPoints = 20

// Rotation returns the angle (degrees, two decimals) that rotates the
// outline so its start/finish straight runs horizontally. The straight's
// direction is approximated by the vector from the first point to the point
// a few percent of the way around the lap. Degenerate outlines rotate by 0.
func Rotation(outline model.TrackOutline) float64 {
	n := outline.Len()
	if n < minRotationPoints {
		return 0
	}
	idx := max(5, n*3/100)
	if idx >= n {
		idx = n - 1
	}
	dx := outline.X[idx] - outline.X[0]
	dy := outline.Y[idx] - outline.Y[0]
	angle := math.Atan2(dy, dx) * 180 / math.Pi
	return math.Round(-angle*100) / 100
}
