package model

// PositionSample is one raw position ping for a driver.
// T is race-relative seconds; ordering by T is not guaranteed on input.
type PositionSample struct {
	T float64
	X float64
	Y float64
}

// PositionSeries is the resampled {t,x,y} column layout the frontend animates.
type PositionSeries struct {
	T []float64 `json:"t"`
	X []float64 `json:"x"`
	Y []float64 `json:"y"`
}

// TrackOutline is the canonical track shape, implicitly closed
// (last point connects back to the first). Shape only, no timing.
type TrackOutline struct {
	X []float64 `json:"x"`
	Y []float64 `json:"y"`
}

// IsEmpty reports whether no outline could be extracted.
func (t TrackOutline) IsEmpty() bool { return len(t.X) == 0 }

// Len returns the number of outline points.
func (t TrackOutline) Len() int { return len(t.X) }

// PitLanePath is the pit lane shape, a filtered subset of one
// pitting driver's samples.
type PitLanePath struct {
	X []float64 `json:"x"`
	Y []float64 `json:"y"`
}
