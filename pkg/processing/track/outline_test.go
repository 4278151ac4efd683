package track

import (
	"testing"

	"github.com/f1replay/replay-service-go/pkg/model"
)

func fptr(v float64) *float64 { return &v }
func iptr(v int) *int         { return &v }

func lap(n int, duration *float64, start float64, pitOut *float64) model.Lap {
	return model.Lap{
		Driver:   "1",
		Lap:      iptr(n),
		LapTime:  duration,
		LapStart: fptr(start),
		PitOut:   pitOut,
	}
}

func TestExtractOutlineSelection(t *testing.T) {
	// lap 1 untimed, lap 2 is a pit-out lap, lap 3 is fastest and eligible
	laps := []model.Lap{
		{Driver: "1", Lap: iptr(1), LapStart: fptr(0)},
		lap(2, fptr(90.2), 100, fptr(100)),
		lap(3, fptr(88.1), 200, nil),
		lap(4, fptr(89.0), 300, nil),
	}
	samples := []model.PositionSample{
		{T: 150, X: 1, Y: 1},
		{T: 200, X: 2, Y: 2},
		{T: 250, X: 3, Y: 3},
		{T: 288, X: 4, Y: 4},
		{T: 400, X: 5, Y: 5},
	}
	got, ok := ExtractOutline(laps, samples)
	if !ok {
		t.Fatal("expected an outline")
	}
	// only samples inside [200, 288.1] qualify
	wantX := []float64{2, 3, 4}
	if len(got.X) != len(wantX) {
		t.Fatalf("expected %d points, got %d", len(wantX), len(got.X))
	}
	for i, x := range wantX {
		if got.X[i] != x {
			t.Errorf("point %d: expected x=%v, got %v", i, x, got.X[i])
		}
	}
}

func TestExtractOutlineFallbackToTimedLaps(t *testing.T) {
	// every timed lap is a pit-out lap, so the preferred filter comes up
	// empty and timed laps serve as fallback
	laps := []model.Lap{
		lap(2, fptr(95.0), 0, fptr(0)),
		lap(3, fptr(92.0), 100, fptr(100)),
	}
	samples := []model.PositionSample{
		{T: 110, X: 7, Y: 8},
	}
	got, ok := ExtractOutline(laps, samples)
	if !ok {
		t.Fatal("expected fallback outline")
	}
	if len(got.X) != 1 || got.X[0] != 7 {
		t.Errorf("expected the sample of the faster fallback lap, got %+v", got)
	}
}

func TestExtractOutlineNoTimedLaps(t *testing.T) {
	laps := []model.Lap{
		{Driver: "1", Lap: iptr(1), LapStart: fptr(0)},
	}
	got, ok := ExtractOutline(laps, []model.PositionSample{{T: 1, X: 1, Y: 1}})
	if ok {
		t.Error("expected no outline without timed laps")
	}
	if got.X == nil || got.Y == nil {
		t.Error("outline slices must never be nil")
	}
}

func TestExtractOutlineNoSamplesInWindow(t *testing.T) {
	laps := []model.Lap{lap(3, fptr(88.0), 200, nil)}
	samples := []model.PositionSample{{T: 10, X: 1, Y: 1}}
	_, ok := ExtractOutline(laps, samples)
	if ok {
		t.Error("expected no outline when no samples fall into the lap window")
	}
}
