package track

import (
	"math"
	"testing"

	"github.com/f1replay/replay-service-go/pkg/model"
)

func syntheticOutline(n int, angleDeg float64) model.TrackOutline {
	outline := model.TrackOutline{X: make([]float64, 0, n), Y: make([]float64, 0, n)}
	rad := angleDeg * math.Pi / 180
	for i := range n {
		d := float64(i) * 10
		outline.X = append(outline.X, d*math.Cos(rad))
		outline.Y = append(outline.Y, d*math.Sin(rad))
	}
	return outline
}

func TestRotation(t *testing.T) {
	tests := []struct {
		name    string
		outline model.TrackOutline
		want    float64
	}{
		{name: "empty outline", outline: model.TrackOutline{}, want: 0},
		{name: "too few points", outline: syntheticOutline(10, 45), want: 0},
		{name: "horizontal straight", outline: syntheticOutline(100, 0), want: 0},
		{name: "diagonal straight", outline: syntheticOutline(100, 45), want: -45},
		{name: "downhill straight", outline: syntheticOutline(100, -30), want: 30},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Rotation(tc.outline)
			if math.Abs(got-tc.want) > 0.01 {
				t.Errorf("expected rotation %v, got %v", tc.want, got)
			}
		})
	}
}
