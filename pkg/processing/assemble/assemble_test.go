package assemble

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/f1replay/replay-service-go/pkg/model"
	"github.com/f1replay/replay-service-go/pkg/source"
)

var base = time.Date(2025, 7, 6, 14, 3, 0, 0, time.UTC)

func tptr(t time.Time) *time.Time { return &t }
func fptr(v float64) *float64     { return &v }
func iptr(v int) *int             { return &v }

func TestRaceStart(t *testing.T) {
	laps := []source.RawLap{
		{Driver: "44", Lap: iptr(1), DateStart: tptr(base.Add(2 * time.Second))},
		{Driver: "1", Lap: iptr(1), DateStart: tptr(base)},
		{Driver: "1", Lap: iptr(2), DateStart: tptr(base.Add(-time.Hour))},
	}
	start, ok := RaceStart(laps)
	require.True(t, ok)
	// only lap 1 records anchor the start, even if later laps carry
	// earlier (bogus) timestamps
	assert.Equal(t, base, start)
}

func TestRaceStartFallback(t *testing.T) {
	laps := []source.RawLap{
		{Driver: "1", Lap: iptr(5), DateStart: tptr(base.Add(time.Minute))},
		{Driver: "1", Lap: iptr(6), DateStart: tptr(base)},
	}
	start, ok := RaceStart(laps)
	require.True(t, ok)
	assert.Equal(t, base, start)

	_, ok = RaceStart([]source.RawLap{{Driver: "1", Lap: iptr(1)}})
	assert.False(t, ok)
}

//nolint:funlen // one assertion block per joined feed
func TestLapsJoin(t *testing.T) {
	raw := []source.RawLap{
		{
			Driver: "1", Lap: iptr(1), Duration: fptr(92.0),
			DateStart: tptr(base),
		},
		{
			Driver: "1", Lap: iptr(2), Duration: fptr(90.5),
			DateStart: tptr(base.Add(92 * time.Second)),
		},
		{
			Driver: "1", Lap: iptr(3), Duration: fptr(95.0),
			DateStart: tptr(base.Add(182500 * time.Millisecond)), IsPitOutLap: true,
		},
	}
	stints := []model.Stint{
		{Driver: "1", StintNumber: 1, Compound: "MEDIUM", LapStart: 1, LapEnd: 2, TyreAgeAtStart: 3},
		{Driver: "1", StintNumber: 2, Compound: "HARD", LapStart: 3, LapEnd: 50},
	}
	pits := []source.PitRecord{
		{Driver: "1", Lap: iptr(2), Date: tptr(base.Add(170 * time.Second)), PitDuration: fptr(22.0)},
	}
	ranks := []source.RankRecord{
		{Driver: "1", Date: tptr(base.Add(-time.Minute)), Position: 4},
		{Driver: "1", Date: tptr(base.Add(100 * time.Second)), Position: 2},
	}
	rc := []source.RaceControlRecord{
		{Lap: iptr(3), Message: "SAFETY CAR DEPLOYED"},
	}

	laps := Laps(raw, stints, pits, ranks, rc, base)
	require.Len(t, laps, 3)

	lap1, lap2, lap3 := laps[0], laps[1], laps[2]

	assert.Equal(t, 0.0, *lap1.LapStart)
	assert.Equal(t, "MEDIUM", lap1.Compound)
	assert.Equal(t, 3, *lap1.TyreLife)
	assert.Equal(t, 1, *lap1.Stint)
	assert.False(t, lap1.IsPersonalBest, "first timed lap sets the baseline")
	assert.Equal(t, 4, *lap1.Position)

	assert.Equal(t, 92.0, *lap2.LapStart)
	assert.Equal(t, 4, *lap2.TyreLife)
	assert.True(t, lap2.IsPersonalBest)
	require.NotNil(t, lap2.PitIn)
	assert.Equal(t, 170.0, *lap2.PitIn)
	assert.Equal(t, 2, *lap2.Position)

	assert.Equal(t, "HARD", lap3.Compound)
	assert.Equal(t, 0, *lap3.TyreLife)
	require.NotNil(t, lap3.PitOut)
	assert.Equal(t, *lap3.LapStart, *lap3.PitOut)
	assert.False(t, lap3.IsPersonalBest)
	assert.Equal(t, model.StatusSafetyCar, lap3.TrackStatus)
}

func TestLapsScrubNonFiniteTiming(t *testing.T) {
	nan := math.NaN()
	inf := math.Inf(1)
	raw := []source.RawLap{
		{Driver: "1", Lap: iptr(1), Duration: &nan, Sector1: &inf, DateStart: tptr(base)},
		{
			Driver: "1", Lap: iptr(2), Duration: fptr(91.0),
			DateStart: tptr(base.Add(95 * time.Second)),
		},
	}
	laps := Laps(raw, nil, nil, nil, nil, base)
	require.Len(t, laps, 2)

	assert.Nil(t, laps[0].LapTime)
	assert.Nil(t, laps[0].Sector1)
	assert.False(t, laps[0].IsPersonalBest)
	// a scrubbed lap must not poison the personal-best baseline
	require.NotNil(t, laps[1].LapTime)
	assert.False(t, laps[1].IsPersonalBest, "first finite lap only sets the baseline")
}

func TestTrackStatusCodes(t *testing.T) {
	rc := []source.RaceControlRecord{
		{Lap: iptr(5), Message: "YELLOW IN SECTOR 3", Flag: "YELLOW"},
		{Lap: iptr(5), Message: "VIRTUAL SAFETY CAR DEPLOYED"},
		{Lap: iptr(5), Message: "YELLOW IN SECTOR 8", Flag: "YELLOW"},
		{Lap: iptr(9), Message: "DRS ENABLED"},
	}
	codes := trackStatusCodes(rc)
	assert.Equal(t, "25", codes[5])
	_, ok := codes[9]
	assert.False(t, ok, "informational messages carry no status code")
}

func TestPitStopsSortedAndRebased(t *testing.T) {
	pits := []source.PitRecord{
		{Driver: "44", Lap: iptr(30), Date: tptr(base.Add(50 * time.Minute))},
		{Driver: "1", Lap: iptr(20), Date: tptr(base.Add(30 * time.Minute)), PitDuration: fptr(21.5)},
		{Driver: "4", Lap: nil, Date: tptr(base)},
	}
	got := PitStops(pits, base)
	require.Len(t, got, 2, "visits without a lap are dropped")
	assert.Equal(t, "1", got[0].Driver)
	assert.Equal(t, 1800.0, got[0].Timestamp)
	assert.Equal(t, 21.5, *got[0].LaneDuration)
}

func TestSamples(t *testing.T) {
	locs := []source.LocationRecord{
		{Driver: "1", Date: tptr(base.Add(1500 * time.Millisecond)), X: 10, Y: 20},
		{Driver: "1", X: 99, Y: 99},
		{Driver: "1", Date: tptr(base.Add(-time.Minute)), X: 50, Y: 50},
	}
	got := Samples(locs, base)
	require.Len(t, got, 1, "untimestamped and pre-race pings are dropped")
	assert.Equal(t, 1.5, got[0].T)
	assert.Equal(t, 10.0, got[0].X)
}

func TestRaceControlDropsUnattributed(t *testing.T) {
	rc := []source.RaceControlRecord{
		{Lap: iptr(1), Message: "GREEN LIGHT", Flag: "GREEN"},
		{Message: "RISK OF RAIN"},
	}
	got := RaceControl(rc)
	require.Len(t, got, 1)
	assert.Equal(t, 1, got[0].Lap)
}
