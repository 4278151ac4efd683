// Package assemble converts the raw upstream feeds into the race-relative
// records the artifact is built from. All wall-clock timestamps are
// rebased onto seconds since race start here; nothing downstream sees
// absolute time.
package assemble

import (
	"slices"
	"strings"
	"time"

	"github.com/f1replay/replay-service-go/pkg/encoding"
	"github.com/f1replay/replay-service-go/pkg/model"
	"github.com/f1replay/replay-service-go/pkg/source"
)

// RaceStart derives the reference instant all timestamps are rebased to:
// the earliest recorded lap 1 start across the field. Sessions without a
// lap 1 record fall back to the earliest lap start of any kind. The second
// return value is false when no lap carries a start time at all.
func RaceStart(laps []source.RawLap) (time.Time, bool) {
	var best time.Time
	found := false
	for _, l := range laps {
		if l.DateStart == nil || l.Lap == nil || *l.Lap != 1 {
			continue
		}
		if !found || l.DateStart.Before(best) {
			best = *l.DateStart
			found = true
		}
	}
	if found {
		return best, true
	}
	for _, l := range laps {
		if l.DateStart == nil {
			continue
		}
		if !found || l.DateStart.Before(best) {
			best = *l.DateStart
			found = true
		}
	}
	return best, found
}

func rel(t time.Time, start time.Time) float64 {
	return t.Sub(start).Seconds()
}

// Laps joins the lap feed with stints, pit visits, running positions and
// race-control flags into the flat per-lap records of the artifact.
//
//nolint:funlen // one enrichment step per joined feed
func Laps(
	raw []source.RawLap,
	stints []model.Stint,
	pits []source.PitRecord,
	ranks []source.RankRecord,
	rc []source.RaceControlRecord,
	start time.Time,
) []model.Lap {
	stintsByDriver := make(map[string][]model.Stint)
	for _, s := range stints {
		stintsByDriver[s.Driver] = append(stintsByDriver[s.Driver], s)
	}
	pitsByDriver := make(map[string][]source.PitRecord)
	for _, p := range pits {
		pitsByDriver[p.Driver] = append(pitsByDriver[p.Driver], p)
	}
	ranksByDriver := make(map[string][]model.RankChange)
	for _, r := range Ranks(ranks, start) {
		ranksByDriver[r.Driver] = append(ranksByDriver[r.Driver], r)
	}
	for _, changes := range ranksByDriver {
		slices.SortFunc(changes, func(a, b model.RankChange) int {
			switch {
			case a.Timestamp < b.Timestamp:
				return -1
			case a.Timestamp > b.Timestamp:
				return 1
			default:
				return 0
			}
		})
	}
	statusByLap := trackStatusCodes(rc)

	sorted := slices.Clone(raw)
	slices.SortFunc(sorted, func(a, b source.RawLap) int {
		if c := strings.Compare(a.Driver, b.Driver); c != 0 {
			return c
		}
		return lapNumber(a) - lapNumber(b)
	})

	// running per-driver best for personal-best detection
	bestTime := make(map[string]float64)

	ret := make([]model.Lap, 0, len(sorted))
	for _, l := range sorted {
		lap := model.Lap{
			Driver:  l.Driver,
			Lap:     l.Lap,
			LapTime: encoding.SafeFloatPtr(l.Duration),
			Sector1: encoding.SafeFloatPtr(l.Sector1),
			Sector2: encoding.SafeFloatPtr(l.Sector2),
			Sector3: encoding.SafeFloatPtr(l.Sector3),
		}
		if l.DateStart != nil {
			t := rel(*l.DateStart, start)
			lap.LapStart = &t
			if l.IsPitOutLap {
				out := t
				lap.PitOut = &out
			}
		}
		if l.Lap != nil {
			n := *l.Lap
			for _, s := range stintsByDriver[l.Driver] {
				if n >= s.LapStart && n <= s.LapEnd {
					lap.Compound = s.Compound
					life := s.TyreAgeAtStart + (n - s.LapStart)
					lap.TyreLife = &life
					num := s.StintNumber
					lap.Stint = &num
					break
				}
			}
			for _, p := range pitsByDriver[l.Driver] {
				if p.Lap != nil && *p.Lap == n && p.Date != nil {
					in := rel(*p.Date, start)
					lap.PitIn = &in
					break
				}
			}
			lap.TrackStatus = statusByLap[n]
		}
		if pos, ok := positionAt(ranksByDriver[l.Driver], lapEnd(lap)); ok {
			lap.Position = &pos
		}
		if lap.LapTime != nil {
			prev, seen := bestTime[l.Driver]
			if seen && *lap.LapTime < prev {
				lap.IsPersonalBest = true
			}
			if !seen || *lap.LapTime < prev {
				bestTime[l.Driver] = *lap.LapTime
			}
		}
		ret = append(ret, lap)
	}
	return ret
}

// PitStops rebases the pit feed. Visits with no timestamp are dropped since
// the pit-lane extraction cannot place them.
func PitStops(pits []source.PitRecord, start time.Time) []model.PitStop {
	ret := make([]model.PitStop, 0, len(pits))
	for _, p := range pits {
		if p.Date == nil || p.Lap == nil {
			continue
		}
		ret = append(ret, model.PitStop{
			Driver:       p.Driver,
			Lap:          *p.Lap,
			Timestamp:    rel(*p.Date, start),
			LaneDuration: p.PitDuration,
			StopDuration: p.StopDuration,
		})
	}
	slices.SortFunc(ret, func(a, b model.PitStop) int {
		switch {
		case a.Timestamp < b.Timestamp:
			return -1
		case a.Timestamp > b.Timestamp:
			return 1
		default:
			return 0
		}
	})
	return ret
}

// RaceControl keeps only bulletins attributable to a lap.
func RaceControl(rc []source.RaceControlRecord) []model.RaceControlMessage {
	ret := make([]model.RaceControlMessage, 0, len(rc))
	for _, m := range rc {
		if m.Lap == nil {
			continue
		}
		ret = append(ret, model.RaceControlMessage{
			Lap:     *m.Lap,
			Message: m.Message,
			Flag:    m.Flag,
		})
	}
	return ret
}

// Ranks rebases the running-position feed.
func Ranks(ranks []source.RankRecord, start time.Time) []model.RankChange {
	ret := make([]model.RankChange, 0, len(ranks))
	for _, r := range ranks {
		if r.Date == nil {
			continue
		}
		ret = append(ret, model.RankChange{
			Driver:    r.Driver,
			Timestamp: rel(*r.Date, start),
			Position:  r.Position,
		})
	}
	return ret
}

// Samples rebases one driver's position trace. Pings from before the race
// start (formation lap, grid) are dropped; rank records are kept even when
// pre-race since they seed the grid order.
func Samples(locs []source.LocationRecord, start time.Time) []model.PositionSample {
	ret := make([]model.PositionSample, 0, len(locs))
	for _, l := range locs {
		if l.Date == nil {
			continue
		}
		t := rel(*l.Date, start)
		if t < 0 {
			continue
		}
		ret = append(ret, model.PositionSample{
			T: t,
			X: l.X,
			Y: l.Y,
		})
	}
	return ret
}

// trackStatusCodes condenses the race-control feed into the coded per-lap
// status string, one character per condition seen on that lap.
func trackStatusCodes(rc []source.RaceControlRecord) map[int]string {
	codesByLap := make(map[int][]string)
	for _, m := range rc {
		if m.Lap == nil {
			continue
		}
		code := statusCode(m)
		if code == "" {
			continue
		}
		if !slices.Contains(codesByLap[*m.Lap], code) {
			codesByLap[*m.Lap] = append(codesByLap[*m.Lap], code)
		}
	}
	ret := make(map[int]string, len(codesByLap))
	for lap, codes := range codesByLap {
		slices.Sort(codes)
		ret[lap] = strings.Join(codes, "")
	}
	return ret
}

func statusCode(m source.RaceControlRecord) string {
	text := strings.ToUpper(m.Message)
	flag := strings.ToUpper(m.Flag)
	switch {
	case strings.Contains(text, "VIRTUAL SAFETY CAR"):
		return model.StatusVSC
	case strings.Contains(text, "SAFETY CAR"):
		return model.StatusSafetyCar
	case flag == "DOUBLE YELLOW":
		return model.StatusDoubleYellow
	case flag == "YELLOW":
		return model.StatusYellow
	default:
		return ""
	}
}

// positionAt returns the last known running position at or before t.
// Changes must already be sorted by timestamp.
func positionAt(changes []model.RankChange, t float64) (int, bool) {
	pos := 0
	found := false
	for _, c := range changes {
		if c.Timestamp > t {
			break
		}
		pos = c.Position
		found = true
	}
	return pos, found
}

func lapNumber(l source.RawLap) int {
	if l.Lap == nil {
		return 0
	}
	return *l.Lap
}

// lapEnd approximates when the lap finished; laps with no usable timing
// sort to the end of time so they pick up the latest known position.
func lapEnd(l model.Lap) float64 {
	if l.LapStart == nil {
		return 1e18
	}
	if l.LapTime == nil {
		return *l.LapStart + 600
	}
	return *l.LapStart + *l.LapTime
}
