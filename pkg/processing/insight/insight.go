// Package insight joins lap timing, pit, position and race-control data per
// lap and emits a prioritized, truncated event list for the commentary
// overlay.
package insight

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/samber/lo"

	"github.com/f1replay/replay-service-go/pkg/model"
)

const maxEventsPerLap = 8

// severity tiers for track status; higher wins
const (
	sevNone = iota
	sevYellow
	sevVSC
	sevSafetyCar
)

// Compute builds the per-lap insight mapping over all drivers' laps.
// Keys are lap numbers rendered as strings; laps without qualifying data
// simply have no entry.
//
//nolint:funlen // the lap loop mirrors the event catalog one block per type
func Compute(
	laps []model.Lap,
	drivers map[string]model.Driver,
	messages []model.RaceControlMessage,
) map[string][]model.InsightEvent {
	insights := make(map[string][]model.InsightEvent)

	byLap := make(map[int][]model.Lap)
	for _, l := range laps {
		if l.Lap == nil {
			continue
		}
		byLap[*l.Lap] = append(byLap[*l.Lap], l)
	}
	msgsByLap := make(map[int][]model.RaceControlMessage)
	for _, m := range messages {
		msgsByLap[m.Lap] = append(msgsByLap[m.Lap], m)
	}

	lapNumbers := lo.Keys(byLap)
	slices.Sort(lapNumbers)

	// running positions carried across laps for delta detection
	prevPositions := make(map[string]int)

	for _, ln := range lapNumbers {
		group := byLap[ln]
		events := make([]model.InsightEvent, 0)

		if ev := trackStatusEvent(group, msgsByLap[ln]); ev != nil {
			events = append(events, *ev)
		}

		valid := lo.Filter(group, func(l model.Lap, _ int) bool {
			return l.LapTime != nil
		})
		if len(valid) > 0 {
			fastest := lo.MinBy(valid, func(a, b model.Lap) bool {
				return *a.LapTime < *b.LapTime
			})
			events = append(events, model.InsightEvent{
				Type:     model.InsightFastestLap,
				Icon:     "⚡",
				Title:    fmt.Sprintf("%s fastest", abbrev(drivers, fastest.Driver)),
				Detail:   FormatDuration(fastest.LapTime),
				Driver:   &fastest.Driver,
				Color:    color(drivers, fastest.Driver),
				Priority: model.PriorityFastestLap,
			})
		}

		for _, l := range group {
			if l.IsPersonalBest && l.LapTime != nil {
				events = append(events, model.InsightEvent{
					Type:     model.InsightPersonalBest,
					Icon:     "🟣",
					Title:    fmt.Sprintf("%s personal best", abbrev(drivers, l.Driver)),
					Detail:   FormatDuration(l.LapTime),
					Driver:   &l.Driver,
					Color:    color(drivers, l.Driver),
					Priority: model.PriorityPersonalBest,
				})
			}
		}

		for _, l := range group {
			if l.PitIn != nil {
				compound := l.Compound
				if compound == "" {
					compound = "UNKNOWN"
				}
				events = append(events, model.InsightEvent{
					Type:     model.InsightPitStop,
					Icon:     "🔧",
					Title:    fmt.Sprintf("%s pits", abbrev(drivers, l.Driver)),
					Detail:   "→ " + compound,
					Driver:   &l.Driver,
					Color:    color(drivers, l.Driver),
					Priority: model.PriorityPitStop,
				})
			}
		}

		curPositions := make(map[string]int)
		for _, l := range group {
			if l.Position != nil && l.Driver != "" {
				curPositions[l.Driver] = *l.Position
			}
		}
		events = append(events, positionChanges(drivers, group, prevPositions, curPositions)...)
		prevPositions = curPositions

		if len(valid) > 0 {
			events = append(events, bestSectors(drivers, group)...)
		}

		slices.SortStableFunc(events, func(a, b model.InsightEvent) int {
			return b.Priority - a.Priority
		})
		if len(events) > maxEventsPerLap {
			events = events[:maxEventsPerLap]
		}
		insights[strconv.Itoa(ln)] = events
	}
	return insights
}

// trackStatusEvent merges the coded per-lap statuses with the race-control
// messages for the lap. The highest severity wins; when both sources match
// at the same tier the race-control message decides, so a contradicting lap
// code never overrides an explicit message.
func trackStatusEvent(group []model.Lap, msgs []model.RaceControlMessage) *model.InsightEvent {
	sev := sevNone
	for _, m := range msgs {
		if s := messageSeverity(m); s > sev {
			sev = s
		}
	}
	if sev == sevNone {
		for _, l := range group {
			if s := codeSeverity(l.TrackStatus); s > sev {
				sev = s
			}
		}
	}

	switch sev {
	case sevSafetyCar:
		return &model.InsightEvent{
			Type: model.InsightSafetyCar, Icon: "🚗",
			Title: "Safety Car deployed", Priority: model.PrioritySafetyCar,
		}
	case sevVSC:
		return &model.InsightEvent{
			Type: model.InsightVSC, Icon: "🟡",
			Title: "Virtual Safety Car", Priority: model.PriorityVSC,
		}
	case sevYellow:
		return &model.InsightEvent{
			Type: model.InsightYellow, Icon: "🟡",
			Title: "Yellow Flag", Priority: model.PriorityYellow,
		}
	default:
		return nil
	}
}

func messageSeverity(m model.RaceControlMessage) int {
	text := strings.ToUpper(m.Message)
	flag := strings.ToUpper(m.Flag)
	switch {
	case strings.Contains(text, "VIRTUAL SAFETY CAR"):
		return sevVSC
	case strings.Contains(text, "SAFETY CAR"):
		return sevSafetyCar
	case flag == "YELLOW" || flag == "DOUBLE YELLOW":
		return sevYellow
	default:
		return sevNone
	}
}

func codeSeverity(status string) int {
	switch {
	case strings.Contains(status, model.StatusSafetyCar):
		return sevSafetyCar
	case strings.Contains(status, model.StatusVSC):
		return sevVSC
	case strings.Contains(status, model.StatusYellow),
		strings.Contains(status, model.StatusDoubleYellow):
		return sevYellow
	default:
		return sevNone
	}
}

//nolint:whitespace // can't make both editor and linter happy
func positionChanges(
	drivers map[string]model.Driver,
	group []model.Lap,
	prev, cur map[string]int,
) []model.InsightEvent {
	events := make([]model.InsightEvent, 0)
	// iterate the lap group rather than the map for deterministic order
	for _, l := range group {
		curPos, ok := cur[l.Driver]
		if !ok {
			continue
		}
		prevPos, ok := prev[l.Driver]
		if !ok {
			continue
		}
		delta := prevPos - curPos // positive = gained
		if delta < 2 && delta > -2 {
			continue
		}
		marker := "▲"
		magnitude := delta
		if delta < 0 {
			marker = "▼"
			magnitude = -delta
		}
		driver := l.Driver
		events = append(events, model.InsightEvent{
			Type: model.InsightPositionChange,
			Icon: marker,
			Title: fmt.Sprintf("%s %s %d positions",
				abbrev(drivers, driver), marker, magnitude),
			Detail:   fmt.Sprintf("P%d", curPos),
			Driver:   &driver,
			Color:    color(drivers, driver),
			Priority: model.PriorityPositionChange,
		})
	}
	return events
}

func bestSectors(drivers map[string]model.Driver, group []model.Lap) []model.InsightEvent {
	sectors := []struct {
		label string
		get   func(l model.Lap) *float64
	}{
		{"S1", func(l model.Lap) *float64 { return l.Sector1 }},
		{"S2", func(l model.Lap) *float64 { return l.Sector2 }},
		{"S3", func(l model.Lap) *float64 { return l.Sector3 }},
	}
	events := make([]model.InsightEvent, 0, len(sectors))
	for _, sector := range sectors {
		withSector := lo.Filter(group, func(l model.Lap, _ int) bool {
			return sector.get(l) != nil
		})
		if len(withSector) == 0 {
			continue
		}
		best := lo.MinBy(withSector, func(a, b model.Lap) bool {
			return *sector.get(a) < *sector.get(b)
		})
		events = append(events, model.InsightEvent{
			Type:     model.InsightBestSector,
			Icon:     "📍",
			Title:    fmt.Sprintf("%s best %s", abbrev(drivers, best.Driver), sector.label),
			Detail:   FormatDuration(sector.get(best)),
			Driver:   &best.Driver,
			Color:    color(drivers, best.Driver),
			Priority: model.PriorityBestSector,
		})
	}
	return events
}

func abbrev(drivers map[string]model.Driver, num string) string {
	if d, ok := drivers[num]; ok && d.Abbrev != "" {
		return d.Abbrev
	}
	return num
}

func color(drivers map[string]model.Driver, num string) string {
	if d, ok := drivers[num]; ok && d.Color != "" {
		return d.Color
	}
	return "#888"
}
