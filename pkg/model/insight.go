package model

// insight event types
const (
	InsightSafetyCar      = "safety_car"
	InsightVSC            = "vsc"
	InsightYellow         = "yellow"
	InsightFastestLap     = "fastest_lap"
	InsightPersonalBest   = "personal_best"
	InsightPitStop        = "pit_stop"
	InsightPositionChange = "position_change"
	InsightBestSector     = "best_sector"
)

// fixed priorities per event type, higher shows first
const (
	PrioritySafetyCar      = 10
	PriorityVSC            = 9
	PriorityYellow         = 8
	PriorityFastestLap     = 7
	PriorityPersonalBest   = 6
	PriorityPitStop        = 5
	PriorityPositionChange = 4
	PriorityBestSector     = 3
)

// InsightEvent is one overlay event for a lap.
type InsightEvent struct {
	Type     string  `json:"type"`
	Icon     string  `json:"icon"`
	Title    string  `json:"title"`
	Detail   string  `json:"detail"`
	Driver   *string `json:"driver"`
	Color    string  `json:"color,omitempty"`
	Priority int     `json:"priority"`
}
