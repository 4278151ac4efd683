package model

// RaceData is the primary artifact served at /api/data and written
// to data.json by the generate command.
//
//nolint:tagliatelle // artifact keys are fixed by the frontend contract
type RaceData struct {
	Session  SessionInfo               `json:"session"`
	Drivers  map[string]Driver         `json:"drivers"`
	Track    TrackOutline              `json:"track"`
	Rotation float64                   `json:"track_rotation"`
	PitLane  PitLanePath               `json:"pitlane"`
	Laps     []Lap                     `json:"laps"`
	Insights map[string][]InsightEvent `json:"insights"`
}

// Positions is the position artifact: driver number -> resampled series.
type Positions map[string]PositionSeries
