package model

// Driver describes one roster entry as shown by the frontend.
type Driver struct {
	Number string `json:"number"`
	Abbrev string `json:"abbr"`
	Name   string `json:"name"`
	Team   string `json:"team"`
	Color  string `json:"color"`
}

// Lap is one driver's completed lap after the per-lap join.
// Optional values are pointers so absent data serializes to null.
// All race-relative times are seconds since lights-out.
//
//nolint:tagliatelle // artifact keys are fixed by the frontend contract
type Lap struct {
	Driver         string   `json:"driver"`
	Lap            *int     `json:"lap"`
	LapTime        *float64 `json:"lap_time"`
	Sector1        *float64 `json:"sector1"`
	Sector2        *float64 `json:"sector2"`
	Sector3        *float64 `json:"sector3"`
	Compound       string   `json:"compound"`
	TyreLife       *int     `json:"tyre_life"`
	PitIn          *float64 `json:"pit_in"`
	PitOut         *float64 `json:"pit_out"`
	LapStart       *float64 `json:"lap_start"`
	Position       *int     `json:"position"`
	IsPersonalBest bool     `json:"is_pb"`
	TrackStatus    string   `json:"track_status"`
	Stint          *int     `json:"stint"`
}

// Stint is a continuous span of laps on one tyre set.
type Stint struct {
	Driver         string
	StintNumber    int
	Compound       string
	LapStart       int
	LapEnd         int
	TyreAgeAtStart int
}

// PitStop describes one visit to the pit lane.
// Timestamp is race-relative; durations are seconds.
type PitStop struct {
	Driver       string
	Lap          int
	Timestamp    float64
	LaneDuration *float64
	StopDuration *float64
}

// RaceControlMessage is one race-control log entry.
type RaceControlMessage struct {
	Lap     int
	Message string
	Flag    string
}

// RankChange is one entry of the position-rank change log.
type RankChange struct {
	Driver    string
	Timestamp float64
	Position  int
}

// track status code characters as used by the upstream coded statuses
const (
	StatusYellow       = "2"
	StatusDoubleYellow = "3"
	StatusSafetyCar    = "4"
	StatusVSC          = "5"
)

//nolint:tagliatelle // artifact keys are fixed by the frontend contract
type Weather struct {
	AirTemp   *float64 `json:"air_temp"`
	TrackTemp *float64 `json:"track_temp"`
	Humidity  *float64 `json:"humidity"`
	Rainfall  bool     `json:"rainfall"`
}

//nolint:tagliatelle // artifact keys are fixed by the frontend contract
type SessionInfo struct {
	Name      string  `json:"name"`
	Circuit   string  `json:"circuit"`
	TotalLaps int     `json:"total_laps"`
	Weather   Weather `json:"weather"`
}
