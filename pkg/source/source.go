// Package source defines the upstream data contract of the pipeline. A
// Source delivers the raw session feeds; implementations live in
// subpackages.
package source

import (
	"context"
	"time"

	"github.com/f1replay/replay-service-go/pkg/model"
)

// SessionMeta identifies the resolved session and its venue.
type SessionMeta struct {
	SessionKey  int
	MeetingKey  int
	Name        string
	CircuitName string
	DateStart   *time.Time
	DateEnd     *time.Time
}

// RawLap is a single lap record as delivered upstream, with absolute
// wall-clock timing. Conversion to race-relative seconds happens later.
type RawLap struct {
	Driver      string
	Lap         *int
	Duration    *float64
	Sector1     *float64
	Sector2     *float64
	Sector3     *float64
	DateStart   *time.Time
	IsPitOutLap bool
}

// DriverRecord carries the entry-list data for one car.
type DriverRecord struct {
	Number     string
	Abbrev     string
	FullName   string
	TeamName   string
	TeamColour string
}

// PitRecord is one pit-lane visit.
type PitRecord struct {
	Driver       string
	Lap          *int
	Date         *time.Time
	PitDuration  *float64
	StopDuration *float64
}

// RankRecord is a timestamped running-position change.
type RankRecord struct {
	Driver   string
	Date     *time.Time
	Position int
}

// RaceControlRecord is a race-control bulletin.
type RaceControlRecord struct {
	Lap      *int
	Date     *time.Time
	Message  string
	Flag     string
	Category string
}

// LocationRecord is a single car position ping.
type LocationRecord struct {
	Driver string
	Date   *time.Time
	X      float64
	Y      float64
}

// WeatherRecord is one weather station reading.
type WeatherRecord struct {
	AirTemp   *float64
	TrackTemp *float64
	Humidity  *float64
	Rainfall  bool
}

// Source delivers the raw feeds for one session. Implementations resolve
// the session during Resolve and scope every later call to it.
type Source interface {
	Resolve(ctx context.Context) (SessionMeta, error)
	Drivers(ctx context.Context) ([]DriverRecord, error)
	Laps(ctx context.Context) ([]RawLap, error)
	Stints(ctx context.Context) ([]model.Stint, error)
	PitStops(ctx context.Context) ([]PitRecord, error)
	Ranks(ctx context.Context) ([]RankRecord, error)
	RaceControl(ctx context.Context) ([]RaceControlRecord, error)
	Locations(ctx context.Context, driver string) ([]LocationRecord, error)
	Weather(ctx context.Context) ([]WeatherRecord, error)
}
