// Package processing drives the full derivation pipeline: fetch the raw
// session feeds, rebase them onto race-relative time and reduce them to the
// two replay artifacts.
package processing

import (
	"context"
	"fmt"

	"gonum.org/v1/gonum/stat"

	"github.com/f1replay/replay-service-go/log"
	"github.com/f1replay/replay-service-go/pkg/colors"
	"github.com/f1replay/replay-service-go/pkg/encoding"
	"github.com/f1replay/replay-service-go/pkg/model"
	"github.com/f1replay/replay-service-go/pkg/processing/assemble"
	"github.com/f1replay/replay-service-go/pkg/processing/insight"
	"github.com/f1replay/replay-service-go/pkg/processing/resample"
	"github.com/f1replay/replay-service-go/pkg/processing/track"
	"github.com/f1replay/replay-service-go/pkg/source"
)

const defaultSampleStep = 0.5

// ProgressFunc receives pipeline progress: percent complete and a short
// human-readable stage description.
type ProgressFunc func(percent int, message string)

type Option func(*Processor)

func WithSource(src source.Source) Option {
	return func(p *Processor) { p.src = src }
}

func WithSampleStep(step float64) Option {
	return func(p *Processor) {
		if step > 0 {
			p.sampleStep = step
		}
	}
}

func WithProgressFunc(fn ProgressFunc) Option {
	return func(p *Processor) { p.progress = fn }
}

func WithLogger(l *log.Logger) Option {
	return func(p *Processor) { p.log = l }
}

// Processor owns one end-to-end derivation run.
type Processor struct {
	src        source.Source
	sampleStep float64
	progress   ProgressFunc
	log        *log.Logger
}

func NewProcessor(opts ...Option) *Processor {
	ret := &Processor{
		sampleStep: defaultSampleStep,
		progress:   func(int, string) {},
		log:        log.Default(),
	}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}

// Process runs the pipeline and returns both artifacts. The context
// cancels in-flight upstream fetches; a partially fetched session is never
// returned.
//
//nolint:funlen // linear pipeline, one stage per block
func (p *Processor) Process(ctx context.Context) (*model.RaceData, model.Positions, error) {
	if p.src == nil {
		return nil, nil, fmt.Errorf("no source configured")
	}

	p.progress(5, "Resolving session")
	meta, err := p.src.Resolve(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("resolve session: %w", err)
	}
	p.log.Info("processing session",
		log.String("name", meta.Name),
		log.String("circuit", meta.CircuitName))

	p.progress(30, "Loading drivers")
	driverRecs, err := p.src.Drivers(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("fetch drivers: %w", err)
	}
	drivers := make(map[string]model.Driver, len(driverRecs))
	for _, d := range driverRecs {
		drivers[d.Number] = model.Driver{
			Number: d.Number,
			Abbrev: d.Abbrev,
			Name:   d.FullName,
			Team:   d.TeamName,
			Color:  colors.Team(d.TeamName, d.TeamColour),
		}
	}

	p.progress(45, "Loading lap data")
	rawLaps, err := p.src.Laps(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("fetch laps: %w", err)
	}
	start, ok := assemble.RaceStart(rawLaps)
	if !ok {
		return nil, nil, fmt.Errorf("no lap carries a start time, cannot anchor race start")
	}

	p.progress(52, "Joining lap data")
	stints, err := p.src.Stints(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("fetch stints: %w", err)
	}
	pits, err := p.src.PitStops(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("fetch pit stops: %w", err)
	}
	ranks, err := p.src.Ranks(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("fetch positions: %w", err)
	}
	rcRecords, err := p.src.RaceControl(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("fetch race control: %w", err)
	}
	laps := assemble.Laps(rawLaps, stints, pits, ranks, rcRecords, start)
	pitStops := assemble.PitStops(pits, start)
	rcMessages := assemble.RaceControl(rcRecords)

	p.progress(55, "Loading position traces")
	traces := make(map[string][]model.PositionSample, len(drivers))
	positions := make(model.Positions, len(drivers))
	for _, d := range driverRecs {
		locs, err := p.src.Locations(ctx, d.Number)
		if err != nil {
			return nil, nil, fmt.Errorf("fetch locations for %s: %w", d.Number, err)
		}
		samples := assemble.Samples(locs, start)
		traces[d.Number] = samples
		positions[d.Number] = resample.Series(samples, p.sampleStep)
	}

	p.progress(70, "Deriving track geometry")
	outline, rotation, pitLane := p.geometry(laps, pitStops, traces)

	p.progress(85, "Computing insights")
	insights := insight.Compute(laps, drivers, rcMessages)

	p.progress(95, "Finalizing")
	data := &model.RaceData{
		Session: model.SessionInfo{
			Name:      meta.Name,
			Circuit:   meta.CircuitName,
			TotalLaps: totalLaps(laps),
			Weather:   p.weather(ctx),
		},
		Drivers:  drivers,
		Track:    outline,
		Rotation: rotation,
		PitLane:  pitLane,
		Laps:     laps,
		Insights: insights,
	}
	p.progress(100, "Ready")
	return data, positions, nil
}

// geometry derives the outline from the driver who set the overall fastest
// valid lap and the pit lane from the earliest pit visit. Both degrade to
// empty shapes when the underlying traces are missing.
func (p *Processor) geometry(
	laps []model.Lap,
	pitStops []model.PitStop,
	traces map[string][]model.PositionSample,
) (model.TrackOutline, float64, model.PitLanePath) {
	refDriver := fastestDriver(laps)
	outline := model.TrackOutline{X: make([]float64, 0), Y: make([]float64, 0)}
	if refDriver != "" {
		driverLaps := make([]model.Lap, 0)
		for _, l := range laps {
			if l.Driver == refDriver {
				driverLaps = append(driverLaps, l)
			}
		}
		var ok bool
		outline, ok = track.ExtractOutline(driverLaps, traces[refDriver])
		if !ok {
			p.log.Warn("no usable outline lap", log.String("driver", refDriver))
		}
	}
	rotation := track.Rotation(outline)

	pitLane := model.PitLanePath{X: make([]float64, 0), Y: make([]float64, 0)}
	if len(pitStops) > 0 {
		stop := pitStops[0]
		pitLane = track.ExtractPitLane(traces[stop.Driver], stop, outline)
	}
	return outline, rotation, pitLane
}

// weather averages the station readings over the whole session. A failed
// weather fetch degrades to empty values instead of failing the run.
func (p *Processor) weather(ctx context.Context) model.Weather {
	records, err := p.src.Weather(ctx)
	if err != nil {
		p.log.Warn("weather unavailable", log.ErrorField(err))
		return model.Weather{}
	}
	air := make([]float64, 0, len(records))
	trackTemp := make([]float64, 0, len(records))
	humidity := make([]float64, 0, len(records))
	rainfall := false
	for _, w := range records {
		if w.AirTemp != nil {
			air = append(air, *w.AirTemp)
		}
		if w.TrackTemp != nil {
			trackTemp = append(trackTemp, *w.TrackTemp)
		}
		if w.Humidity != nil {
			humidity = append(humidity, *w.Humidity)
		}
		rainfall = rainfall || w.Rainfall
	}
	return model.Weather{
		AirTemp:   mean(air),
		TrackTemp: mean(trackTemp),
		Humidity:  mean(humidity),
		Rainfall:  rainfall,
	}
}

// one decimal, like the station readings themselves
func mean(values []float64) *float64 {
	if len(values) == 0 {
		return nil
	}
	return encoding.SafeFloat(encoding.Round(stat.Mean(values, nil), 1))
}

func fastestDriver(laps []model.Lap) string {
	best := ""
	bestTime := 0.0
	for _, l := range laps {
		if l.LapTime == nil || l.LapStart == nil {
			continue
		}
		if best == "" || *l.LapTime < bestTime {
			best = l.Driver
			bestTime = *l.LapTime
		}
	}
	return best
}

func totalLaps(laps []model.Lap) int {
	total := 0
	for _, l := range laps {
		if l.Lap != nil && *l.Lap > total {
			total = *l.Lap
		}
	}
	return total
}
