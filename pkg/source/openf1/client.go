// Package openf1 implements the upstream source against the OpenF1 REST API
// (https://openf1.org). All queries are scoped to one session resolved from
// year, grand prix name and session name.
package openf1

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/f1replay/replay-service-go/log"
	"github.com/f1replay/replay-service-go/pkg/model"
	"github.com/f1replay/replay-service-go/pkg/source"
)

const DefaultBaseURL = "https://api.openf1.org/v1"

var ErrSessionNotFound = fmt.Errorf("no matching session")

type Option func(*Client)

func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithRequestRate caps outgoing requests per second. The public API
// throttles aggressively, so the default stays conservative.
func WithRequestRate(rps float64) Option {
	return func(c *Client) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
}

func WithLogger(l *log.Logger) Option {
	return func(c *Client) { c.log = l }
}

// Client fetches session feeds from OpenF1.
type Client struct {
	baseURL   string
	http      *http.Client
	limiter   *rate.Limiter
	log       *log.Logger
	year      int
	grandPrix string
	session   string

	meta *source.SessionMeta
}

func NewClient(year int, grandPrix, session string, opts ...Option) *Client {
	ret := &Client{
		baseURL:   DefaultBaseURL,
		http:      &http.Client{Timeout: 60 * time.Second},
		limiter:   rate.NewLimiter(rate.Limit(3), 1),
		log:       log.Default(),
		year:      year,
		grandPrix: grandPrix,
		session:   session,
	}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}

// apiTime tolerates both RFC 3339 timestamps and the naive
// "2006-01-02T15:04:05.999999" variant the API mixes in, which is
// interpreted as UTC.
type apiTime struct {
	time.Time
}

func (t *apiTime) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		return nil
	}
	if parsed, err := time.Parse(time.RFC3339Nano, s); err == nil {
		t.Time = parsed
		return nil
	}
	parsed, err := time.Parse("2006-01-02T15:04:05.999999", s)
	if err != nil {
		return fmt.Errorf("unsupported timestamp %q: %w", s, err)
	}
	t.Time = parsed.UTC()
	return nil
}

func (t *apiTime) ptr() *time.Time {
	if t == nil || t.IsZero() {
		return nil
	}
	ret := t.Time
	return &ret
}

type sessionDTO struct {
	SessionKey  int      `json:"session_key"`
	MeetingKey  int      `json:"meeting_key"`
	SessionName string   `json:"session_name"`
	CountryName string   `json:"country_name"`
	Location    string   `json:"location"`
	CircuitName string   `json:"circuit_short_name"`
	DateStart   *apiTime `json:"date_start"`
	DateEnd     *apiTime `json:"date_end"`
}

type lapDTO struct {
	DriverNumber int      `json:"driver_number"`
	LapNumber    *int     `json:"lap_number"`
	LapDuration  *float64 `json:"lap_duration"`
	Sector1      *float64 `json:"duration_sector_1"`
	Sector2      *float64 `json:"duration_sector_2"`
	Sector3      *float64 `json:"duration_sector_3"`
	DateStart    *apiTime `json:"date_start"`
	IsPitOutLap  bool     `json:"is_pit_out_lap"`
}

type driverDTO struct {
	DriverNumber int    `json:"driver_number"`
	NameAcronym  string `json:"name_acronym"`
	FullName     string `json:"full_name"`
	TeamName     string `json:"team_name"`
	TeamColour   string `json:"team_colour"`
}

type stintDTO struct {
	DriverNumber   int    `json:"driver_number"`
	StintNumber    int    `json:"stint_number"`
	Compound       string `json:"compound"`
	LapStart       *int   `json:"lap_start"`
	LapEnd         *int   `json:"lap_end"`
	TyreAgeAtStart *int   `json:"tyre_age_at_start"`
}

type pitDTO struct {
	DriverNumber int      `json:"driver_number"`
	LapNumber    *int     `json:"lap_number"`
	Date         *apiTime `json:"date"`
	PitDuration  *float64 `json:"pit_duration"`
}

type positionDTO struct {
	DriverNumber int      `json:"driver_number"`
	Date         *apiTime `json:"date"`
	Position     int      `json:"position"`
}

type raceControlDTO struct {
	LapNumber *int     `json:"lap_number"`
	Date      *apiTime `json:"date"`
	Message   string   `json:"message"`
	Flag      string   `json:"flag"`
	Category  string   `json:"category"`
}

type locationDTO struct {
	DriverNumber int      `json:"driver_number"`
	Date         *apiTime `json:"date"`
	X            float64  `json:"x"`
	Y            float64  `json:"y"`
}

type weatherDTO struct {
	AirTemperature   *float64 `json:"air_temperature"`
	TrackTemperature *float64 `json:"track_temperature"`
	Humidity         *float64 `json:"humidity"`
	Rainfall         int      `json:"rainfall"`
}

// Resolve finds the session matching the configured year, grand prix and
// session name. The grand prix is matched case-insensitively against the
// meeting's location, country and circuit names.
func (c *Client) Resolve(ctx context.Context) (source.SessionMeta, error) {
	var sessions []sessionDTO
	params := url.Values{}
	params.Set("year", strconv.Itoa(c.year))
	params.Set("session_name", c.session)
	if err := c.get(ctx, "sessions", params, &sessions); err != nil {
		return source.SessionMeta{}, err
	}
	needle := strings.ToLower(c.grandPrix)
	for i := range sessions {
		s := sessions[i]
		if strings.Contains(strings.ToLower(s.Location), needle) ||
			strings.Contains(strings.ToLower(s.CountryName), needle) ||
			strings.Contains(strings.ToLower(s.CircuitName), needle) {
			meta := source.SessionMeta{
				SessionKey:  s.SessionKey,
				MeetingKey:  s.MeetingKey,
				Name:        s.SessionName,
				CircuitName: s.CircuitName,
				DateStart:   s.DateStart.ptr(),
				DateEnd:     s.DateEnd.ptr(),
			}
			c.meta = &meta
			c.log.Info("session resolved",
				log.Int("sessionKey", meta.SessionKey),
				log.String("circuit", meta.CircuitName))
			return meta, nil
		}
	}
	return source.SessionMeta{}, fmt.Errorf("%w: year=%d gp=%q session=%q",
		ErrSessionNotFound, c.year, c.grandPrix, c.session)
}

func (c *Client) Drivers(ctx context.Context) ([]source.DriverRecord, error) {
	var raw []driverDTO
	if err := c.getSession(ctx, "drivers", nil, &raw); err != nil {
		return nil, err
	}
	ret := make([]source.DriverRecord, 0, len(raw))
	for _, d := range raw {
		ret = append(ret, source.DriverRecord{
			Number:     strconv.Itoa(d.DriverNumber),
			Abbrev:     d.NameAcronym,
			FullName:   d.FullName,
			TeamName:   d.TeamName,
			TeamColour: d.TeamColour,
		})
	}
	return ret, nil
}

func (c *Client) Laps(ctx context.Context) ([]source.RawLap, error) {
	var raw []lapDTO
	if err := c.getSession(ctx, "laps", nil, &raw); err != nil {
		return nil, err
	}
	ret := make([]source.RawLap, 0, len(raw))
	for _, l := range raw {
		ret = append(ret, source.RawLap{
			Driver:      strconv.Itoa(l.DriverNumber),
			Lap:         l.LapNumber,
			Duration:    l.LapDuration,
			Sector1:     l.Sector1,
			Sector2:     l.Sector2,
			Sector3:     l.Sector3,
			DateStart:   l.DateStart.ptr(),
			IsPitOutLap: l.IsPitOutLap,
		})
	}
	return ret, nil
}

func (c *Client) Stints(ctx context.Context) ([]model.Stint, error) {
	var raw []stintDTO
	if err := c.getSession(ctx, "stints", nil, &raw); err != nil {
		return nil, err
	}
	ret := make([]model.Stint, 0, len(raw))
	for _, s := range raw {
		if s.LapStart == nil || s.LapEnd == nil {
			continue
		}
		age := 0
		if s.TyreAgeAtStart != nil {
			age = *s.TyreAgeAtStart
		}
		ret = append(ret, model.Stint{
			Driver:         strconv.Itoa(s.DriverNumber),
			StintNumber:    s.StintNumber,
			Compound:       s.Compound,
			LapStart:       *s.LapStart,
			LapEnd:         *s.LapEnd,
			TyreAgeAtStart: age,
		})
	}
	return ret, nil
}

func (c *Client) PitStops(ctx context.Context) ([]source.PitRecord, error) {
	var raw []pitDTO
	if err := c.getSession(ctx, "pit", nil, &raw); err != nil {
		return nil, err
	}
	ret := make([]source.PitRecord, 0, len(raw))
	for _, p := range raw {
		ret = append(ret, source.PitRecord{
			Driver:      strconv.Itoa(p.DriverNumber),
			Lap:         p.LapNumber,
			Date:        p.Date.ptr(),
			PitDuration: p.PitDuration,
		})
	}
	return ret, nil
}

func (c *Client) Ranks(ctx context.Context) ([]source.RankRecord, error) {
	var raw []positionDTO
	if err := c.getSession(ctx, "position", nil, &raw); err != nil {
		return nil, err
	}
	ret := make([]source.RankRecord, 0, len(raw))
	for _, p := range raw {
		ret = append(ret, source.RankRecord{
			Driver:   strconv.Itoa(p.DriverNumber),
			Date:     p.Date.ptr(),
			Position: p.Position,
		})
	}
	return ret, nil
}

func (c *Client) RaceControl(ctx context.Context) ([]source.RaceControlRecord, error) {
	var raw []raceControlDTO
	if err := c.getSession(ctx, "race_control", nil, &raw); err != nil {
		return nil, err
	}
	ret := make([]source.RaceControlRecord, 0, len(raw))
	for _, m := range raw {
		ret = append(ret, source.RaceControlRecord{
			Lap:      m.LapNumber,
			Date:     m.Date.ptr(),
			Message:  m.Message,
			Flag:     m.Flag,
			Category: m.Category,
		})
	}
	return ret, nil
}

// Locations fetches the position trace for one driver. This is by far the
// heaviest feed, so it is queried per driver instead of for the whole field
// at once.
func (c *Client) Locations(ctx context.Context, driver string) ([]source.LocationRecord, error) {
	params := url.Values{}
	params.Set("driver_number", driver)
	var raw []locationDTO
	if err := c.getSession(ctx, "location", params, &raw); err != nil {
		return nil, err
	}
	ret := make([]source.LocationRecord, 0, len(raw))
	for _, l := range raw {
		ret = append(ret, source.LocationRecord{
			Driver: strconv.Itoa(l.DriverNumber),
			Date:   l.Date.ptr(),
			X:      l.X,
			Y:      l.Y,
		})
	}
	return ret, nil
}

func (c *Client) Weather(ctx context.Context) ([]source.WeatherRecord, error) {
	var raw []weatherDTO
	if err := c.getSession(ctx, "weather", nil, &raw); err != nil {
		return nil, err
	}
	ret := make([]source.WeatherRecord, 0, len(raw))
	for _, w := range raw {
		ret = append(ret, source.WeatherRecord{
			AirTemp:   w.AirTemperature,
			TrackTemp: w.TrackTemperature,
			Humidity:  w.Humidity,
			Rainfall:  w.Rainfall > 0,
		})
	}
	return ret, nil
}

func (c *Client) getSession(ctx context.Context, endpoint string, params url.Values, out any) error {
	if c.meta == nil {
		if _, err := c.Resolve(ctx); err != nil {
			return err
		}
	}
	if params == nil {
		params = url.Values{}
	}
	params.Set("session_key", strconv.Itoa(c.meta.SessionKey))
	return c.get(ctx, endpoint, params, out)
}

func (c *Client) get(ctx context.Context, endpoint string, params url.Values, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	reqURL := c.baseURL + "/" + endpoint
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return err
	}
	c.log.Debug("fetching", log.String("url", reqURL))
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("get %s: %w", endpoint, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("get %s: status %d: %s", endpoint, resp.StatusCode, string(body))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", endpoint, err)
	}
	return nil
}
