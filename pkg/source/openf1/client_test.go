package openf1

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, payloads map[string]string) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		payload, ok := payloads[r.URL.Path]
		if !ok {
			t.Errorf("unexpected request path %s", r.URL.Path)
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(payload))
	}))
	t.Cleanup(ts.Close)
	return ts
}

const sessionsPayload = `[
	{"session_key": 9158, "meeting_key": 1219, "session_name": "Race",
	 "country_name": "Great Britain", "location": "Silverstone",
	 "circuit_short_name": "Silverstone",
	 "date_start": "2025-07-06T14:00:00+00:00"},
	{"session_key": 9999, "meeting_key": 1300, "session_name": "Race",
	 "country_name": "Italy", "location": "Monza",
	 "circuit_short_name": "Monza",
	 "date_start": "2025-09-07T13:00:00+00:00"}
]`

func newTestClient(ts *httptest.Server, gp string) *Client {
	return NewClient(2025, gp, "Race",
		WithBaseURL(ts.URL),
		WithRequestRate(1000),
		WithHTTPClient(ts.Client()),
	)
}

func TestResolveMatchesLocation(t *testing.T) {
	ts := newTestServer(t, map[string]string{"/sessions": sessionsPayload})
	client := newTestClient(ts, "silverstone")

	meta, err := client.Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 9158, meta.SessionKey)
	assert.Equal(t, "Silverstone", meta.CircuitName)
	require.NotNil(t, meta.DateStart)
	assert.Equal(t, 14, meta.DateStart.UTC().Hour())
}

func TestResolveMatchesCountry(t *testing.T) {
	ts := newTestServer(t, map[string]string{"/sessions": sessionsPayload})
	client := newTestClient(ts, "Italy")

	meta, err := client.Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 9999, meta.SessionKey)
}

func TestResolveNotFound(t *testing.T) {
	ts := newTestServer(t, map[string]string{"/sessions": `[]`})
	client := newTestClient(ts, "Silverstone")

	_, err := client.Resolve(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestLapsScopedToSession(t *testing.T) {
	lapsPayload := `[
		{"driver_number": 1, "lap_number": 2, "lap_duration": 90.5,
		 "duration_sector_1": 28.1, "duration_sector_2": 31.2,
		 "duration_sector_3": 31.2,
		 "date_start": "2025-07-06T14:03:00+00:00", "is_pit_out_lap": false},
		{"driver_number": 1, "lap_number": 1, "lap_duration": null,
		 "date_start": "2025-07-06T14:01:30.123456", "is_pit_out_lap": false}
	]`
	var gotQuery string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/sessions":
			_, _ = w.Write([]byte(sessionsPayload))
		case "/laps":
			gotQuery = r.URL.RawQuery
			_, _ = w.Write([]byte(lapsPayload))
		default:
			http.NotFound(w, r)
		}
	}))
	defer ts.Close()
	client := newTestClient(ts, "Silverstone")

	laps, err := client.Laps(context.Background())
	require.NoError(t, err)
	assert.Contains(t, gotQuery, "session_key=9158")
	require.Len(t, laps, 2)

	assert.Equal(t, "1", laps[0].Driver)
	assert.Equal(t, 2, *laps[0].Lap)
	assert.Equal(t, 90.5, *laps[0].Duration)
	require.NotNil(t, laps[0].DateStart)

	// the naive timestamp variant is treated as UTC
	assert.Nil(t, laps[1].Duration)
	require.NotNil(t, laps[1].DateStart)
	want := time.Date(2025, 7, 6, 14, 1, 30, 123456000, time.UTC)
	assert.True(t, laps[1].DateStart.Equal(want), "got %v", laps[1].DateStart)
}

func TestStintsSkipIncomplete(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"/sessions": sessionsPayload,
		"/stints": `[
			{"driver_number": 1, "stint_number": 1, "compound": "MEDIUM",
			 "lap_start": 1, "lap_end": 20, "tyre_age_at_start": 2},
			{"driver_number": 1, "stint_number": 2, "compound": "HARD",
			 "lap_start": 21, "lap_end": null}
		]`,
	})
	client := newTestClient(ts, "Silverstone")

	stints, err := client.Stints(context.Background())
	require.NoError(t, err)
	require.Len(t, stints, 1)
	assert.Equal(t, "MEDIUM", stints[0].Compound)
	assert.Equal(t, 2, stints[0].TyreAgeAtStart)
}

func TestLocationsQueriesPerDriver(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"/sessions": sessionsPayload,
		"/location": `[
			{"driver_number": 44, "date": "2025-07-06T14:03:01+00:00",
			 "x": 1023.4, "y": -2048.7}
		]`,
	})
	client := newTestClient(ts, "Silverstone")

	locs, err := client.Locations(context.Background(), "44")
	require.NoError(t, err)
	require.Len(t, locs, 1)
	assert.Equal(t, "44", locs[0].Driver)
	assert.Equal(t, 1023.4, locs[0].X)
}

func TestWeatherRainfallFlag(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"/sessions": sessionsPayload,
		"/weather": `[
			{"air_temperature": 21.5, "track_temperature": 33.0,
			 "humidity": 48.0, "rainfall": 0},
			{"air_temperature": 20.0, "track_temperature": 30.0,
			 "humidity": 70.0, "rainfall": 1}
		]`,
	})
	client := newTestClient(ts, "Silverstone")

	weather, err := client.Weather(context.Background())
	require.NoError(t, err)
	require.Len(t, weather, 2)
	assert.False(t, weather[0].Rainfall)
	assert.True(t, weather[1].Rainfall)
}

func TestGetErrorStatus(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "too many requests", http.StatusTooManyRequests)
	}))
	defer ts.Close()
	client := newTestClient(ts, "Silverstone")

	_, err := client.Resolve(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestAPITimeRejectsGarbage(t *testing.T) {
	var ts apiTime
	err := ts.UnmarshalJSON([]byte(`"yesterday"`))
	require.Error(t, err)

	require.NoError(t, json.Unmarshal([]byte(`""`), &ts))
	assert.True(t, ts.IsZero())
}
