package service

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func getJSON(t *testing.T, ts *httptest.Server, path string) (int, map[string]any) {
	t.Helper()
	resp, err := ts.Client().Get(ts.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(body, &decoded))
	return resp.StatusCode, decoded
}

func waitForStatus(t *testing.T, tracker *StateTracker, want string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if tracker.Status().Status == want {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("state never reached %q, last: %+v", want, tracker.Status())
}

func TestServerLifecycle(t *testing.T) {
	tracker := NewStateTracker()
	defer tracker.Close()
	srv := NewServer(WithStateTracker(tracker))
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	code, status := getJSON(t, ts, "/api/status")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, StateIdle, status["status"])

	code, body := getJSON(t, ts, "/api/data")
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "Data not ready", body["error"])

	tracker.SetProgress(45, "Loading lap data")
	waitForStatus(t, tracker, StateLoading)

	code, status = getJSON(t, ts, "/api/status")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, StateLoading, status["status"])
	assert.Equal(t, float64(45), status["progress"])

	code, body = getJSON(t, ts, "/api/positions")
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, StateLoading, body["status"])

	tracker.SetReady([]byte(`{"laps":[]}`), []byte(`{"1":{"t":[],"x":[],"y":[]}}`))
	waitForStatus(t, tracker, StateReady)

	code, data := getJSON(t, ts, "/api/data")
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, data, "laps")

	code, positions := getJSON(t, ts, "/api/positions")
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, positions, "1")
}

func TestServerError(t *testing.T) {
	tracker := NewStateTracker()
	defer tracker.Close()
	srv := NewServer(WithStateTracker(tracker))
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	tracker.SetError(assert.AnError)
	waitForStatus(t, tracker, StateError)

	code, body := getJSON(t, ts, "/api/data")
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, StateError, body["status"])
}

func TestServerCORSHeaders(t *testing.T) {
	tracker := NewStateTracker()
	defer tracker.Close()
	srv := NewServer(WithStateTracker(tracker))
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	req, err := http.NewRequest(http.MethodGet, ts.URL+"/api/status", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost:5173")
	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestStateTrackerUpdatesAfterCloseAreDropped(t *testing.T) {
	tracker := NewStateTracker()
	tracker.SetProgress(70, "Deriving track geometry")
	waitForStatus(t, tracker, StateLoading)
	tracker.Close()

	// a pipeline goroutine outliving the tracker must not panic the
	// process when it reports its outcome
	assert.NotPanics(t, func() {
		tracker.SetProgress(85, "Computing insights")
		tracker.SetError(assert.AnError)
		tracker.SetReady([]byte("{}"), []byte("{}"))
	})
	assert.Equal(t, StateLoading, tracker.Status().Status)
	_, _, ok := tracker.Artifacts()
	assert.False(t, ok)
}

func TestStateTrackerSnapshots(t *testing.T) {
	tracker := NewStateTracker()
	defer tracker.Close()

	assert.Equal(t, StateIdle, tracker.Status().Status)
	_, _, ok := tracker.Artifacts()
	assert.False(t, ok)

	tracker.SetReady([]byte("a"), []byte("b"))
	waitForStatus(t, tracker, StateReady)
	data, positions, ok := tracker.Artifacts()
	require.True(t, ok)
	assert.Equal(t, "a", string(data))
	assert.Equal(t, "b", string(positions))
}
