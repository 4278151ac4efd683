// Package cache provides a local SQLite-backed HTTP response cache so
// repeated runs against the same session do not hammer the upstream API.
package cache

import (
	"bytes"
	"database/sql"
	"fmt"
	"io"
	"net/http"
	"time"

	_ "modernc.org/sqlite"

	"github.com/f1replay/replay-service-go/log"
)

const schema = `
CREATE TABLE IF NOT EXISTS responses (
	url        TEXT PRIMARY KEY,
	status     INTEGER NOT NULL,
	body       BLOB NOT NULL,
	fetched_at TEXT NOT NULL
);
`

// Store is a URL-keyed response store on a single SQLite file.
type Store struct {
	db  *sql.DB
	log *log.Logger
}

// Open opens (creating if needed) the cache database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open cache %s: %w", path, err)
	}
	// modernc sqlite handles are not safe for concurrent writers
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init cache schema: %w", err)
	}
	return &Store{db: db, log: log.Default()}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Get(url string) ([]byte, bool) {
	var body []byte
	row := s.db.QueryRow("SELECT body FROM responses WHERE url = ?", url)
	if err := row.Scan(&body); err != nil {
		return nil, false
	}
	return body, true
}

func (s *Store) Put(url string, status int, body []byte) error {
	_, err := s.db.Exec(
		"INSERT OR REPLACE INTO responses (url, status, body, fetched_at) VALUES (?, ?, ?, ?)",
		url, status, body, time.Now().UTC().Format(time.RFC3339))
	return err
}

type transport struct {
	next  http.RoundTripper
	store *Store
}

// Transport wraps next with read-through caching. Only successful GET
// responses are stored; everything else passes straight through. Session
// data is immutable once a race is over, so entries never expire.
func (s *Store) Transport(next http.RoundTripper) http.RoundTripper {
	if next == nil {
		next = http.DefaultTransport
	}
	return &transport{next: next, store: s}
}

func (t *transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Method != http.MethodGet {
		return t.next.RoundTrip(req)
	}
	key := req.URL.String()
	if body, ok := t.store.Get(key); ok {
		t.store.log.Debug("cache hit", log.String("url", key))
		return cachedResponse(req, body), nil
	}
	resp, err := t.next.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return resp, nil
	}
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return nil, err
	}
	if err := t.store.Put(key, resp.StatusCode, body); err != nil {
		t.store.log.Warn("cache write failed",
			log.String("url", key), log.ErrorField(err))
	}
	resp.Body = io.NopCloser(bytes.NewReader(body))
	return resp, nil
}

func cachedResponse(req *http.Request, body []byte) *http.Response {
	return &http.Response{
		Status:        http.StatusText(http.StatusOK),
		StatusCode:    http.StatusOK,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        http.Header{"Content-Type": []string{"application/json"}},
		Body:          io.NopCloser(bytes.NewReader(body)),
		ContentLength: int64(len(body)),
		Request:       req,
	}
}
