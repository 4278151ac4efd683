package service

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/cors"

	"github.com/f1replay/replay-service-go/log"
	"github.com/f1replay/replay-service-go/pkg/encoding"
)

type ServerOption func(*Server)

func WithAddr(addr string) ServerOption {
	return func(s *Server) { s.addr = addr }
}

func WithStateTracker(tracker *StateTracker) ServerOption {
	return func(s *Server) { s.state = tracker }
}

// WithStaticDir serves the frontend bundle from dir at the root path.
// Empty disables static serving.
func WithStaticDir(dir string) ServerOption {
	return func(s *Server) { s.staticDir = dir }
}

func WithServerLogger(l *log.Logger) ServerOption {
	return func(s *Server) { s.log = l }
}

// Server is the replay API frontend. Artifact payloads are served verbatim
// from the state tracker; handlers never touch pipeline internals.
type Server struct {
	addr      string
	staticDir string
	state     *StateTracker
	log       *log.Logger
	srv       *http.Server
}

func NewServer(opts ...ServerOption) *Server {
	ret := &Server{
		addr: "localhost:5000",
		log:  log.Default(),
	}
	for _, opt := range opts {
		opt(ret)
	}
	if ret.state == nil {
		ret.state = NewStateTracker()
	}
	return ret
}

// Handler builds the full route table including CORS.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/status", s.handleStatus)
	mux.HandleFunc("GET /api/data", s.handleData)
	mux.HandleFunc("GET /api/positions", s.handlePositions)
	if s.staticDir != "" {
		mux.Handle("/", http.FileServer(http.Dir(s.staticDir)))
	}
	// the replay frontend may be served from anywhere, so stay permissive
	return cors.AllowAll().Handler(mux)
}

func (s *Server) ListenAndServe() error {
	s.srv = &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.log.Info("http server listening", log.String("addr", s.addr))
	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.state.Status())
}

func (s *Server) handleData(w http.ResponseWriter, _ *http.Request) {
	data, _, ok := s.state.Artifacts()
	if !ok {
		s.writeNotReady(w)
		return
	}
	s.writeRaw(w, data)
}

func (s *Server) handlePositions(w http.ResponseWriter, _ *http.Request) {
	_, positions, ok := s.state.Artifacts()
	if !ok {
		s.writeNotReady(w)
		return
	}
	s.writeRaw(w, positions)
}

func (s *Server) writeNotReady(w http.ResponseWriter) {
	s.writeJSON(w, http.StatusServiceUnavailable, map[string]any{
		"error":  "Data not ready",
		"status": s.state.Status().Status,
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, v any) {
	payload, err := encoding.Marshal(v)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if _, err := w.Write(payload); err != nil {
		s.log.Debug("write response", log.ErrorField(err))
	}
}

func (s *Server) writeRaw(w http.ResponseWriter, payload []byte) {
	w.Header().Set("Content-Type", "application/json")
	if _, err := w.Write(payload); err != nil {
		s.log.Debug("write response", log.ErrorField(err))
	}
}
