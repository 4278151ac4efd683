// Package service exposes the derived artifacts over HTTP and tracks the
// readiness of the background pipeline run.
package service

import (
	"sync/atomic"
)

// pipeline lifecycle states as reported at /api/status
const (
	StateIdle    = "idle"
	StateLoading = "loading"
	StateReady   = "ready"
	StateError   = "error"
)

// Status is the externally visible pipeline state.
type Status struct {
	Status   string `json:"status"`
	Progress int    `json:"progress"`
	Message  string `json:"message"`
}

// StateTracker decouples the pipeline goroutine from request handlers.
// All updates flow through a single channel consumed by one goroutine, so
// writers never race; readers get lock-free snapshots. The tracker may be
// closed while the pipeline is still running; late updates are dropped
// instead of panicking.
type StateTracker struct {
	updates   chan Status
	quit      chan struct{}
	done      chan struct{}
	cur       atomic.Pointer[Status]
	data      atomic.Pointer[[]byte]
	positions atomic.Pointer[[]byte]
}

func NewStateTracker() *StateTracker {
	ret := &StateTracker{
		updates: make(chan Status, 16),
		quit:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	initial := Status{Status: StateIdle}
	ret.cur.Store(&initial)
	go ret.consume()
	return ret
}

func (s *StateTracker) consume() {
	defer close(s.done)
	for {
		select {
		case status := <-s.updates:
			snapshot := status
			s.cur.Store(&snapshot)
		case <-s.quit:
			return
		}
	}
}

// send never closes the updates channel, so a producer outliving Close
// cannot hit a send-on-closed-channel panic.
func (s *StateTracker) send(status Status) {
	select {
	case s.updates <- status:
	case <-s.quit:
	}
}

// SetProgress reports pipeline progress while loading.
func (s *StateTracker) SetProgress(percent int, message string) {
	s.send(Status{Status: StateLoading, Progress: percent, Message: message})
}

// SetReady publishes the finished artifacts and flips the state to ready.
func (s *StateTracker) SetReady(data, positions []byte) {
	s.data.Store(&data)
	s.positions.Store(&positions)
	s.send(Status{Status: StateReady, Progress: 100, Message: "Ready"})
}

// SetError flips the state to error with the failure message.
func (s *StateTracker) SetError(err error) {
	s.send(Status{Status: StateError, Message: err.Error()})
}

// Status returns the latest published state.
func (s *StateTracker) Status() Status {
	return *s.cur.Load()
}

// Artifacts returns the published artifact payloads. ok is false until
// SetReady has been observed.
func (s *StateTracker) Artifacts() (data, positions []byte, ok bool) {
	if s.Status().Status != StateReady {
		return nil, nil, false
	}
	d := s.data.Load()
	p := s.positions.Load()
	if d == nil || p == nil {
		return nil, nil, false
	}
	return *d, *p, true
}

// Close stops the consumer and waits for it to exit. Updates sent after
// (or racing with) Close are silently dropped; buffered updates that the
// consumer has not picked up yet are dropped as well.
func (s *StateTracker) Close() {
	close(s.quit)
	<-s.done
}
