// Package telemetry holds the process-wide observability state: the
// active-request counter, the last generation error, and host/device
// resource sampling for the health and status endpoints.
package telemetry

import (
	"sync"
	"sync/atomic"
	"time"
)

// State is the single process-wide mutable telemetry object. All updates go
// through atomic or mutex-guarded methods; components hold a reference
// instead of sharing ad hoc globals.
type State struct {
	start  time.Time
	active atomic.Int64

	mu          sync.Mutex
	lastError   string
	lastErrorAt time.Time
}

// NewState initializes telemetry state; start time anchors uptime.
func NewState() *State {
	return &State{start: time.Now()}
}

// RequestStarted increments the active-request counter.
func (s *State) RequestStarted() {
	s.active.Add(1)
}

// RequestFinished decrements the active-request counter. Callers pair it
// with RequestStarted on every terminal transition, success or failure, so
// the count never leaks on error paths.
func (s *State) RequestFinished() {
	s.active.Add(-1)
}

// ActiveRequests returns the number of requests currently in flight.
func (s *State) ActiveRequests() int64 {
	return s.active.Load()
}

// RecordError remembers err as the most recent generation failure.
func (s *State) RecordError(err error) {
	if err == nil {
		return
	}
	s.mu.Lock()
	s.lastError = err.Error()
	s.lastErrorAt = time.Now()
	s.mu.Unlock()
}

// LastError returns the most recent failure summary, empty if none.
func (s *State) LastError() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastError
}

// Uptime returns the time elapsed since the state was initialized.
func (s *State) Uptime() time.Duration {
	return time.Since(s.start)
}
