package testutil

import (
	"context"
	"sync"
)

// FakeSession counts unit-of-work sync points.
type FakeSession struct {
	mu      sync.Mutex
	flushes int
	clears  int
	events  []string

	// FlushErr is returned from every Flush when set.
	FlushErr error
}

func (s *FakeSession) Flush(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flushes++
	s.events = append(s.events, "flush")
	return s.FlushErr
}

func (s *FakeSession) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clears++
	s.events = append(s.events, "clear")
}

// Flushes returns the number of Flush calls.
func (s *FakeSession) Flushes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flushes
}

// Clears returns the number of Clear calls.
func (s *FakeSession) Clears() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clears
}

// Record appends a caller-defined event so tests can interleave their own
// steps with flushes and clears.
func (s *FakeSession) Record(event string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
}

// Events returns the ordered log of flushes, clears and recorded events.
func (s *FakeSession) Events() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.events...)
}
