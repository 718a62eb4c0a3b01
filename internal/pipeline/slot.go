package pipeline

import (
	"errors"
	"sync"

	"github.com/ppiankov/livecheck/internal/model"
)

var (
	// ErrSuperseded is returned when an event belongs to a run that a newer run replaced
	ErrSuperseded = errors.New("run superseded")

	// ErrSlotClosed is returned when an event arrives after the slot was closed
	ErrSlotClosed = errors.New("slot closed")
)

// Slot is the single verification slot of one client. Starting a run
// supersedes the previous one: the old run keeps executing, but none of its
// events are delivered after the new run started. Closing the slot stops
// all delivery.
type Slot struct {
	mu      sync.Mutex
	gen     uint64
	closed  bool
	deliver Emit
	dropped int
	active  int

	wg sync.WaitGroup
}

// NewSlot creates a slot delivering events to deliver. deliver is called
// with the slot lock held and must not block for long.
func NewSlot(deliver Emit) *Slot {
	return &Slot{deliver: deliver}
}

// Start runs fn in a new goroutine as the slot's current run. It reports
// whether an earlier run was still in flight and got superseded.
func (s *Slot) Start(fn func(emit Emit)) bool {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return false
	}
	s.gen++
	gen := s.gen
	superseded := s.active > 0
	s.active++
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			s.mu.Lock()
			s.active--
			s.mu.Unlock()
		}()
		fn(func(ev model.Event) {
			_ = s.Send(gen, ev)
		})
	}()
	return superseded
}

// Send delivers ev if gen is still the current run and the slot is open
func (s *Slot) Send(gen uint64, ev model.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case s.closed:
		s.dropped++
		return ErrSlotClosed
	case gen != s.gen:
		s.dropped++
		return ErrSuperseded
	}
	s.deliver(ev)
	return nil
}

// Close stops delivery for every current and future run
func (s *Slot) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}

// Wait blocks until every started run returned
func (s *Slot) Wait() {
	s.wg.Wait()
}

// Active returns the number of runs still executing, superseded ones included
func (s *Slot) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Dropped returns how many events were suppressed
func (s *Slot) Dropped() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dropped
}
