package sched

import "time"

// Scheduler holds callbacks due at points on the simulation clock. Delays that
// would otherwise suspend execution (reconnect backoff, respawn waits) are
// modeled as entries here and fired by the game loop, so the tick never
// blocks. Single-goroutine use only.
type Scheduler struct {
	now     time.Duration
	entries []*Entry
}

// Entry is one scheduled callback. Cancel prevents it from firing.
type Entry struct {
	due      time.Duration
	fn       func()
	canceled bool
	fired    bool
}

func (e *Entry) Cancel() { e.canceled = true }

func New() *Scheduler {
	return &Scheduler{}
}

// Now returns the current simulation time.
func (s *Scheduler) Now() time.Duration { return s.now }

// After schedules fn to run d after the current simulation time.
func (s *Scheduler) After(d time.Duration, fn func()) *Entry {
	e := &Entry{due: s.now + d, fn: fn}
	s.entries = append(s.entries, e)
	return e
}

// Advance moves the simulation clock forward and fires every due entry in
// due-time order. Entries scheduled by a firing callback are considered in
// the same pass when already due.
func (s *Scheduler) Advance(dt time.Duration) {
	s.now += dt
	for {
		e := s.popDue()
		if e == nil {
			return
		}
		if !e.canceled {
			e.fired = true
			e.fn()
		}
	}
}

// popDue removes and returns the earliest due entry, or nil.
func (s *Scheduler) popDue() *Entry {
	best := -1
	for i, e := range s.entries {
		if e.canceled {
			continue
		}
		if e.due <= s.now && (best == -1 || e.due < s.entries[best].due) {
			best = i
		}
	}
	if best == -1 {
		// Compact out canceled entries opportunistically.
		s.compact()
		return nil
	}
	e := s.entries[best]
	s.entries = append(s.entries[:best], s.entries[best+1:]...)
	return e
}

func (s *Scheduler) compact() {
	kept := s.entries[:0]
	for _, e := range s.entries {
		if !e.canceled {
			kept = append(kept, e)
		}
	}
	s.entries = kept
}

// Pending reports the number of live entries, for tests and diagnostics.
func (s *Scheduler) Pending() int {
	n := 0
	for _, e := range s.entries {
		if !e.canceled {
			n++
		}
	}
	return n
}
