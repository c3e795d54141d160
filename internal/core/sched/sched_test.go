package sched

import (
	"testing"
	"time"
)

func TestFiresInDueOrder(t *testing.T) {
	s := New()
	var order []string
	s.After(300*time.Millisecond, func() { order = append(order, "late") })
	s.After(100*time.Millisecond, func() { order = append(order, "early") })

	s.Advance(500 * time.Millisecond)

	if len(order) != 2 || order[0] != "early" || order[1] != "late" {
		t.Fatalf("order = %v", order)
	}
}

func TestDoesNotFireEarly(t *testing.T) {
	s := New()
	fired := false
	s.After(time.Second, func() { fired = true })

	s.Advance(999 * time.Millisecond)
	if fired {
		t.Fatal("fired before due time")
	}
	s.Advance(time.Millisecond)
	if !fired {
		t.Fatal("did not fire at due time")
	}
}

func TestCancelPreventsFiring(t *testing.T) {
	s := New()
	fired := false
	e := s.After(100*time.Millisecond, func() { fired = true })
	e.Cancel()

	s.Advance(time.Second)
	if fired {
		t.Fatal("cancelled entry fired")
	}
	if s.Pending() != 0 {
		t.Fatalf("pending = %d, want 0", s.Pending())
	}
}

func TestCallbackSchedulingAlreadyDueEntryFiresSamePass(t *testing.T) {
	s := New()
	var order []string
	s.After(100*time.Millisecond, func() {
		order = append(order, "outer")
		s.After(0, func() { order = append(order, "inner") })
	})

	s.Advance(200 * time.Millisecond)
	if len(order) != 2 || order[1] != "inner" {
		t.Fatalf("order = %v", order)
	}
}

func TestNowAdvances(t *testing.T) {
	s := New()
	s.Advance(250 * time.Millisecond)
	s.Advance(250 * time.Millisecond)
	if s.Now() != 500*time.Millisecond {
		t.Fatalf("now = %v", s.Now())
	}
}
