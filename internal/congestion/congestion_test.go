package congestion

import (
	"math"
	"testing"
)

func TestIndexRange(t *testing.T) {
	cases := []struct {
		current, freeFlow float64
	}{
		{10, 50},
		{50, 50},
		{60, 50},
		{0.1, 100},
		{100, 0.1},
	}

	for _, c := range cases {
		index := Index(Speeds{Current: c.current, FreeFlow: c.freeFlow})
		if index < 0 || index > 100 {
			t.Errorf("Index(%v, %v) = %v, out of [0,100]", c.current, c.freeFlow, index)
		}
	}
}

func TestIndexFreeFlow(t *testing.T) {
	// At or above free-flow speed the index must be zero
	if got := Index(Speeds{Current: 50, FreeFlow: 50}); got != 0 {
		t.Errorf("Index at free flow = %v, want 0", got)
	}
	if got := Index(Speeds{Current: 80, FreeFlow: 50}); got != 0 {
		t.Errorf("Index above free flow = %v, want 0", got)
	}
}

func TestIndexCongested(t *testing.T) {
	if got := Index(Speeds{Current: 10, FreeFlow: 50}); math.Abs(got-80) > 1e-9 {
		t.Errorf("Index(10, 50) = %v, want 80", got)
	}
}

func TestIndexInvalidSpeeds(t *testing.T) {
	cases := []Speeds{
		{Current: 0, FreeFlow: 50},
		{Current: 50, FreeFlow: 0},
		{Current: -10, FreeFlow: 50},
		{Current: 10, FreeFlow: -50},
	}
	for _, s := range cases {
		if s.Valid() {
			t.Errorf("Speeds %+v should be invalid", s)
		}
		if got := Index(s); got != 0 {
			t.Errorf("Index(%+v) = %v, want 0", s, got)
		}
	}
}

func TestDelayMinutes(t *testing.T) {
	// Half of free flow: (1 - 0.5) * 1.5 = 0.75 minutes
	if got := DelayMinutes(Speeds{Current: 15, FreeFlow: 30}); got != 0.75 {
		t.Errorf("DelayMinutes(15, 30) = %v, want 0.75", got)
	}
	// Free flow contributes nothing
	if got := DelayMinutes(Speeds{Current: 30, FreeFlow: 30}); got != 0 {
		t.Errorf("DelayMinutes(30, 30) = %v, want 0", got)
	}
	// Faster than free flow never yields a negative delay
	if got := DelayMinutes(Speeds{Current: 45, FreeFlow: 30}); got != 0 {
		t.Errorf("DelayMinutes(45, 30) = %v, want 0", got)
	}
}
