package schedule

import (
	"testing"
	"time"
)

func TestExponential_Sequence(t *testing.T) {
	s := Exponential(time.Second, 2.0)

	want := []time.Duration{
		time.Second,
		2 * time.Second,
		4 * time.Second,
		8 * time.Second,
	}
	for i, w := range want {
		if got := s.Next(); got != w {
			t.Errorf("Next() #%d = %v, want %v", i, got, w)
		}
	}
}

func TestExponential_Reset(t *testing.T) {
	s := Exponential(time.Second, 2.0)

	s.Next()
	s.Next()
	s.Reset()

	if got := s.Next(); got != time.Second {
		t.Errorf("Next() after Reset = %v, want 1s", got)
	}
}

func TestExponential_Defaults(t *testing.T) {
	s := Exponential(0, 0)

	if got := s.Next(); got != time.Second {
		t.Errorf("Next() = %v, want default base 1s", got)
	}
	if got := s.Next(); got != 2*time.Second {
		t.Errorf("Next() = %v, want 2s with default factor", got)
	}
}

func TestExponentialCapped(t *testing.T) {
	s := ExponentialCapped(time.Second, 2.0, 3*time.Second)

	want := []time.Duration{
		time.Second,
		2 * time.Second,
		3 * time.Second,
		3 * time.Second,
	}
	for i, w := range want {
		if got := s.Next(); got != w {
			t.Errorf("Next() #%d = %v, want %v", i, got, w)
		}
	}
}

func TestExponential_NoOverflow(t *testing.T) {
	s := Exponential(time.Hour, 10.0)

	var last time.Duration
	for i := 0; i < 100; i++ {
		d := s.Next()
		if d <= 0 {
			t.Fatalf("Next() #%d = %v, want positive", i, d)
		}
		if d < last {
			t.Fatalf("Next() #%d = %v, decreased from %v", i, d, last)
		}
		last = d
	}
}

func TestConstant(t *testing.T) {
	s := Constant(5 * time.Second)

	for i := 0; i < 3; i++ {
		if got := s.Next(); got != 5*time.Second {
			t.Errorf("Next() #%d = %v, want 5s", i, got)
		}
	}
	s.Reset()
	if got := s.Next(); got != 5*time.Second {
		t.Errorf("Next() after Reset = %v, want 5s", got)
	}
}

func TestSequence(t *testing.T) {
	s := Sequence(time.Second, 2*time.Second, 5*time.Second)

	want := []time.Duration{
		time.Second,
		2 * time.Second,
		5 * time.Second,
		5 * time.Second, // last value repeats
	}
	for i, w := range want {
		if got := s.Next(); got != w {
			t.Errorf("Next() #%d = %v, want %v", i, got, w)
		}
	}

	s.Reset()
	if got := s.Next(); got != time.Second {
		t.Errorf("Next() after Reset = %v, want 1s", got)
	}
}

func TestSequence_Empty(t *testing.T) {
	s := Sequence()

	if got := s.Next(); got != time.Second {
		t.Errorf("Next() = %v, want 1s", got)
	}
}
