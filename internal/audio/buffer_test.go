package audio

import (
	"math"
	"testing"
)

func TestBufferDuration(t *testing.T) {
	b := NewBuffer(make([]float64, WorkingRate*2), WorkingRate)
	if got := b.Duration(); math.Abs(got-2.0) > 1e-9 {
		t.Errorf("Duration() = %v, want 2.0", got)
	}

	empty := &Buffer{}
	if got := empty.Duration(); got != 0 {
		t.Errorf("Duration() of empty buffer = %v, want 0", got)
	}
}

func TestBufferPeakAndRMS(t *testing.T) {
	b := NewBuffer([]float64{0.5, -0.8, 0.1, 0.0}, WorkingRate)
	if got := b.Peak(); math.Abs(got-0.8) > 1e-9 {
		t.Errorf("Peak() = %v, want 0.8", got)
	}

	// Full-scale square wave has RMS 1.0
	sq := NewBuffer([]float64{1, -1, 1, -1}, WorkingRate)
	if got := sq.RMS(); math.Abs(got-1.0) > 1e-9 {
		t.Errorf("RMS() = %v, want 1.0", got)
	}
}

func TestMatchLength(t *testing.T) {
	b := NewBuffer([]float64{1, 2, 3, 4, 5}, WorkingRate)

	b.MatchLength(3)
	if len(b.Samples) != 3 {
		t.Fatalf("after trim len = %d, want 3", len(b.Samples))
	}
	if b.Samples[2] != 3 {
		t.Errorf("trim changed sample values: %v", b.Samples)
	}

	b.MatchLength(6)
	if len(b.Samples) != 6 {
		t.Fatalf("after pad len = %d, want 6", len(b.Samples))
	}
	for i := 3; i < 6; i++ {
		if b.Samples[i] != 0 {
			t.Errorf("pad sample %d = %v, want 0", i, b.Samples[i])
		}
	}
}

func TestDbConversion(t *testing.T) {
	cases := []struct {
		db     float64
		linear float64
	}{
		{0, 1.0},
		{-6.0206, 0.5},
		{-20, 0.1},
		{20, 10.0},
	}
	for _, tc := range cases {
		if got := DbToLinear(tc.db); math.Abs(got-tc.linear) > 1e-3 {
			t.Errorf("DbToLinear(%v) = %v, want %v", tc.db, got, tc.linear)
		}
		if got := LinearToDb(tc.linear); math.Abs(got-tc.db) > 1e-3 {
			t.Errorf("LinearToDb(%v) = %v, want %v", tc.linear, got, tc.db)
		}
	}

	if got := LinearToDb(0); got != -120.0 {
		t.Errorf("LinearToDb(0) = %v, want -120", got)
	}
}
