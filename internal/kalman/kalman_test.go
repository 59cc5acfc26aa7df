package kalman

import (
	"math"
	"testing"
)

func TestUpdate_ConvergesToConstantMeasurement(t *testing.T) {
	f := New(0.03, 2.0, 0)
	var got float64
	for i := 0; i < 200; i++ {
		got = f.Update(120)
	}
	if math.Abs(got-120) > 0.5 {
		t.Fatalf("estimate=%v want ~120", got)
	}
}

func TestUpdate_NoOvershootOnStep(t *testing.T) {
	f := New(0.03, 2.0, 0)
	for i := 0; i < 100; i++ {
		if got := f.Update(50); got > 50 {
			t.Fatalf("cycle %d: estimate=%v overshot the measurement", i, got)
		}
	}
}

func TestUpdate_SmoothsNoise(t *testing.T) {
	// Alternating +/-10 around 100: the filter output must stay much closer
	// to the mean than the raw samples do.
	f := New(0.03, 2.0, 100)
	var worst float64
	for i := 0; i < 100; i++ {
		m := 110.0
		if i%2 == 1 {
			m = 90.0
		}
		got := f.Update(m)
		if d := math.Abs(got - 100); i > 10 && d > worst {
			worst = d
		}
	}
	if worst > 5 {
		t.Fatalf("worst deviation=%v want < 5 (raw deviation is 10)", worst)
	}
}

func TestReset_ReseedsEstimate(t *testing.T) {
	f := New(0.03, 2.0, 0)
	for i := 0; i < 50; i++ {
		f.Update(200)
	}
	f.Reset(35)
	if got := f.Estimate(); got != 35 {
		t.Fatalf("estimate=%v want 35", got)
	}

	// Reset twice must leave the same state as resetting once: the next
	// update from identical inputs must match.
	g := New(0.03, 2.0, 0)
	g.Reset(35)
	g.Reset(35)
	if a, b := f.Update(40), g.Update(40); a != b {
		t.Fatalf("post-reset update diverged: %v vs %v", a, b)
	}
}
