package vertical

import (
	"math"
	"testing"
	"time"
)

const cycleMicros = 20_000 // 50 Hz control cycle

// runConstantScene drives the estimator with zero acceleration and a
// constant fresh barometer reading for n cycles.
func runConstantScene(e *Estimator, sel *Selector, heightCm float64, n int) (altCm, velCmS float64) {
	now := uint32(1_000_000)
	for i := 0; i < n; i++ {
		baro := BaroSample{HeightCm: heightCm, AtMicros: now, Fresh: true}
		corr := sel.Select(now, baro, 0)
		altCm, velCmS = e.Update(now, 0, corr)
		now += cycleMicros
	}
	return altCm, velCmS
}

func TestUpdate_ConvergesToConstantBaro(t *testing.T) {
	e := NewEstimator(Config{})
	sel := NewSelector(SelectorConfig{}, nil, e)

	alt, vel := runConstantScene(e, sel, 100, 1500)
	if math.Abs(alt-100) > 1.5 {
		t.Fatalf("estAlt=%v want ~100", alt)
	}
	if math.Abs(vel) > 1.0 {
		t.Fatalf("estVel=%v want ~0", vel)
	}
}

func TestUpdate_NoOvershootBeyondTolerance(t *testing.T) {
	e := NewEstimator(Config{})
	sel := NewSelector(SelectorConfig{}, nil, e)

	now := uint32(1_000_000)
	peak := 0.0
	for i := 0; i < 2000; i++ {
		baro := BaroSample{HeightCm: 100, AtMicros: now, Fresh: true}
		corr := sel.Select(now, baro, 0)
		alt, _ := e.Update(now, 0, corr)
		if alt > peak {
			peak = alt
		}
		now += cycleMicros
	}
	if peak > 102 {
		t.Fatalf("peak estAlt=%v overshot 100 beyond tolerance", peak)
	}
}

func TestUpdate_NonMonotonicClockSkipsCycle(t *testing.T) {
	e := NewEstimator(Config{})
	sel := NewSelector(SelectorConfig{}, nil, e)
	alt, vel := runConstantScene(e, sel, 100, 200)

	// Same timestamp again (dt == 0) and a clock running backwards by more
	// than the stale bound must both keep the published values unchanged.
	last := uint32(1_000_000 + 199*cycleMicros)
	for _, now := range []uint32{last, last - 3_000_000} {
		gotAlt, gotVel := e.Update(now, 500, Correction{PositionErrorZ: 999, TimeConstantZ: 1, Valid: true})
		if gotAlt != alt || gotVel != vel {
			t.Fatalf("now=%d: got=(%v,%v) want previous (%v,%v)", now, gotAlt, gotVel, alt, vel)
		}
	}
}

func TestUpdate_RecoversAfterSchedulerStall(t *testing.T) {
	e := NewEstimator(Config{})
	sel := NewSelector(SelectorConfig{}, nil, e)
	settled, _ := runConstantScene(e, sel, 100, 1000)

	// One 620ms stall exceeds the stale bound and is skipped; the cycles
	// after it run on the normal cadence again and must keep tracking the
	// barometer rather than staying frozen at the pre-stall value.
	now := uint32(1_000_000+1000*cycleMicros) + 600_000
	var alt float64
	for i := 0; i < 3000; i++ {
		baro := BaroSample{HeightCm: 200, AtMicros: now, Fresh: true}
		corr := sel.Select(now, baro, 0)
		alt, _ = e.Update(now, 0, corr)
		now += cycleMicros
	}
	if math.Abs(alt-200) > 5 {
		t.Fatalf("estAlt=%v stuck near pre-stall %v, want tracking toward 200", alt, settled)
	}
}

func TestUpdate_StalledCycleClampsIntegrationStep(t *testing.T) {
	e := NewEstimator(Config{MaxCycle: 50 * time.Millisecond})
	now := uint32(1_000_000)
	// Build up a steady climb rate.
	for i := 0; i < 100; i++ {
		e.Update(now, 50, Correction{})
		now += cycleMicros
	}
	before := e.Telemetry().PositionBaseCm
	velBefore := e.inertialVel

	// One stalled 400ms cycle: the position step must reflect at most the
	// 50ms clamp, not the full gap.
	now += 400_000
	e.Update(now, 0, Correction{})
	step := e.Telemetry().PositionBaseCm - before
	if maxStep := velBefore*0.05 + 1e-9; step > maxStep {
		t.Fatalf("position step=%v exceeds clamped bound %v", step, maxStep)
	}
}

func TestVelocityValid_WarmupGating(t *testing.T) {
	e := NewEstimator(Config{})
	e.Reset()
	now := uint32(1_000_000)
	for i := 1; i <= 6; i++ {
		e.Update(now, 0, Correction{})
		valid := e.VelocityValid()
		if i < 5 && valid {
			t.Fatalf("cycle %d: velocity marked valid during warm-up", i)
		}
		if i >= 5 && !valid {
			t.Fatalf("cycle %d: velocity still marked invalid after warm-up", i)
		}
		now += cycleMicros
	}
}

func TestReset_Idempotent(t *testing.T) {
	e := NewEstimator(Config{})
	sel := NewSelector(SelectorConfig{}, nil, e)
	runConstantScene(e, sel, 250, 300)

	e.Reset()
	once := *e
	e.Reset()
	twice := *e

	// Struct compare via the published surface plus internal integrators.
	if once.estAlt != twice.estAlt || once.positionBase != twice.positionBase ||
		once.inertialVel != twice.inertialVel || once.cycles != twice.cycles {
		t.Fatalf("double reset diverged from single reset")
	}
	if got := e.EstimatedAltitude(); got != 0 {
		t.Fatalf("estAlt=%d after reset, want 0", got)
	}
	if e.VelocityValid() {
		t.Fatalf("velocity marked valid immediately after reset")
	}
	if e.hist.Len() != 0 {
		t.Fatalf("history not cleared by reset")
	}
}

func TestUpdate_InertialCoastOnSensorDropout(t *testing.T) {
	e := NewEstimator(Config{})
	sel := NewSelector(SelectorConfig{}, nil, e)
	runConstantScene(e, sel, 100, 1000)
	settled := e.estAlt

	// Sensor dropout with zero acceleration: the estimate must hold, not
	// decay back toward zero.
	now := uint32(1_000_000 + 1000*cycleMicros)
	var alt float64
	for i := 0; i < 200; i++ {
		corr := sel.Select(now, BaroSample{}, 0) // nothing fresh
		if corr.Valid {
			t.Fatalf("selector produced a correction without fresh data")
		}
		alt, _ = e.Update(now, 0, corr)
		now += cycleMicros
	}
	if math.Abs(alt-settled) > 1 {
		t.Fatalf("estAlt drifted from %v to %v during zero-accel dropout", settled, alt)
	}
	if age := e.Telemetry().CorrectionAgeSec; age < 3.9 {
		t.Fatalf("correction age=%v want ~4s of dropout", age)
	}
}
