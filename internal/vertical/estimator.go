// Package vertical fuses inertial, barometric and optional short-range
// measurements into one estimate of vertical position and velocity.
//
// The estimator integrates gravity-compensated vertical acceleration into a
// base position and blends in a slow correction driven by whichever sensor
// the selector currently trusts (complementary filter). Two scalar Kalman
// filters smooth the fused position and its rate before they are published.
// Units are cm, cm/s and cm/s²; timestamps are uint32 microseconds with
// wraparound-safe deltas, matching the flight-controller clock.
package vertical

import (
	"math"
	"time"

	"pluto-vnav/internal/history"
	"pluto-vnav/internal/kalman"
)

// Config holds the estimator tuning constants. Zero values are replaced by
// the defaults below; all of them normally come from the YAML config.
type Config struct {
	// Kalman tuning per smoothed quantity.
	AltQ, AltR float64
	VelQ, VelR float64

	// HistoryDepth is the capacity of the base-position history ring used
	// for barometer delay compensation.
	HistoryDepth int

	// BaroLatency is how long ago a barometer reading was physically
	// taken when it arrives.
	BaroLatency time.Duration

	// MaxCycle clamps the integration step: a single stalled cycle must
	// not inject a large position jump.
	MaxCycle time.Duration

	// StaleCycle is the sanity bound on the raw clock delta. Deltas above
	// it (or of zero) indicate a non-monotonic or stopped clock and skip
	// the cycle entirely.
	StaleCycle time.Duration

	// WarmupCycles is how many cycles must complete after a reset before
	// the velocity output is considered reliable.
	WarmupCycles int
}

func (c Config) withDefaults() Config {
	if c.AltQ == 0 {
		c.AltQ = 0.03
	}
	if c.AltR == 0 {
		c.AltR = 2.0
	}
	if c.VelQ == 0 {
		c.VelQ = 0.06
	}
	if c.VelR == 0 {
		c.VelR = 4.0
	}
	if c.HistoryDepth == 0 {
		c.HistoryDepth = 48
	}
	if c.BaroLatency == 0 {
		c.BaroLatency = 250 * time.Millisecond
	}
	if c.MaxCycle == 0 {
		c.MaxCycle = 50 * time.Millisecond
	}
	if c.StaleCycle == 0 {
		c.StaleCycle = 500 * time.Millisecond
	}
	if c.WarmupCycles == 0 {
		c.WarmupCycles = 5
	}
	return c
}

// Correction is the per-cycle output of the Selector: the instantaneous
// position error measured against the trusted sensor and the
// complementary-filter time constant to blend it with. Valid is false when
// no sensor had fresh data, in which case pure inertial integration carries
// the estimate.
type Correction struct {
	PositionErrorZ float64 // cm
	TimeConstantZ  float64 // seconds
	Source         Source
	Valid          bool
}

// Estimator owns the vertical state. It is not safe for concurrent use: the
// control scheduler invokes Update once per cycle, and nothing else writes.
type Estimator struct {
	cfg Config

	altFilter *kalman.Filter
	velFilter *kalman.Filter
	hist      *history.Queue

	positionBase       float64 // cm, integrated from acceleration
	positionCorrection float64 // cm, low-passed sensor correction
	positionErrorZ     float64 // cm, last accepted error signal
	timeConstantZ      float64 // seconds, last accepted time constant
	source             Source

	inertialVel float64 // cm/s, integrated acceleration
	velocityZ   float64 // cm/s, rate of the fused position
	lastFused   float64

	estAlt float64 // published, smoothed
	estVel float64

	lastMicros    uint32
	haveLast      bool
	cycles        int
	sinceCorrUsec uint32 // microseconds since a correction was last accepted
}

// NewEstimator returns a reset estimator using cfg (zero fields defaulted).
func NewEstimator(cfg Config) *Estimator {
	cfg = cfg.withDefaults()
	return &Estimator{
		cfg:       cfg,
		altFilter: kalman.New(cfg.AltQ, cfg.AltR, 0),
		velFilter: kalman.New(cfg.VelQ, cfg.VelR, 0),
		hist:      history.NewQueue(cfg.HistoryDepth),
	}
}

// Update advances the estimator one control cycle. accelZCmSS is the
// gravity-compensated body-frame vertical acceleration in cm/s². The
// returned values are the published smoothed altitude (cm) and velocity
// (cm/s); on a skipped cycle the previous values are returned unchanged.
func (e *Estimator) Update(nowMicros uint32, accelZCmSS float64, corr Correction) (altCm, velCmS float64) {
	if !e.haveLast {
		// First cycle after reset only seeds the clock.
		e.lastMicros = nowMicros
		e.haveLast = true
		if e.cycles < e.cfg.WarmupCycles {
			e.cycles++
		}
		return e.estAlt, e.estVel
	}

	delta := nowMicros - e.lastMicros // wraparound-safe
	if delta == 0 || delta > uint32(e.cfg.StaleCycle.Microseconds()) {
		// Non-monotonic or stopped clock: keep the previous published
		// values, but re-seed the clock so the next well-behaved cycle
		// integrates with a normal dt instead of measuring the same
		// oversized delta again.
		e.lastMicros = nowMicros
		return e.estAlt, e.estVel
	}
	e.lastMicros = nowMicros
	if maxCycle := uint32(e.cfg.MaxCycle.Microseconds()); delta > maxCycle {
		delta = maxCycle
	}
	dt := float64(delta) * 1e-6

	// accel -> velocity -> position.
	e.inertialVel += accelZCmSS * dt
	e.positionBase += e.inertialVel * dt

	if corr.Valid && corr.TimeConstantZ > 0 {
		e.positionErrorZ = corr.PositionErrorZ
		e.timeConstantZ = corr.TimeConstantZ
		e.source = corr.Source
		e.positionCorrection += (e.positionErrorZ - e.positionCorrection) * dt / corr.TimeConstantZ
		e.sinceCorrUsec = 0
	} else {
		e.sinceCorrUsec += delta
	}

	e.hist.Push(nowMicros, e.positionBase)

	fused := e.positionBase + e.positionCorrection
	e.velocityZ = (fused - e.lastFused) / dt
	e.lastFused = fused

	e.estAlt = e.altFilter.Update(fused)
	e.estVel = e.velFilter.Update(e.velocityZ)
	if e.cycles < e.cfg.WarmupCycles {
		e.cycles++
	}
	return e.estAlt, e.estVel
}

// EstimatedAltitude returns the published altitude in cm.
func (e *Estimator) EstimatedAltitude() int32 {
	return int32(math.Round(e.estAlt))
}

// EstimatedVelocity returns the published vertical velocity in cm/s. Check
// VelocityValid before closing a control loop on it.
func (e *Estimator) EstimatedVelocity() int32 {
	return int32(math.Round(e.estVel))
}

// VelocityValid reports whether the warm-up period since the last reset has
// completed. The estimator publishes a velocity regardless; trusting it
// earlier is the caller's risk.
func (e *Estimator) VelocityValid() bool {
	return e.cycles >= e.cfg.WarmupCycles
}

// baseAt returns the integrated base position as it was at atMicros, for
// aligning delayed sensor readings.
func (e *Estimator) baseAt(atMicros uint32) (float64, bool) {
	return e.hist.ValueAt(atMicros)
}

// Reset zeroes the vertical state, clears the history and reseeds both
// smoothing filters. Safe at any cycle boundary and idempotent.
func (e *Estimator) Reset() {
	e.positionBase = 0
	e.positionCorrection = 0
	e.positionErrorZ = 0
	e.timeConstantZ = 0
	e.source = SourceNone
	e.inertialVel = 0
	e.velocityZ = 0
	e.lastFused = 0
	e.estAlt = 0
	e.estVel = 0
	e.lastMicros = 0
	e.haveLast = false
	e.cycles = 0
	e.sinceCorrUsec = 0
	e.hist.Reset()
	e.altFilter.Reset(0)
	e.velFilter.Reset(0)
}

// Telemetry returns a read-only snapshot of the last cycle's intermediate
// signals. Output only; nothing in the control path reads it back.
func (e *Estimator) Telemetry() Telemetry {
	return Telemetry{
		EstAltCm:         e.estAlt,
		EstVelCmS:        e.estVel,
		PositionBaseCm:   e.positionBase,
		PositionCorrCm:   e.positionCorrection,
		PositionErrorCm:  e.positionErrorZ,
		TimeConstantS:    e.timeConstantZ,
		Source:           e.source.String(),
		CorrectionAgeSec: float64(e.sinceCorrUsec) * 1e-6,
		VelocityValid:    e.VelocityValid(),
	}
}

// Telemetry is the estimator's observability snapshot.
type Telemetry struct {
	EstAltCm         float64 `json:"est_alt_cm"`
	EstVelCmS        float64 `json:"est_vel_cm_s"`
	PositionBaseCm   float64 `json:"position_base_cm"`
	PositionCorrCm   float64 `json:"position_correction_cm"`
	PositionErrorCm  float64 `json:"position_error_cm"`
	TimeConstantS    float64 `json:"time_constant_s"`
	Source           string  `json:"correction_source"`
	CorrectionAgeSec float64 `json:"correction_age_sec"`
	VelocityValid    bool    `json:"velocity_valid"`
}
