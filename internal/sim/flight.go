// Package sim generates deterministic synthetic vertical-flight data: a
// true trajectory plus sensor models with configurable noise, cadence and
// latency. It exists so the estimator and controller can be exercised
// closed-loop without hardware, both by the binary and by tests.
package sim

import (
	"math"
	"math/rand"
	"time"

	"pluto-vnav/internal/vertical"
)

// Profile is the true vertical trajectory: hover at BaseAltCm plus a
// sinusoidal excursion. A zero AmplitudeCm is a pure hover.
type Profile struct {
	BaseAltCm   float64
	AmplitudeCm float64
	Period      time.Duration

	// TiltAmpDeg adds a slow attitude wobble so the tilt-gating paths get
	// exercised; zero keeps the vehicle level.
	TiltAmpDeg float64
}

// State returns the true altitude (cm), vertical velocity (cm/s) and
// vertical acceleration (cm/s²) at elapsed time t.
func (p Profile) State(t time.Duration) (altCm, velCmS, accelCmSS float64) {
	if p.AmplitudeCm == 0 || p.Period <= 0 {
		return p.BaseAltCm, 0, 0
	}
	w := 2 * math.Pi / p.Period.Seconds()
	ph := w * t.Seconds()
	altCm = p.BaseAltCm + p.AmplitudeCm*math.Sin(ph)
	velCmS = p.AmplitudeCm * w * math.Cos(ph)
	accelCmSS = -p.AmplitudeCm * w * w * math.Sin(ph)
	return altCm, velCmS, accelCmSS
}

// Tilt returns the vehicle tilt from vertical in degrees at elapsed time t.
func (p Profile) Tilt(t time.Duration) float64 {
	if p.TiltAmpDeg == 0 || p.Period <= 0 {
		return 0
	}
	w := 2 * math.Pi / (3 * p.Period.Seconds())
	return p.TiltAmpDeg * math.Abs(math.Sin(w*t.Seconds()))
}

// Sensors models the sensor suite. Cadences below the control cycle are
// clamped to one fresh sample per cycle; latency shifts the reported value
// back in time the way a real barometer's conversion pipeline does.
type Sensors struct {
	BaroPeriod   time.Duration
	BaroLatency  time.Duration
	BaroNoiseCm  float64
	RangePeriod  time.Duration
	RangeNoiseCm float64
	AccelNoise   float64 // cm/s²
}

// Flight drives a Profile through a Sensors model with a deterministic
// noise stream.
type Flight struct {
	Profile Profile
	Sensors Sensors

	rng         *rand.Rand
	nextBaroAt  time.Duration
	nextRangeAt time.Duration
}

// NewFlight returns a flight with a fixed-seed noise stream, so runs are
// reproducible.
func NewFlight(profile Profile, sensors Sensors, seed int64) *Flight {
	return &Flight{Profile: profile, Sensors: sensors, rng: rand.New(rand.NewSource(seed))}
}

// Step is everything one control cycle sees, plus the ground truth it is
// later scored against.
type Step struct {
	TrueAltCm  float64
	TrueVelCmS float64

	AccelCmSS float64 // gravity-compensated vertical acceleration
	TiltDeg   float64
	Baro      vertical.BaroSample
	Range     vertical.RangeSample
}

// At samples the flight at elapsed time t. Timestamps in the returned
// sensor samples are t converted to the uint32 microsecond clock.
func (f *Flight) At(t time.Duration) Step {
	alt, vel, accel := f.Profile.State(t)
	nowMicros := Micros(t)

	st := Step{
		TrueAltCm:  alt,
		TrueVelCmS: vel,
		AccelCmSS:  accel + f.rng.NormFloat64()*f.Sensors.AccelNoise,
		TiltDeg:    f.Profile.Tilt(t),
	}

	if t >= f.nextBaroAt {
		f.nextBaroAt = t + f.Sensors.BaroPeriod
		// The reading delivered now was physically taken BaroLatency ago.
		takenAt := t - f.Sensors.BaroLatency
		if takenAt < 0 {
			takenAt = 0
		}
		delayedAlt, _, _ := f.Profile.State(takenAt)
		st.Baro = vertical.BaroSample{
			HeightCm: delayedAlt + f.rng.NormFloat64()*f.Sensors.BaroNoiseCm,
			AtMicros: nowMicros,
			Fresh:    true,
		}
	}

	if t >= f.nextRangeAt {
		f.nextRangeAt = t + f.Sensors.RangePeriod
		st.Range = vertical.RangeSample{
			HeightCm: alt + f.rng.NormFloat64()*f.Sensors.RangeNoiseCm,
			AtMicros: nowMicros,
			Fresh:    true,
		}
	}

	return st
}

// Micros converts elapsed time to the uint32 microsecond clock used by the
// estimator, wrapping the way the hardware counter does.
func Micros(t time.Duration) uint32 {
	return uint32(t / time.Microsecond)
}
