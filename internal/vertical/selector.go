package vertical

import "time"

// Source identifies which sensor produced the active correction.
type Source int

const (
	SourceNone Source = iota
	SourceRange
	SourceBaro
)

func (s Source) String() string {
	switch s {
	case SourceRange:
		return "range"
	case SourceBaro:
		return "baro"
	default:
		return "none"
	}
}

// SelectorConfig holds the correction decision tuning. Zero values are
// replaced by the defaults below.
type SelectorConfig struct {
	// TiltMaxDeg is the attitude envelope for trusting height sensors.
	// Above it the range sensor is rejected outright and the barometer is
	// damped harder (pressure readings degrade with attitude).
	TiltMaxDeg float64

	// Complementary-filter time constants, seconds.
	RangeTimeConst      float64 // range branch: low latency, high confidence
	BaroTimeConst       float64 // baro branch, level flight
	BaroTiltedTimeConst float64 // baro branch, tilted
}

func (c SelectorConfig) withDefaults() SelectorConfig {
	if c.TiltMaxDeg == 0 {
		c.TiltMaxDeg = 25
	}
	if c.RangeTimeConst == 0 {
		c.RangeTimeConst = 1.5
	}
	if c.BaroTimeConst == 0 {
		c.BaroTimeConst = 2
	}
	if c.BaroTiltedTimeConst == 0 {
		c.BaroTiltedTimeConst = 5
	}
	return c
}

// Selector decides, once per cycle, whether the range sensor or the
// barometer drives the position correction, and with which time constant.
// Range wins whenever it is fresh, inside its envelope and the vehicle is
// level enough; otherwise the barometer reading is aligned against the base
// position the estimator had when the reading was taken.
type Selector struct {
	cfg SelectorConfig
	rs  RangeSensor
	est *Estimator
}

// NewSelector wires a selector to its estimator. rs may be nil (equivalent
// to NoRange).
func NewSelector(cfg SelectorConfig, rs RangeSensor, est *Estimator) *Selector {
	if rs == nil {
		rs = NoRange{}
	}
	return &Selector{cfg: cfg.withDefaults(), rs: rs, est: est}
}

// Select computes the correction for this cycle. Call it before
// Estimator.Update; the range branch measures error against the altitude
// published by the previous cycle. tiltDeg is the vehicle tilt from
// vertical in degrees.
func (s *Selector) Select(nowMicros uint32, baro BaroSample, tiltDeg float64) Correction {
	r := s.rs.Sample()
	minCm, maxCm := s.rs.Limits()
	if r.Fresh && r.HeightCm >= minCm && r.HeightCm <= maxCm && tiltDeg < s.cfg.TiltMaxDeg {
		return Correction{
			PositionErrorZ: r.HeightCm - float64(s.est.EstimatedAltitude()),
			TimeConstantZ:  s.cfg.RangeTimeConst,
			Source:         SourceRange,
			Valid:          true,
		}
	}

	if baro.Fresh {
		latency := uint32(s.est.cfg.BaroLatency / time.Microsecond)
		if delayedBase, ok := s.est.baseAt(nowMicros - latency); ok {
			tc := s.cfg.BaroTimeConst
			if tiltDeg >= s.cfg.TiltMaxDeg {
				tc = s.cfg.BaroTiltedTimeConst
			}
			return Correction{
				PositionErrorZ: baro.HeightCm - delayedBase,
				TimeConstantZ:  tc,
				Source:         SourceBaro,
				Valid:          true,
			}
		}
	}

	// Neither sensor has fresh data: pure inertial integration carries the
	// estimate. Bounded for short dropouts, drifts on long outages; the
	// correction age in telemetry is the supervisor's signal to react.
	return Correction{}
}
