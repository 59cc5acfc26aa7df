// Package althold turns the fused vertical estimate into a throttle
// correction that holds or changes altitude.
//
// The controller runs one of two active modes on top of a shared velocity
// PID: Hold derives a velocity setpoint from the altitude error, Velocity
// takes the setpoint directly from pilot input. Disabled is both the
// initial and the disarm state; while Disabled the controller computes
// nothing and emits a zero delta. The returned delta is additive; mixing it
// into the final throttle command is the vehicle mixer's job.
package althold

import "math"

// Mode is the controller mode.
type Mode int

const (
	ModeDisabled Mode = iota
	ModeHold
	ModeVelocity
)

func (m Mode) String() string {
	switch m {
	case ModeHold:
		return "hold"
	case ModeVelocity:
		return "velocity"
	default:
		return "disabled"
	}
}

// Config holds the controller gains and limits. Zero values are replaced by
// the defaults below; all of them normally come from the YAML config.
type Config struct {
	AltP float64 // cm error -> cm/s setpoint
	VelP float64
	VelI float64
	VelD float64

	// MaxVerticalRate clamps the Hold-mode velocity setpoint, cm/s.
	MaxVerticalRate float64

	// IntegratorLimit bounds the accumulated I term (anti-windup), in
	// throttle units.
	IntegratorLimit float64
}

func (c Config) withDefaults() Config {
	if c.AltP == 0 {
		c.AltP = 0.64
	}
	if c.VelP == 0 {
		c.VelP = 1.2
	}
	if c.VelI == 0 {
		c.VelI = 0.45
	}
	if c.VelD == 0 {
		c.VelD = 0.06
	}
	if c.MaxVerticalRate == 0 {
		c.MaxVerticalRate = 250
	}
	if c.IntegratorLimit == 0 {
		c.IntegratorLimit = 150
	}
	return c
}

// Controller owns the altitude-hold mode machine and PID state. Not safe
// for concurrent use; the control scheduler is the single caller.
type Controller struct {
	cfg Config

	mode        Mode
	targetAltCm float64

	integratorVel float64 // accumulated I term, clamped
	prevAccelZ    float64 // for the acceleration damping term

	telem Telemetry
}

// New returns a Disabled controller using cfg (zero fields defaulted).
func New(cfg Config) *Controller {
	c := &Controller{cfg: cfg.withDefaults()}
	c.telem = Telemetry{Mode: c.mode.String()}
	return c
}

// Mode returns the current mode.
func (c *Controller) Mode() Mode { return c.mode }

// SetMode transitions the mode machine. Entering either active mode zeroes
// the PID state so no stale integral error carries across the switch.
// Setting the current mode again is a no-op.
func (c *Controller) SetMode(m Mode) {
	if m == c.mode {
		return
	}
	c.mode = m
	if m == ModeHold || m == ModeVelocity {
		c.integratorVel = 0
		c.prevAccelZ = 0
	}
}

// SetTargetAltitude sets the Hold-mode altitude target in cm.
func (c *Controller) SetTargetAltitude(cm int32) {
	c.targetAltCm = float64(cm)
}

// TargetAltitude returns the Hold-mode altitude target in cm.
func (c *Controller) TargetAltitude() int32 {
	return int32(math.Round(c.targetAltCm))
}

// Reset zeroes the PID state and returns the controller to Disabled, e.g.
// on disarm. Idempotent.
func (c *Controller) Reset() {
	c.mode = ModeDisabled
	c.integratorVel = 0
	c.prevAccelZ = 0
	c.telem = Telemetry{Mode: c.mode.String()}
}

// ComputeThrottleAdjustment evaluates one PID cycle and returns the
// throttle delta.
//
// estAltCm and velocityZCmS are the estimator's published signals (callers
// must not trust velocityZ before its warm-up completes). accelZCmSS is the
// current gravity-compensated vertical acceleration, used for damping.
// pilotVelocityCmS is the Velocity-mode setpoint, already mapped from stick
// position to cm/s; ignored in Hold. dt is the elapsed cycle time in
// seconds.
func (c *Controller) ComputeThrottleAdjustment(estAltCm, velocityZCmS, accelZCmSS, pilotVelocityCmS, dt float64) int32 {
	if c.mode == ModeDisabled || dt <= 0 {
		c.telem = Telemetry{Mode: c.mode.String()}
		return 0
	}

	var setVelocity float64
	switch c.mode {
	case ModeHold:
		setVelocity = c.cfg.AltP * (c.targetAltCm - estAltCm)
		if setVelocity > c.cfg.MaxVerticalRate {
			setVelocity = c.cfg.MaxVerticalRate
		} else if setVelocity < -c.cfg.MaxVerticalRate {
			setVelocity = -c.cfg.MaxVerticalRate
		}
	case ModeVelocity:
		setVelocity = pilotVelocityCmS
	}

	velError := setVelocity - velocityZCmS
	p := c.cfg.VelP * velError

	c.integratorVel += c.cfg.VelI * velError * dt
	if c.integratorVel > c.cfg.IntegratorLimit {
		c.integratorVel = c.cfg.IntegratorLimit
	} else if c.integratorVel < -c.cfg.IntegratorLimit {
		c.integratorVel = -c.cfg.IntegratorLimit
	}

	// Acceleration-based damping instead of an error derivative: the sum
	// with the previous sample smooths accelerometer noise without
	// amplifying velocity-error jitter.
	d := c.cfg.VelD * (accelZCmSS + c.prevAccelZ)
	c.prevAccelZ = accelZCmSS

	delta := p + c.integratorVel - d
	c.telem = Telemetry{
		Mode:          c.mode.String(),
		TargetAltCm:   c.targetAltCm,
		SetVelocity:   setVelocity,
		VelError:      velError,
		PTerm:         p,
		ITerm:         c.integratorVel,
		DTerm:         d,
		ThrottleDelta: delta,
	}
	return int32(math.Round(delta))
}

// Telemetry returns a read-only snapshot of the last cycle's PID terms.
// Output only; nothing in the control path reads it back.
func (c *Controller) Telemetry() Telemetry { return c.telem }

// Telemetry is the controller's observability snapshot.
type Telemetry struct {
	Mode          string  `json:"mode"`
	TargetAltCm   float64 `json:"target_alt_cm"`
	SetVelocity   float64 `json:"set_velocity_cm_s"`
	VelError      float64 `json:"vel_error_cm_s"`
	PTerm         float64 `json:"p_term"`
	ITerm         float64 `json:"i_term"`
	DTerm         float64 `json:"d_term"`
	ThrottleDelta float64 `json:"throttle_delta"`
}
