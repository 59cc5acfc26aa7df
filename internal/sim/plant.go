package sim

// Plant is a point-mass vertical dynamics model for closed-loop runs: the
// throttle delta above hover produces acceleration, opposed by linear drag.
// Good enough to exercise the hold loop; not an airframe model.
type Plant struct {
	// ThrustPerUnit converts one throttle unit of delta into cm/s².
	ThrustPerUnit float64
	// Drag is the linear velocity damping coefficient, 1/s.
	Drag float64

	AltCm  float64
	VelCmS float64
}

// Step advances the plant by dt seconds under throttleDelta and returns the
// resulting vertical acceleration in gravity-compensated cm/s² (hover is
// zero). The ground at 0cm is inelastic.
func (p *Plant) Step(throttleDelta float64, dt float64) (accelCmSS float64) {
	accel := p.ThrustPerUnit*throttleDelta - p.Drag*p.VelCmS
	p.VelCmS += accel * dt
	p.AltCm += p.VelCmS * dt
	if p.AltCm < 0 {
		p.AltCm = 0
		if p.VelCmS < 0 {
			p.VelCmS = 0
		}
	}
	return accel
}
