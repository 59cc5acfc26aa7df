package sim

import "testing"

func TestPlant_HoverIsEquilibrium(t *testing.T) {
	p := &Plant{ThrustPerUnit: 2, Drag: 0.5, AltCm: 150}
	for i := 0; i < 500; i++ {
		p.Step(0, 0.02)
	}
	if p.AltCm != 150 || p.VelCmS != 0 {
		t.Fatalf("state=(%v,%v) want (150,0) at zero delta", p.AltCm, p.VelCmS)
	}
}

func TestPlant_PositiveDeltaClimbs(t *testing.T) {
	p := &Plant{ThrustPerUnit: 2, Drag: 0.5, AltCm: 100}
	for i := 0; i < 250; i++ {
		p.Step(50, 0.02)
	}
	if p.AltCm <= 100 || p.VelCmS <= 0 {
		t.Fatalf("state=(%v,%v) want climb under positive delta", p.AltCm, p.VelCmS)
	}
	// Drag bounds the terminal rate at thrust/drag.
	if limit := 2.0 * 50 / 0.5; p.VelCmS > limit {
		t.Fatalf("vel=%v exceeds terminal rate %v", p.VelCmS, limit)
	}
}

func TestPlant_GroundIsInelastic(t *testing.T) {
	p := &Plant{ThrustPerUnit: 2, Drag: 0.1, AltCm: 20}
	for i := 0; i < 500; i++ {
		p.Step(-100, 0.02)
	}
	if p.AltCm != 0 || p.VelCmS != 0 {
		t.Fatalf("state=(%v,%v) want rest on the ground", p.AltCm, p.VelCmS)
	}
}
