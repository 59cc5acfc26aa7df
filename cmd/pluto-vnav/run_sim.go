package main

import (
	"context"
	"math"
	"math/rand"
	"time"

	"gonum.org/v1/gonum/stat"

	"pluto-vnav/internal/althold"
	"pluto-vnav/internal/config"
	"pluto-vnav/internal/history"
	"pluto-vnav/internal/sim"
	"pluto-vnav/internal/udp"
	"pluto-vnav/internal/vertical"
)

// simResult summarizes a closed-loop run. Errors are measured after a 5s
// settling window.
type simResult struct {
	Cycles        int
	FinalAltCm    float64
	FinalTargetCm float64

	MeanErrCm   float64 // mean |true alt - target|
	StdDevErrCm float64
	MaxErrCm    float64

	EstMeanErrCm float64 // mean |estimated alt - true alt|
	EstMaxErrCm  float64
}

// runSim flies the closed loop against the point-mass plant: the vehicle
// starts at sim.base_alt_cm, holds sim.target_alt_cm, and (when
// sim.amplitude_cm is set) gets a target step halfway through. Runs as fast
// as the host allows; only telemetry pacing uses wall time.
func runSim(ctx context.Context, cfg config.Config, tel *udp.Broadcaster) (simResult, error) {
	p := buildPipeline(cfg)
	target := cfg.Sim.TargetAltCm
	p.ctrl.SetTargetAltitude(target)
	p.ctrl.SetMode(althold.ModeHold)

	rng := rand.New(rand.NewSource(cfg.Sim.Seed))
	plant := &sim.Plant{ThrustPerUnit: 2, Drag: 0.8, AltCm: cfg.Sim.BaseAltCm}

	// Delay line modeling the barometer's conversion latency: the reading
	// delivered now was physically taken BaroLatency ago.
	baroPipe := history.NewQueue(256)
	baroLatency := uint32(cfg.Estimator.BaroLatency / time.Microsecond)
	if baroLatency == 0 {
		baroLatency = 250_000
	}

	cycle := cfg.Sim.Cycle
	dt := cycle.Seconds()
	steps := int(cfg.Sim.Duration / cycle)
	stepAt := steps / 2
	settleAfter := int(5 * time.Second / cycle)
	rangeEvery := int(cfg.Sim.RangePeriod / cycle)
	if rangeEvery < 1 {
		rangeEvery = 1
	}

	// Pilot holds mid-stick; the mixer folds the hold delta into that
	// command and enforces the throttle endpoints.
	hover := (cfg.AltHold.ThrottleMin + cfg.AltHold.ThrottleMax) / 2

	var trueErr, estErr []float64
	accel := 0.0
	var nextBaro time.Duration

	for i := 0; i < steps; i++ {
		select {
		case <-ctx.Done():
			return simResult{}, ctx.Err()
		default:
		}

		t := time.Duration(i) * cycle
		now := sim.Micros(t)

		if i == stepAt && cfg.Sim.AmplitudeCm != 0 {
			target += int32(cfg.Sim.AmplitudeCm)
			p.ctrl.SetTargetAltitude(target)
		}

		// Sensor views of the plant.
		baroPipe.Push(now, plant.AltCm)
		var baro vertical.BaroSample
		if t >= nextBaro {
			nextBaro = t + cfg.Sim.BaroPeriod
			if delayed, ok := baroPipe.ValueAt(now - baroLatency); ok {
				baro = vertical.BaroSample{
					HeightCm: delayed + rng.NormFloat64()*cfg.Sim.BaroNoiseCm,
					AtMicros: now,
					Fresh:    true,
				}
			}
		}
		if p.setRange != nil && i%rangeEvery == 0 {
			p.setRange(plant.AltCm+rng.NormFloat64()*cfg.Sim.RangeNoiseCm, now)
		}
		accelMeas := accel + rng.NormFloat64()*cfg.Sim.AccelNoise

		corr := p.sel.Select(now, baro, 0)
		estAlt, estVel := p.est.Update(now, accelMeas, corr)

		// Velocity is unreliable during warm-up; hold off the loop.
		var delta int32
		if p.est.VelocityValid() {
			delta = p.ctrl.ComputeThrottleAdjustment(estAlt, estVel, accelMeas, 0, dt)
		}
		cmd := p.mixer.ApplyHold(hover, delta)
		accel = plant.Step(float64(cmd-hover), dt)

		if i >= settleAfter {
			trueErr = append(trueErr, math.Abs(plant.AltCm-float64(target)))
			estErr = append(estErr, math.Abs(estAlt-plant.AltCm))
		}

		if tel != nil {
			_, _ = tel.SendJSON(time.Now(), p.telemetry())
		}
	}

	res := simResult{
		Cycles:        steps,
		FinalAltCm:    plant.AltCm,
		FinalTargetCm: float64(target),
	}
	if len(trueErr) > 0 {
		res.MeanErrCm = stat.Mean(trueErr, nil)
		res.StdDevErrCm = stat.StdDev(trueErr, nil)
		res.MaxErrCm = maxOf(trueErr)
	}
	if len(estErr) > 0 {
		res.EstMeanErrCm = stat.Mean(estErr, nil)
		res.EstMaxErrCm = maxOf(estErr)
	}
	return res, nil
}

func maxOf(xs []float64) float64 {
	m := xs[0]
	for _, x := range xs[1:] {
		if x > m {
			m = x
		}
	}
	return m
}
