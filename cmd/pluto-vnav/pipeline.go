package main

import (
	"pluto-vnav/internal/althold"
	"pluto-vnav/internal/config"
	"pluto-vnav/internal/vertical"
)

// pipeline is one fully wired instance of the vertical-nav stack: selector,
// estimator, hold controller and the vehicle mixer.
type pipeline struct {
	est   *vertical.Estimator
	sel   *vertical.Selector
	ctrl  *althold.Controller
	mixer althold.Mixer

	// setRange stores a reading into the configured range-sensor holder;
	// nil when the vehicle carries no range hardware.
	setRange func(heightCm float64, atMicros uint32)
}

func buildPipeline(cfg config.Config) *pipeline {
	est := vertical.NewEstimator(vertical.Config{
		AltQ:         cfg.Estimator.AltQ,
		AltR:         cfg.Estimator.AltR,
		VelQ:         cfg.Estimator.VelQ,
		VelR:         cfg.Estimator.VelR,
		HistoryDepth: cfg.Estimator.HistoryDepth,
		BaroLatency:  cfg.Estimator.BaroLatency,
		MaxCycle:     cfg.Estimator.MaxCycle,
		StaleCycle:   cfg.Estimator.StaleCycle,
		WarmupCycles: cfg.Estimator.WarmupCycles,
	})

	var rs vertical.RangeSensor
	var setRange func(float64, uint32)
	switch cfg.Range.Kind {
	case "tof":
		tof := vertical.NewToF(cfg.Range.MinCm, cfg.Range.MaxCm)
		rs, setRange = tof, tof.SetReading
	case "sonar":
		sonar := vertical.NewSonar(cfg.Range.MinCm, cfg.Range.MaxCm)
		rs, setRange = sonar, sonar.SetReading
	default:
		rs = vertical.NoRange{}
	}

	sel := vertical.NewSelector(vertical.SelectorConfig{
		TiltMaxDeg:          cfg.Selector.TiltMaxDeg,
		RangeTimeConst:      cfg.Selector.RangeTimeConst,
		BaroTimeConst:       cfg.Selector.BaroTimeConst,
		BaroTiltedTimeConst: cfg.Selector.BaroTiltedTimeConst,
	}, rs, est)

	ctrl := althold.New(althold.Config{
		AltP:            cfg.AltHold.AltP,
		VelP:            cfg.AltHold.VelP,
		VelI:            cfg.AltHold.VelI,
		VelD:            cfg.AltHold.VelD,
		MaxVerticalRate: cfg.AltHold.MaxVerticalRate,
		IntegratorLimit: cfg.AltHold.IntegratorLimit,
	})

	return &pipeline{
		est:      est,
		sel:      sel,
		ctrl:     ctrl,
		mixer:    althold.MultirotorMixer{Min: cfg.AltHold.ThrottleMin, Max: cfg.AltHold.ThrottleMax},
		setRange: setRange,
	}
}

// telemetryFrame is the JSON document streamed to the ground station.
type telemetryFrame struct {
	Vertical vertical.Telemetry `json:"vertical"`
	AltHold  althold.Telemetry  `json:"althold"`
}

func (p *pipeline) telemetry() telemetryFrame {
	return telemetryFrame{Vertical: p.est.Telemetry(), AltHold: p.ctrl.Telemetry()}
}
