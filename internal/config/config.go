// Package config loads the YAML tuning file for the vertical-nav stack.
// Everything the core treats as a constant lives here: filter tuning, PID
// gains, sensor envelopes, and the run-mode settings of the binary.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	// Mode selects what the binary does: "sim" (default) runs the
	// synthetic flight, "feed" runs the estimator on live MSP data.
	Mode string `yaml:"mode"`

	Estimator EstimatorConfig `yaml:"estimator"`
	Selector  SelectorConfig  `yaml:"selector"`
	Range     RangeConfig     `yaml:"range_sensor"`
	AltHold   AltHoldConfig   `yaml:"althold"`
	Sim       SimConfig       `yaml:"sim"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Feed      FeedConfig      `yaml:"feed"`
}

type EstimatorConfig struct {
	AltQ         float64       `yaml:"alt_q"`
	AltR         float64       `yaml:"alt_r"`
	VelQ         float64       `yaml:"vel_q"`
	VelR         float64       `yaml:"vel_r"`
	HistoryDepth int           `yaml:"history_depth"`
	BaroLatency  time.Duration `yaml:"baro_latency"`
	MaxCycle     time.Duration `yaml:"max_cycle"`
	StaleCycle   time.Duration `yaml:"stale_cycle"`
	WarmupCycles int           `yaml:"warmup_cycles"`
}

type SelectorConfig struct {
	TiltMaxDeg          float64 `yaml:"tilt_max_deg"`
	RangeTimeConst      float64 `yaml:"range_time_const"`
	BaroTimeConst       float64 `yaml:"baro_time_const"`
	BaroTiltedTimeConst float64 `yaml:"baro_tilted_time_const"`
}

type RangeConfig struct {
	// Kind is "tof", "sonar" or "none".
	Kind  string  `yaml:"kind"`
	MinCm float64 `yaml:"min_cm"`
	MaxCm float64 `yaml:"max_cm"`
}

type AltHoldConfig struct {
	AltP            float64 `yaml:"alt_p"`
	VelP            float64 `yaml:"vel_p"`
	VelI            float64 `yaml:"vel_i"`
	VelD            float64 `yaml:"vel_d"`
	MaxVerticalRate float64 `yaml:"max_vertical_rate"`
	IntegratorLimit float64 `yaml:"integrator_limit"`
	ThrottleMin     int32   `yaml:"throttle_min"`
	ThrottleMax     int32   `yaml:"throttle_max"`
}

type SimConfig struct {
	Duration     time.Duration `yaml:"duration"`
	Cycle        time.Duration `yaml:"cycle"`
	TargetAltCm  int32         `yaml:"target_alt_cm"`
	BaseAltCm    float64       `yaml:"base_alt_cm"`
	AmplitudeCm  float64       `yaml:"amplitude_cm"`
	Period       time.Duration `yaml:"period"`
	TiltAmpDeg   float64       `yaml:"tilt_amp_deg"`
	BaroPeriod   time.Duration `yaml:"baro_period"`
	BaroNoiseCm  float64       `yaml:"baro_noise_cm"`
	RangePeriod  time.Duration `yaml:"range_period"`
	RangeNoiseCm float64       `yaml:"range_noise_cm"`
	AccelNoise   float64       `yaml:"accel_noise"`
	Seed         int64         `yaml:"seed"`
}

type TelemetryConfig struct {
	Enable   bool          `yaml:"enable"`
	Dest     string        `yaml:"dest"`
	Interval time.Duration `yaml:"interval"`
}

type FeedConfig struct {
	Device string        `yaml:"device"`
	Baud   int           `yaml:"baud"`
	Poll   time.Duration `yaml:"poll"`
}

// Load reads path, applies defaults for absent values and validates the
// rest.
func Load(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return Config{}, err
	}
	return finish(cfg)
}

// Default returns the configuration used when no file is given.
func Default() Config {
	cfg, err := finish(Config{})
	if err != nil {
		panic(err) // defaults must always validate
	}
	return cfg
}

func finish(cfg Config) (Config, error) {
	if cfg.Mode == "" {
		cfg.Mode = "sim"
	}
	if cfg.Mode != "sim" && cfg.Mode != "feed" {
		return Config{}, fmt.Errorf("mode must be sim or feed")
	}

	// Estimator and selector zero values default inside their packages;
	// only cross-field sanity is checked here.
	if cfg.Estimator.HistoryDepth < 0 {
		return Config{}, fmt.Errorf("estimator.history_depth must be >= 0")
	}
	if cfg.Estimator.BaroLatency < 0 {
		return Config{}, fmt.Errorf("estimator.baro_latency must be >= 0")
	}

	switch cfg.Range.Kind {
	case "":
		cfg.Range.Kind = "tof"
	case "tof", "sonar", "none":
	default:
		return Config{}, fmt.Errorf("range_sensor.kind must be tof, sonar or none")
	}
	if cfg.Range.MinCm == 0 {
		cfg.Range.MinCm = 20
	}
	if cfg.Range.MaxCm == 0 {
		cfg.Range.MaxCm = 350
	}
	if cfg.Range.MinCm >= cfg.Range.MaxCm {
		return Config{}, fmt.Errorf("range_sensor.min_cm must be below max_cm")
	}

	if cfg.AltHold.ThrottleMin == 0 {
		cfg.AltHold.ThrottleMin = 1150
	}
	if cfg.AltHold.ThrottleMax == 0 {
		cfg.AltHold.ThrottleMax = 1850
	}
	if cfg.AltHold.ThrottleMin >= cfg.AltHold.ThrottleMax {
		return Config{}, fmt.Errorf("althold.throttle_min must be below throttle_max")
	}

	if cfg.Sim.Duration <= 0 {
		cfg.Sim.Duration = 60 * time.Second
	}
	if cfg.Sim.Cycle <= 0 {
		cfg.Sim.Cycle = 20 * time.Millisecond
	}
	if cfg.Sim.TargetAltCm == 0 {
		cfg.Sim.TargetAltCm = 150
	}
	if cfg.Sim.BaseAltCm == 0 {
		cfg.Sim.BaseAltCm = 50
	}
	if cfg.Sim.Period <= 0 {
		cfg.Sim.Period = 20 * time.Second
	}
	if cfg.Sim.BaroPeriod <= 0 {
		cfg.Sim.BaroPeriod = 40 * time.Millisecond
	}
	if cfg.Sim.BaroNoiseCm == 0 {
		cfg.Sim.BaroNoiseCm = 3
	}
	if cfg.Sim.RangePeriod <= 0 {
		cfg.Sim.RangePeriod = 20 * time.Millisecond
	}
	if cfg.Sim.RangeNoiseCm == 0 {
		cfg.Sim.RangeNoiseCm = 1
	}
	if cfg.Sim.AccelNoise == 0 {
		cfg.Sim.AccelNoise = 4
	}
	if cfg.Sim.Seed == 0 {
		cfg.Sim.Seed = 1
	}

	if cfg.Telemetry.Enable && cfg.Telemetry.Dest == "" {
		return Config{}, fmt.Errorf("telemetry.dest is required when telemetry.enable is true")
	}
	if cfg.Telemetry.Interval <= 0 {
		cfg.Telemetry.Interval = 200 * time.Millisecond
	}

	if cfg.Mode == "feed" && cfg.Feed.Device == "" {
		return Config{}, fmt.Errorf("feed.device is required when mode is feed")
	}
	if cfg.Feed.Baud <= 0 {
		cfg.Feed.Baud = 115200
	}
	if cfg.Feed.Poll <= 0 {
		cfg.Feed.Poll = 20 * time.Millisecond
	}

	return cfg, nil
}
