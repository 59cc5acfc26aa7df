package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"pluto-vnav/internal/config"
	"pluto-vnav/internal/udp"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "Path to YAML config (built-in defaults when empty)")
	flag.Parse()

	cfg := config.Default()
	if configPath != "" {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			log.Fatalf("config load failed: %v", err)
		}
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var tel *udp.Broadcaster
	if cfg.Telemetry.Enable {
		var err error
		tel, err = udp.NewBroadcaster(cfg.Telemetry.Dest, cfg.Telemetry.Interval)
		if err != nil {
			log.Fatalf("telemetry init failed: %v", err)
		}
		defer tel.Close()
		log.Printf("telemetry dest=%s interval=%s", cfg.Telemetry.Dest, cfg.Telemetry.Interval)
	}

	log.Printf("pluto-vnav starting mode=%s range=%s", cfg.Mode, cfg.Range.Kind)

	switch cfg.Mode {
	case "feed":
		if err := runFeed(ctx, cfg, tel); err != nil && !errors.Is(err, context.Canceled) {
			log.Fatalf("feed failed: %v", err)
		}
	default:
		res, err := runSim(ctx, cfg, tel)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			log.Fatalf("sim failed: %v", err)
		}
		log.Printf("sim done: cycles=%d final_alt=%.1fcm target=%.0fcm", res.Cycles, res.FinalAltCm, res.FinalTargetCm)
		log.Printf("hold error: mean=%.1fcm stddev=%.1fcm max=%.1fcm", res.MeanErrCm, res.StdDevErrCm, res.MaxErrCm)
		log.Printf("estimator error: mean=%.1fcm max=%.1fcm", res.EstMeanErrCm, res.EstMaxErrCm)
	}
}
