package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"math"
	"time"

	"go.bug.st/serial"

	"pluto-vnav/internal/config"
	"pluto-vnav/internal/msp"
	"pluto-vnav/internal/udp"
	"pluto-vnav/internal/vertical"
)

// accLSBPerG matches the MPU-family 16g full-scale setting MultiWii-style
// firmwares fly with.
const accLSBPerG = 512.0

const gravityCmSS = 980.665

// runFeed runs the estimator on live sensor data pulled from a flight
// controller's MSP telemetry port. This is a bench tool: the FC keeps
// flying on its own estimate, we just shadow it.
func runFeed(ctx context.Context, cfg config.Config, tel *udp.Broadcaster) error {
	port, err := serial.Open(cfg.Feed.Device, &serial.Mode{BaudRate: cfg.Feed.Baud})
	if err != nil {
		return fmt.Errorf("open %s: %w", cfg.Feed.Device, err)
	}
	defer port.Close()
	if err := port.SetReadTimeout(cfg.Feed.Poll); err != nil {
		return fmt.Errorf("set read timeout: %w", err)
	}

	log.Printf("feed device=%s baud=%d poll=%s", cfg.Feed.Device, cfg.Feed.Baud, cfg.Feed.Poll)
	return feedLoop(ctx, cfg, buildPipeline(cfg), port, tel, time.Now)
}

// feedLoop polls the FC for RAW_IMU/ATTITUDE/ALTITUDE (and sonar when a
// range sensor is configured), parses the replies and runs one estimator
// cycle per poll. Split from runFeed so tests can drive it with a fake
// port. Returns nil when the stream ends.
func feedLoop(ctx context.Context, cfg config.Config, p *pipeline, port io.ReadWriter, tel *udp.Broadcaster, now func() time.Time) error {
	requests := [][]byte{
		msp.EncodeRequest(msp.CmdRawIMU),
		msp.EncodeRequest(msp.CmdAttitude),
		msp.EncodeRequest(msp.CmdAltitude),
	}
	if cfg.Range.Kind != "none" {
		requests = append(requests, msp.EncodeRequest(msp.CmdSonarAltitude))
	}

	var parser msp.Parser
	start := now()
	buf := make([]byte, 512)
	lastLog := start

	var (
		accelZ  float64
		haveIMU bool
		tiltDeg float64
		baro    vertical.BaroSample
	)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		for _, req := range requests {
			if _, err := port.Write(req); err != nil {
				return fmt.Errorf("write request: %w", err)
			}
		}

		n, err := port.Read(buf)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("read: %w", err)
		}

		wall := now()
		nowMicros := uint32(wall.Sub(start) / time.Microsecond)
		for _, f := range parser.Feed(buf[:n]) {
			switch f.Cmd {
			case msp.CmdRawIMU:
				imu, err := msp.DecodeRawIMU(f.Payload)
				if err != nil {
					continue
				}
				// Gravity compensation assumes near-level flight, which is
				// what a bench shadow run looks like.
				accelZ = (float64(imu.AccZ)/accLSBPerG - 1) * gravityCmSS
				haveIMU = true
			case msp.CmdAttitude:
				att, err := msp.DecodeAttitude(f.Payload)
				if err != nil {
					continue
				}
				tiltDeg = combinedTiltDeg(float64(att.RollDeciDeg)/10, float64(att.PitchDeciDeg)/10)
			case msp.CmdAltitude:
				alt, err := msp.DecodeAltitude(f.Payload)
				if err != nil {
					continue
				}
				baro = vertical.BaroSample{HeightCm: float64(alt.AltCm), AtMicros: nowMicros, Fresh: true}
			case msp.CmdSonarAltitude:
				h, err := msp.DecodeSonarAltitude(f.Payload)
				if err != nil || p.setRange == nil {
					continue
				}
				p.setRange(float64(h), nowMicros)
			}
		}

		if !haveIMU {
			continue
		}
		corr := p.sel.Select(nowMicros, baro, tiltDeg)
		baro.Fresh = false
		p.est.Update(nowMicros, accelZ, corr)

		if tel != nil {
			_, _ = tel.SendJSON(wall, p.telemetry())
		}
		if wall.Sub(lastLog) >= time.Second {
			lastLog = wall
			log.Printf("alt=%dcm vel=%dcm/s source=%s drops=%d",
				p.est.EstimatedAltitude(), p.est.EstimatedVelocity(),
				p.est.Telemetry().Source, parser.Errors())
		}
	}
}

// combinedTiltDeg folds roll and pitch into a single tilt-from-vertical
// angle: cos(tilt) = cos(roll)*cos(pitch).
func combinedTiltDeg(rollDeg, pitchDeg float64) float64 {
	c := math.Cos(rollDeg*math.Pi/180) * math.Cos(pitchDeg*math.Pi/180)
	if c > 1 {
		c = 1
	} else if c < -1 {
		c = -1
	}
	return math.Acos(c) * 180 / math.Pi
}
