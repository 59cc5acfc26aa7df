package main

import (
	"context"
	"encoding/binary"
	"io"
	"math"
	"testing"
	"time"

	"pluto-vnav/internal/config"
	"pluto-vnav/internal/msp"
)

// fakePort replays one prerecorded chunk per Read and advances a fake
// clock, so feedLoop runs one estimator cycle per chunk.
type fakePort struct {
	chunks  [][]byte
	next    int
	writes  int
	clock   *fakeClock
	advance time.Duration
}

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (p *fakePort) Read(buf []byte) (int, error) {
	if p.next >= len(p.chunks) {
		return 0, io.EOF
	}
	p.clock.now = p.clock.now.Add(p.advance)
	n := copy(buf, p.chunks[p.next])
	p.next++
	return n, nil
}

func (p *fakePort) Write(b []byte) (int, error) {
	p.writes++
	return len(b), nil
}

func mspReply(cmd uint8, payload []byte) []byte {
	out := []byte{'$', 'M', '>', byte(len(payload)), cmd}
	ck := byte(len(payload)) ^ cmd
	for _, b := range payload {
		ck ^= b
	}
	out = append(out, payload...)
	return append(out, ck)
}

// levelCycle is one poll's worth of replies: level attitude, 1g on the Z
// accelerometer and a fixed barometric altitude.
func levelCycle(altCm int32) []byte {
	imu := make([]byte, 18)
	binary.LittleEndian.PutUint16(imu[4:], 512) // AccZ = +1g at 512 LSB/g

	att := make([]byte, 6)

	alt := make([]byte, 6)
	binary.LittleEndian.PutUint32(alt[0:], uint32(altCm))

	var chunk []byte
	chunk = append(chunk, mspReply(msp.CmdRawIMU, imu)...)
	chunk = append(chunk, mspReply(msp.CmdAttitude, att)...)
	chunk = append(chunk, mspReply(msp.CmdAltitude, alt)...)
	return chunk
}

func TestFeedLoop_TracksBaroAltitude(t *testing.T) {
	cfg := config.Default()
	cfg.Range.Kind = "none"

	clock := &fakeClock{now: time.Unix(1000, 0)}
	port := &fakePort{clock: clock, advance: 20 * time.Millisecond}
	for i := 0; i < 400; i++ {
		port.chunks = append(port.chunks, levelCycle(100))
	}

	p := buildPipeline(cfg)
	if err := feedLoop(context.Background(), cfg, p, port, nil, clock.Now); err != nil {
		t.Fatalf("feedLoop: %v", err)
	}

	// 8s of a constant 100cm barometer and level 1g: the estimate must
	// have moved most of the way to the reading.
	got := float64(p.est.EstimatedAltitude())
	if got < 50 || got > 110 {
		t.Fatalf("estAlt=%v want approaching 100", got)
	}
	if math.Abs(float64(p.est.EstimatedVelocity())) > 30 {
		t.Fatalf("estVel=%d want near zero", p.est.EstimatedVelocity())
	}
	// Three requests per poll when no range sensor is configured.
	if port.writes != 400*3 {
		t.Fatalf("writes=%d want %d", port.writes, 400*3)
	}
}

func TestFeedLoop_SonarRequestedWithRangeSensor(t *testing.T) {
	cfg := config.Default()
	cfg.Range.Kind = "sonar"

	clock := &fakeClock{now: time.Unix(1000, 0)}
	port := &fakePort{clock: clock, advance: 20 * time.Millisecond}
	sonar := make([]byte, 4)
	binary.LittleEndian.PutUint32(sonar, 150)
	for i := 0; i < 50; i++ {
		chunk := levelCycle(170)
		chunk = append(chunk, mspReply(msp.CmdSonarAltitude, sonar)...)
		port.chunks = append(port.chunks, chunk)
	}

	p := buildPipeline(cfg)
	if err := feedLoop(context.Background(), cfg, p, port, nil, clock.Now); err != nil {
		t.Fatalf("feedLoop: %v", err)
	}
	if port.writes != 50*4 {
		t.Fatalf("writes=%d want %d", port.writes, 50*4)
	}
	// Sonar at 150cm inside the envelope must win over the barometer.
	if got := p.est.Telemetry().Source; got != "range" {
		t.Fatalf("correction source=%q want range", got)
	}
}

func TestFeedLoop_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	cfg := config.Default()
	clock := &fakeClock{now: time.Unix(1000, 0)}
	port := &fakePort{clock: clock, advance: 20 * time.Millisecond}
	err := feedLoop(ctx, cfg, buildPipeline(cfg), port, nil, clock.Now)
	if err == nil {
		t.Fatalf("expected context error")
	}
}
