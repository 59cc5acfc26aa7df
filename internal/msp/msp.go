// Package msp implements the MultiWii Serial Protocol v1 framing used to
// pull sensor data out of a flight controller over its telemetry port.
//
// Only the direction and commands the vertical-nav bench feed needs are
// implemented: encoding requests and decoding RAW_IMU, ATTITUDE, ALTITUDE
// and SONAR_ALTITUDE replies. The package is pure; serial I/O lives with
// the caller.
package msp

import (
	"encoding/binary"
	"fmt"
)

// MSP v1 command IDs.
const (
	CmdSonarAltitude = 58
	CmdRawIMU        = 102
	CmdAttitude      = 108
	CmdAltitude      = 109
)

// Frame is one decoded reply: command ID plus raw payload.
type Frame struct {
	Cmd     uint8
	Payload []byte
}

// EncodeRequest builds a zero-payload request frame for cmd:
// '$' 'M' '<' size cmd checksum, checksum being the XOR of size and cmd.
func EncodeRequest(cmd uint8) []byte {
	return []byte{'$', 'M', '<', 0, cmd, cmd}
}

const maxPayload = 64

type parseState int

const (
	stateIdle parseState = iota
	stateHeaderM
	stateDirection
	stateSize
	stateCmd
	statePayload
)

// Parser is an incremental decoder for an MSP v1 reply byte stream. Feed it
// arbitrary chunks; it resynchronizes on the '$M>' preamble and silently
// drops malformed frames, counting them in Errors.
type Parser struct {
	state    parseState
	size     int
	cmd      uint8
	ck       byte
	errFrame bool
	payload  []byte

	errors uint64
}

// Errors returns the number of frames dropped for bad checksum, oversized
// payload or wrong direction since the parser was created.
func (p *Parser) Errors() uint64 { return p.errors }

// Feed consumes data and returns every complete, checksum-valid frame it
// contains. Payload slices are freshly allocated and safe to retain.
func (p *Parser) Feed(data []byte) []Frame {
	var frames []Frame
	for _, b := range data {
		if f, ok := p.advance(b); ok {
			frames = append(frames, f)
		}
	}
	return frames
}

func (p *Parser) advance(b byte) (Frame, bool) {
	switch p.state {
	case stateIdle:
		if b == '$' {
			p.state = stateHeaderM
		}
	case stateHeaderM:
		if b == 'M' {
			p.state = stateDirection
		} else {
			p.state = stateIdle
		}
	case stateDirection:
		switch b {
		case '>':
			p.errFrame = false
			p.state = stateSize
		case '!':
			// Error reply from the FC: consume it so the stream stays in
			// sync, count it, and drop it at the checksum step. Its
			// payload is not sensor data.
			p.errFrame = true
			p.errors++
			p.state = stateSize
		default:
			p.errors++
			p.state = stateIdle
		}
	case stateSize:
		if int(b) > maxPayload {
			p.errors++
			p.state = stateIdle
			break
		}
		p.size = int(b)
		p.ck = b
		p.payload = p.payload[:0]
		p.state = stateCmd
	case stateCmd:
		p.cmd = b
		p.ck ^= b
		p.state = statePayload
	case statePayload:
		if len(p.payload) < p.size {
			p.payload = append(p.payload, b)
			p.ck ^= b
			break
		}
		// Checksum byte.
		p.state = stateIdle
		if b != p.ck {
			p.errors++
			break
		}
		if p.errFrame {
			break
		}
		out := Frame{Cmd: p.cmd, Payload: append([]byte(nil), p.payload...)}
		return out, true
	}
	return Frame{}, false
}

// RawIMU is the MSP_RAW_IMU reply: raw accelerometer, gyro and
// magnetometer axes in sensor LSB units.
type RawIMU struct {
	AccX, AccY, AccZ    int16
	GyroX, GyroY, GyroZ int16
	MagX, MagY, MagZ    int16
}

// DecodeRawIMU decodes an MSP_RAW_IMU payload.
func DecodeRawIMU(payload []byte) (RawIMU, error) {
	if len(payload) < 18 {
		return RawIMU{}, fmt.Errorf("msp: raw imu payload %d bytes, want 18", len(payload))
	}
	u := func(off int) int16 { return int16(binary.LittleEndian.Uint16(payload[off:])) }
	return RawIMU{
		AccX: u(0), AccY: u(2), AccZ: u(4),
		GyroX: u(6), GyroY: u(8), GyroZ: u(10),
		MagX: u(12), MagY: u(14), MagZ: u(16),
	}, nil
}

// Attitude is the MSP_ATTITUDE reply. Roll and pitch are in tenths of a
// degree, heading in whole degrees.
type Attitude struct {
	RollDeciDeg  int16
	PitchDeciDeg int16
	HeadingDeg   int16
}

// DecodeAttitude decodes an MSP_ATTITUDE payload.
func DecodeAttitude(payload []byte) (Attitude, error) {
	if len(payload) < 6 {
		return Attitude{}, fmt.Errorf("msp: attitude payload %d bytes, want 6", len(payload))
	}
	return Attitude{
		RollDeciDeg:  int16(binary.LittleEndian.Uint16(payload[0:])),
		PitchDeciDeg: int16(binary.LittleEndian.Uint16(payload[2:])),
		HeadingDeg:   int16(binary.LittleEndian.Uint16(payload[4:])),
	}, nil
}

// Altitude is the MSP_ALTITUDE reply: barometric altitude in cm and
// variometer rate in cm/s.
type Altitude struct {
	AltCm    int32
	VarioCmS int16
}

// DecodeAltitude decodes an MSP_ALTITUDE payload.
func DecodeAltitude(payload []byte) (Altitude, error) {
	if len(payload) < 6 {
		return Altitude{}, fmt.Errorf("msp: altitude payload %d bytes, want 6", len(payload))
	}
	return Altitude{
		AltCm:    int32(binary.LittleEndian.Uint32(payload[0:])),
		VarioCmS: int16(binary.LittleEndian.Uint16(payload[4:])),
	}, nil
}

// DecodeSonarAltitude decodes an MSP_SONAR_ALTITUDE payload (cm).
func DecodeSonarAltitude(payload []byte) (int32, error) {
	if len(payload) < 4 {
		return 0, fmt.Errorf("msp: sonar payload %d bytes, want 4", len(payload))
	}
	return int32(binary.LittleEndian.Uint32(payload)), nil
}
