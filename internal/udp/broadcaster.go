// Package udp streams telemetry snapshots to a ground-station destination.
// Observability output only: nothing here feeds back into control.
package udp

import (
	"encoding/json"
	"fmt"
	"net"
	"time"
)

type udpConn interface {
	Write(p []byte) (int, error)
	Close() error
}

type resolveFunc func(network, address string) (*net.UDPAddr, error)
type dialFunc func(network string, laddr, raddr *net.UDPAddr) (udpConn, error)

// Broadcaster sends JSON telemetry frames over UDP, rate-limited to one
// frame per interval so a fast control loop does not flood the link.
type Broadcaster struct {
	dest     string
	interval time.Duration
	conn     udpConn
	lastSent time.Time
}

// NewBroadcaster dials dest ("host:port"). interval is the minimum spacing
// between frames; zero disables the rate limit.
func NewBroadcaster(dest string, interval time.Duration) (*Broadcaster, error) {
	return newBroadcaster(dest, interval, net.ResolveUDPAddr,
		func(network string, laddr, raddr *net.UDPAddr) (udpConn, error) {
			return net.DialUDP(network, laddr, raddr)
		})
}

func newBroadcaster(dest string, interval time.Duration, resolve resolveFunc, dial dialFunc) (*Broadcaster, error) {
	addr, err := resolve("udp", dest)
	if err != nil {
		return nil, fmt.Errorf("resolve dest: %w", err)
	}

	// DialUDP selects a suitable local address automatically.
	conn, err := dial("udp", nil, addr)
	if err != nil {
		return nil, fmt.Errorf("dial udp: %w", err)
	}

	return &Broadcaster{dest: dest, interval: interval, conn: conn}, nil
}

// SendJSON marshals v and sends it, unless the previous frame went out less
// than one interval ago, in which case the frame is dropped and sent=false.
func (b *Broadcaster) SendJSON(now time.Time, v any) (sent bool, err error) {
	if !b.lastSent.IsZero() && now.Sub(b.lastSent) < b.interval {
		return false, nil
	}
	payload, err := json.Marshal(v)
	if err != nil {
		return false, fmt.Errorf("marshal telemetry: %w", err)
	}
	if _, err := b.conn.Write(payload); err != nil {
		return false, err
	}
	b.lastSent = now
	return true, nil
}

func (b *Broadcaster) Close() error {
	if b.conn == nil {
		return nil
	}
	return b.conn.Close()
}
