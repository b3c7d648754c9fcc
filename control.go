// control.go

// Copyright (C) 2018  Steve Merrony

// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.

// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.

package wifidrone

import (
	"log/slog"
	"net"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// ControlLink streams heartbeats to the drone at a fixed cadence.
// Each tick it picks up at most one new command, expires the active one,
// sends the current payload and, once per keepalive interval, the auxiliary keepalive.
type ControlLink struct {
	conn      net.PacketConn
	dest      net.Addr
	commands  *Commander
	running   *RunningFlag
	arbiter   *Arbiter
	cadence   time.Duration
	keepalive time.Duration
	log       *slog.Logger
	rejectLog rate.Sometimes
	now       func() time.Time

	heartbeats atomic.Uint64
	keepalives atomic.Uint64
	accepted   atomic.Uint64
	rejected   atomic.Uint64
	expired    atomic.Uint64
	current    atomic.Value // Heartbeat
}

// LinkStats is a snapshot of the control link counters.
type LinkStats struct {
	Heartbeats uint64
	Keepalives uint64
	Accepted   uint64
	Rejected   uint64
	Expired    uint64
	Current    Heartbeat
}

// ListenControl binds the local control socket and resolves the drone's control address.
func ListenControl(cfg ControlConfig, commands *Commander, running *RunningFlag, logger *slog.Logger) (*ControlLink, error) {
	laddr, err := net.ResolveUDPAddr("udp", cfg.SourceAddr)
	if err != nil {
		return nil, err
	}
	raddr, err := net.ResolveUDPAddr("udp", cfg.DestAddr)
	if err != nil {
		return nil, err
	}
	conn, err := net.ListenUDP("udp", laddr)
	if err != nil {
		return nil, &TransportError{Op: "listen", Addr: cfg.SourceAddr, Err: err}
	}
	return NewControlLink(conn, raddr, cfg, commands, running, logger), nil
}

// NewControlLink wraps an already bound socket. The link takes ownership of conn.
func NewControlLink(conn net.PacketConn, dest net.Addr, cfg ControlConfig, commands *Commander, running *RunningFlag, logger *slog.Logger) *ControlLink {
	if logger == nil {
		logger = slog.Default()
	}
	l := &ControlLink{
		conn:      conn,
		dest:      dest,
		commands:  commands,
		running:   running,
		arbiter:   NewArbiter(StandbyHeartbeat),
		cadence:   cfg.Cadence,
		keepalive: cfg.KeepaliveInterval,
		log:       logger.With("component", "control"),
		rejectLog: rate.Sometimes{Interval: time.Second},
		now:       time.Now,
	}
	l.current.Store(StandbyHeartbeat)
	return l
}

// Run sends heartbeats until the running flag is cleared or a send fails.
// A send error is returned immediately.
func (l *ControlLink) Run() error {
	l.log.Info("sending heartbeats", "dest", l.dest.String(), "cadence", l.cadence)
	ticker := time.NewTicker(l.cadence)
	defer ticker.Stop()

	lastKeepalive := l.now()
	for l.running.Running() {
		if err := l.tick(&lastKeepalive); err != nil {
			l.log.Error("control link failed", "err", err)
			return err
		}
		<-ticker.C
	}
	l.log.Info("control link stopped")
	return nil
}

func (l *ControlLink) tick(lastKeepalive *time.Time) error {
	now := l.now()

	if req, ok := l.commands.poll(); ok {
		if l.arbiter.Offer(req, now) {
			l.accepted.Add(1)
			l.log.Debug("command accepted", "payload", req.Payload.String(), "priority", req.Priority, "duration", req.Duration)
		} else {
			l.rejected.Add(1)
			l.rejectLog.Do(func() {
				l.log.Debug("command outranked, dropped", "payload", req.Payload.String(), "priority", req.Priority)
			})
		}
	}

	if l.arbiter.Expire(now) {
		l.expired.Add(1)
		l.log.Debug("command expired, back to standby")
	}

	hb := l.arbiter.Payload()
	if _, err := l.conn.WriteTo(hb[:], l.dest); err != nil {
		return &TransportError{Op: "send", Addr: l.dest.String(), Err: err}
	}
	l.heartbeats.Add(1)
	l.current.Store(hb)

	if now.Sub(*lastKeepalive) >= l.keepalive {
		if _, err := l.conn.WriteTo(keepalivePacket[:], l.dest); err != nil {
			return &TransportError{Op: "send", Addr: l.dest.String(), Err: err}
		}
		l.keepalives.Add(1)
		*lastKeepalive = now
	}
	return nil
}

// Stats returns a snapshot of the link counters.
func (l *ControlLink) Stats() LinkStats {
	return LinkStats{
		Heartbeats: l.heartbeats.Load(),
		Keepalives: l.keepalives.Load(),
		Accepted:   l.accepted.Load(),
		Rejected:   l.rejected.Load(),
		Expired:    l.expired.Load(),
		Current:    l.current.Load().(Heartbeat),
	}
}

// LocalAddr returns the address heartbeats are sent from.
func (l *ControlLink) LocalAddr() net.Addr {
	return l.conn.LocalAddr()
}

// Close releases the control socket.
func (l *ControlLink) Close() error {
	return l.conn.Close()
}
