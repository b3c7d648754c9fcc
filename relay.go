// relay.go

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
	"context"
	"errors"
	"log/slog"
	"net"
	"sync/atomic"
	"time"

	"github.com/pion/rtp"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// largest IPv4 UDP payload
const maxDatagram = 65507

// InitDatagram returns the packet that asks the drone to start streaming:
// a bare version-2 RTP header with every other field zero.
func InitDatagram() []byte {
	b, _ := (&rtp.Header{Version: 2}).Marshal()
	return b
}

// Relay forwards the drone's media stream to a local player and keeps
// the adjacent feedback port drained.
type Relay struct {
	media       *net.UDPConn
	feedback    *net.UDPConn
	out         *net.UDPConn // unconnected
	sink        *net.UDPAddr
	running     *RunningFlag
	readTimeout time.Duration
	log         *slog.Logger
	forwardLog  rate.Sometimes
	drainLog    rate.Sometimes

	packets  atomic.Uint64
	bytes    atomic.Uint64
	drained  atomic.Uint64
	dropped  atomic.Uint64
	lost     atomic.Uint64
	lastSeq  uint16 // owned by the forward loop
	haveSeq  bool
	lastSSRC atomic.Uint32
}

// RelayStats is a snapshot of the relay counters. Lost is estimated from
// gaps in the RTP sequence numbers; payloads that are not RTP are still forwarded.
type RelayStats struct {
	Packets uint64
	Bytes   uint64
	Drained uint64
	Dropped uint64
	Lost    uint64
	SSRC    uint32
}

// ListenRelay binds the local media port and the feedback port above it.
func ListenRelay(cfg MediaConfig, running *RunningFlag, logger *slog.Logger) (*Relay, error) {
	media, err := net.ListenUDP("udp", &net.UDPAddr{Port: cfg.LocalPort})
	if err != nil {
		return nil, &TransportError{Op: "listen", Addr: portAddr(cfg.LocalPort), Err: err}
	}
	feedback, err := net.ListenUDP("udp", &net.UDPAddr{Port: cfg.LocalPort + 1})
	if err != nil {
		media.Close()
		return nil, &TransportError{Op: "listen", Addr: portAddr(cfg.LocalPort + 1), Err: err}
	}
	r, err := NewRelay(media, feedback, cfg, running, logger)
	if err != nil {
		media.Close()
		feedback.Close()
		return nil, err
	}
	return r, nil
}

func portAddr(port int) string {
	return (&net.UDPAddr{Port: port}).String()
}

// NewRelay uses already bound sockets. The relay takes ownership of both.
func NewRelay(media, feedback *net.UDPConn, cfg MediaConfig, running *RunningFlag, logger *slog.Logger) (*Relay, error) {
	if logger == nil {
		logger = slog.Default()
	}
	sink, err := net.ResolveUDPAddr("udp", cfg.PlaybackAddr)
	if err != nil {
		return nil, err
	}
	out, err := net.ListenUDP("udp", nil)
	if err != nil {
		return nil, &TransportError{Op: "listen", Addr: "forward", Err: err}
	}
	readTimeout := cfg.ReadTimeout
	if readTimeout <= 0 {
		readTimeout = defaultMediaReadTimeout
	}
	return &Relay{
		media:       media,
		feedback:    feedback,
		out:         out,
		sink:        sink,
		running:     running,
		readTimeout: readTimeout,
		log:         logger.With("component", "relay"),
		forwardLog:  rate.Sometimes{Interval: 5 * time.Second},
		drainLog:    rate.Sometimes{Interval: 5 * time.Second},
	}, nil
}

// MediaPort is the local port the drone streams to.
func (r *Relay) MediaPort() uint16 {
	return uint16(r.media.LocalAddr().(*net.UDPAddr).Port)
}

// Run sends the init datagram to remote and then relays until the running flag
// is cleared or the media socket fails. The feedback port never stops the relay.
func (r *Relay) Run(remote *net.UDPAddr) error {
	if _, err := r.media.WriteToUDP(InitDatagram(), remote); err != nil {
		return &TransportError{Op: "send", Addr: remote.String(), Err: err}
	}
	r.log.Info("relaying media", "from", remote.String(), "local_port", r.MediaPort(), "to", r.sink.String())

	g, ctx := errgroup.WithContext(context.Background())
	g.Go(func() error { return r.forward(ctx) })
	g.Go(func() error { r.drain(ctx); return nil })
	err := g.Wait()
	if err != nil {
		r.log.Error("media relay failed", "err", err)
		return err
	}
	r.log.Info("media relay stopped", "packets", r.packets.Load())
	return nil
}

func (r *Relay) forward(ctx context.Context) error {
	buf := make([]byte, maxDatagram)
	for r.running.Running() && ctx.Err() == nil {
		r.media.SetReadDeadline(time.Now().Add(r.readTimeout))
		n, from, err := r.media.ReadFromUDP(buf)
		if err != nil {
			if isTimeout(err) {
				continue
			}
			if !r.running.Running() && errors.Is(err, net.ErrClosed) {
				return nil
			}
			return &TransportError{Op: "recv", Addr: r.media.LocalAddr().String(), Err: err}
		}
		r.observe(buf[:n])
		if _, err := r.out.WriteToUDP(buf[:n], r.sink); err != nil {
			// nothing listening at the sink is not a relay failure
			r.dropped.Add(1)
			r.forwardLog.Do(func() {
				r.log.Warn("could not forward media packet", "sink", r.sink.String(), "err", err)
			})
			continue
		}
		r.packets.Add(1)
		r.bytes.Add(uint64(n))
		r.log.Debug("forwarded", "bytes", n, "from", from.String())
	}
	return nil
}

// observe updates the loss estimate when the payload parses as RTP.
func (r *Relay) observe(b []byte) {
	var h rtp.Header
	if _, err := h.Unmarshal(b); err != nil || h.Version != 2 {
		return
	}
	r.lastSSRC.Store(h.SSRC)
	if r.haveSeq {
		if gap := h.SequenceNumber - r.lastSeq; gap > 1 && gap < 0x8000 {
			r.lost.Add(uint64(gap - 1))
		}
	}
	r.lastSeq = h.SequenceNumber
	r.haveSeq = true
}

func (r *Relay) drain(ctx context.Context) {
	buf := make([]byte, maxDatagram)
	for r.running.Running() && ctx.Err() == nil {
		r.feedback.SetReadDeadline(time.Now().Add(r.readTimeout))
		n, err := r.feedback.Read(buf)
		if err != nil {
			if isTimeout(err) {
				continue
			}
			if errors.Is(err, net.ErrClosed) {
				return
			}
			r.drainLog.Do(func() {
				r.log.Warn("feedback port read failed", "err", err)
			})
			time.Sleep(r.readTimeout)
			continue
		}
		r.drained.Add(1)
		r.log.Debug("drained feedback", "bytes", n)
	}
}

func isTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// Stats returns a snapshot of the relay counters.
func (r *Relay) Stats() RelayStats {
	return RelayStats{
		Packets: r.packets.Load(),
		Bytes:   r.bytes.Load(),
		Drained: r.drained.Load(),
		Dropped: r.dropped.Load(),
		Lost:    r.lost.Load(),
		SSRC:    r.lastSSRC.Load(),
	}
}

// Close releases all three sockets.
func (r *Relay) Close() error {
	return errors.Join(r.media.Close(), r.feedback.Close(), r.out.Close())
}
