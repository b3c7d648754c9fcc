// drone.go

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
	"log/slog"
	"net"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// Drone holds the current state of a session with one drone.
type Drone struct {
	cfg      Config
	log      *slog.Logger
	commands *Commander
	factory  Commands

	mu      sync.RWMutex // protects the fields below
	flying  bool
	running *RunningFlag
	session Session
	link    *ControlLink
	relay   *Relay
}

// DroneStats amalgamates the counters of a running session.
type DroneStats struct {
	Flying  bool
	Session Session
	Link    LinkStats
	Relay   RelayStats
}

// NewDrone prepares a drone session. Nothing is opened until Fly is called.
func NewDrone(cfg Config, logger *slog.Logger) *Drone {
	if logger == nil {
		logger = slog.Default()
	}
	return &Drone{
		cfg:      cfg,
		log:      logger,
		commands: NewCommander(),
		factory:  NewCommands(cfg.Command),
	}
}

// Fly negotiates the video session and then runs the control link, the media relay
// and the session watcher until ctx is cancelled, Stop is called or a link fails.
// A failed handshake returns before anything is sent on the control channel.
func (d *Drone) Fly(ctx context.Context) (err error) {
	if err = d.cfg.Validate(); err != nil {
		return err
	}
	d.mu.Lock()
	if d.flying {
		d.mu.Unlock()
		return ErrAlreadyRunning
	}
	running := NewRunningFlag()
	d.flying = true
	d.running = running
	d.mu.Unlock()
	defer func() {
		running.Stop(err)
		d.mu.Lock()
		d.flying = false
		d.mu.Unlock()
	}()

	relay, err := ListenRelay(d.cfg.Media, running, d.log)
	if err != nil {
		return err
	}
	defer relay.Close()

	hc, err := DialSession(ctx, d.cfg.Session, d.log)
	if err != nil {
		return err
	}
	defer hc.Close()
	sess, err := hc.Handshake(ctx, relay.MediaPort())
	if err != nil {
		d.log.Error("session handshake failed", "state", hc.State(), "err", err)
		return err
	}

	remotePort := int(sess.MediaPort)
	if d.cfg.Media.RemotePort != 0 {
		d.log.Info("overriding negotiated media port", "negotiated", sess.MediaPort, "using", d.cfg.Media.RemotePort)
		remotePort = d.cfg.Media.RemotePort
	}
	remote, err := net.ResolveUDPAddr("udp", net.JoinHostPort(sess.ServerHost, strconv.Itoa(remotePort)))
	if err != nil {
		return err
	}

	link, err := ListenControl(d.cfg.Control, d.commands, running, d.log)
	if err != nil {
		return err
	}
	defer link.Close()

	d.mu.Lock()
	d.session = sess
	d.link = link
	d.relay = relay
	d.mu.Unlock()

	stop := context.AfterFunc(ctx, func() { running.Stop(nil) })
	defer stop()

	var g errgroup.Group
	g.Go(func() error {
		err := link.Run()
		running.Stop(err)
		hc.Close() // releases the watcher
		return err
	})
	g.Go(func() error {
		err := relay.Run(remote)
		running.Stop(err)
		return err
	})
	g.Go(func() error {
		hc.Watch(running)
		return nil
	})
	err = g.Wait()
	d.log.Info("flight ended", "err", err)
	return err
}

// Stop asks a running Fly to wind down. It is safe to call at any time.
func (d *Drone) Stop() {
	d.mu.RLock()
	running := d.running
	d.mu.RUnlock()
	if running != nil {
		running.Stop(ErrStopped)
	}
}

// Running returns true while Fly is active and has not been asked to stop.
func (d *Drone) Running() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.flying && d.running.Running()
}

// Submit hands a request to the control link. A request not yet picked up is replaced.
func (d *Drone) Submit(req CommandRequest) {
	if d.commands.Submit(req) {
		d.log.Debug("pending command superseded")
	}
}

// Do submits the request for a named action. It returns false if the action has no payload.
func (d *Drone) Do(a Action) bool {
	req, ok := d.factory.For(a)
	if !ok {
		return false
	}
	d.log.Debug("action", "action", a.String(), "priority", req.Priority)
	d.Submit(req)
	return true
}

// Session returns the negotiated session, ok is false before a handshake has succeeded.
func (d *Drone) Session() (Session, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.session, d.session.MediaPort != 0
}

// Stats returns the current known state of the session.
func (d *Drone) Stats() (st DroneStats) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	st.Flying = d.flying
	st.Session = d.session
	if d.link != nil {
		st.Link = d.link.Stats()
	}
	if d.relay != nil {
		st.Relay = d.relay.Stats()
	}
	return st
}

// StreamStats sends a DroneStats snapshot every period until ctx is done.
// Unconsumed snapshots are dropped rather than blocking.
func (d *Drone) StreamStats(ctx context.Context, period time.Duration) <-chan DroneStats {
	ch := make(chan DroneStats, 2)
	go func() {
		defer close(ch)
		ticker := time.NewTicker(period)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				select {
				case ch <- d.Stats():
				default:
				}
			}
		}
	}()
	return ch
}
