// arbiter.go

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

import "time"

// activeCommand is the command currently in force.
type activeCommand struct {
	payload  Heartbeat
	expiry   time.Time
	priority uint32
}

// Arbiter decides which heartbeat goes out on each tick.
// It holds at most one command; nothing is queued or retried.
// An Arbiter is owned by a single goroutine and is not safe for concurrent use.
type Arbiter struct {
	standby Heartbeat
	active  *activeCommand
}

// NewArbiter returns an Arbiter which falls back to standby.
func NewArbiter(standby Heartbeat) *Arbiter {
	return &Arbiter{standby: standby}
}

// Offer installs req unless a higher priority command is still in force.
// Equal priority replaces the current command.
func (a *Arbiter) Offer(req CommandRequest, now time.Time) (accepted bool) {
	if a.active != nil && req.Priority < a.active.priority {
		return false
	}
	a.active = &activeCommand{
		payload:  req.Payload,
		expiry:   now.Add(req.Duration),
		priority: req.Priority,
	}
	return true
}

// Expire clears the current command once its time is up.
func (a *Arbiter) Expire(now time.Time) (expired bool) {
	if a.active != nil && !now.Before(a.active.expiry) {
		a.active = nil
		return true
	}
	return false
}

// Payload returns the heartbeat to transmit right now.
func (a *Arbiter) Payload() Heartbeat {
	if a.active != nil {
		return a.active.payload
	}
	return a.standby
}

// Active reports whether a command is in force, and its priority and expiry.
func (a *Arbiter) Active() (priority uint32, expiry time.Time, ok bool) {
	if a.active == nil {
		return 0, time.Time{}, false
	}
	return a.active.priority, a.active.expiry, true
}
