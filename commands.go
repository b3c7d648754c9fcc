// commands.go

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

// CommandRequest asks for Payload to be sent instead of the standby heartbeat
// for Duration, unless something of equal or higher Priority arrives first.
type CommandRequest struct {
	Payload  Heartbeat
	Duration time.Duration
	Priority uint32
}

// Action is an operator intent, already translated from whatever input device produced it.
type Action int

// Actions...
const (
	ActionLaunch Action = iota
	ActionLand
	ActionAux
	ActionPanic
	ActionRollLeft
	ActionRollRight
	ActionPitchForward
	ActionPitchBack
	ActionYawLeft
	ActionYawRight
)

var actionNames = map[Action]string{
	ActionLaunch:       "launch",
	ActionLand:         "land",
	ActionAux:          "aux",
	ActionPanic:        "panic",
	ActionRollLeft:     "roll-left",
	ActionRollRight:    "roll-right",
	ActionPitchForward: "pitch-forward",
	ActionPitchBack:    "pitch-back",
	ActionYawLeft:      "yaw-left",
	ActionYawRight:     "yaw-right",
}

func (a Action) String() string {
	if n, ok := actionNames[a]; ok {
		return n
	}
	return "unknown"
}

// IsMovement reports whether the action nudges a stick rather than changing mode.
func (a Action) IsMovement() bool {
	return a >= ActionRollLeft && a <= ActionYawRight
}

// ParseAction returns the action with the given name, as printed by String.
func ParseAction(name string) (Action, bool) {
	for a, n := range actionNames {
		if n == name {
			return a, true
		}
	}
	return 0, false
}

// ActionBits returns the control vector for a single action applied to the standby vector.
func ActionBits(a Action) ControlBits {
	cb := StandbyBits
	switch a {
	case ActionLaunch:
		cb[SlotMode] = byte(ModeLaunch)
	case ActionLand:
		cb[SlotMode] = byte(ModeLand)
	case ActionAux:
		cb[SlotMode] = byte(ModeAux)
	case ActionPanic:
		cb[SlotMode] = byte(ModePanic)
	case ActionRollLeft:
		cb[SlotRoll] = nudgeDown(cb[SlotRoll])
	case ActionRollRight:
		cb[SlotRoll] = nudgeUp(cb[SlotRoll])
	case ActionPitchForward:
		cb[SlotPitch] = nudgeUp(cb[SlotPitch])
	case ActionPitchBack:
		cb[SlotPitch] = nudgeDown(cb[SlotPitch])
	case ActionYawLeft:
		cb[SlotYaw] = nudgeUp(cb[SlotYaw])
	case ActionYawRight:
		cb[SlotYaw] = nudgeDown(cb[SlotYaw])
	}
	return cb
}

// saturating axis adjustments
func nudgeUp(v byte) byte {
	if v > 0xff-axisStep {
		return 0xff
	}
	return v + axisStep
}

func nudgeDown(v byte) byte {
	if v < axisStep {
		return 0
	}
	return v - axisStep
}

// Commands turns actions into CommandRequests using the configured duration and priorities.
type Commands struct {
	duration   time.Duration
	priorities Priorities
}

// NewCommands returns a command factory for the given settings.
func NewCommands(cc CommandConfig) Commands {
	return Commands{duration: cc.Duration, priorities: cc.Priorities}
}

// For builds the request for an action. ok is false when the action
// would produce the standby vector, in which case there is nothing to send.
func (c Commands) For(a Action) (req CommandRequest, ok bool) {
	cb := ActionBits(a)
	if cb == StandbyBits {
		return req, false
	}
	return c.Bits(cb, c.priorityOf(a)), true
}

// Bits builds a request for an arbitrary control vector.
func (c Commands) Bits(cb ControlBits, priority uint32) CommandRequest {
	return CommandRequest{
		Payload:  NewHeartbeat(cb),
		Duration: c.duration,
		Priority: priority,
	}
}

func (c Commands) priorityOf(a Action) uint32 {
	switch a {
	case ActionPanic:
		return c.priorities.Panic
	case ActionLaunch, ActionLand, ActionAux:
		return c.priorities.Mode
	}
	return c.priorities.Movement
}

// Commander is the single-slot request channel into the control link.
// Submissions never block; a request still pending when a newer one arrives is replaced.
type Commander struct {
	ch chan CommandRequest
}

// NewCommander returns an empty Commander.
func NewCommander() *Commander {
	return &Commander{ch: make(chan CommandRequest, 1)}
}

// Submit queues req, replacing any request the control link has not yet picked up.
// It reports whether an older pending request was dropped.
func (c *Commander) Submit(req CommandRequest) (replaced bool) {
	for {
		select {
		case c.ch <- req:
			return replaced
		default:
		}
		// slot is full, make room for the newer request
		select {
		case <-c.ch:
			replaced = true
		default:
		}
	}
}

// poll returns the pending request, if any, without blocking.
func (c *Commander) poll() (CommandRequest, bool) {
	select {
	case req := <-c.ch:
		return req, true
	default:
		return CommandRequest{}, false
	}
}
