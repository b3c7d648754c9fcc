// flightCommands.go

// This file contains the high-level flight command API

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

// Launch asks the drone to take off
func (d *Drone) Launch() { d.Do(ActionLaunch) }

// Land asks the drone to land
func (d *Drone) Land() { d.Do(ActionLand) }

// Aux sends the auxiliary mode command
func (d *Drone) Aux() { d.Do(ActionAux) }

// Panic sends the emergency stop; it outranks every other command
func (d *Drone) Panic() { d.Do(ActionPanic) }

// Left rolls the drone left for one command duration
func (d *Drone) Left() { d.Do(ActionRollLeft) }

// Right rolls the drone right for one command duration
func (d *Drone) Right() { d.Do(ActionRollRight) }

// Forward pitches the drone forward for one command duration
func (d *Drone) Forward() { d.Do(ActionPitchForward) }

// Back pitches the drone backward for one command duration
func (d *Drone) Back() { d.Do(ActionPitchBack) }

// YawLeft turns the drone anti-clockwise for one command duration
func (d *Drone) YawLeft() { d.Do(ActionYawLeft) }

// YawRight turns the drone clockwise for one command duration
func (d *Drone) YawRight() { d.Do(ActionYawRight) }

// Sticks sends an arbitrary control vector at movement priority.
// The standby vector is ignored.
func (d *Drone) Sticks(cb ControlBits) {
	if cb == StandbyBits {
		return
	}
	d.Submit(d.factory.Bits(cb, d.cfg.Command.Priorities.Movement))
}
