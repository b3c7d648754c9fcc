// heartbeat.go

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
	"encoding/hex"
	"strings"
)

// heartbeat framing
const (
	hbHeader0 = 0x03
	hbHeader1 = 0x66
	hbTrailer = 0x99
)

// HeartbeatSize is the length of every control packet on the wire.
const HeartbeatSize = 9

// keepalivePacket is the low-rate auxiliary packet sent alongside the heartbeats
var keepalivePacket = [2]byte{0x01, 0x01}

// ControlBits holds the five control bytes carried by a heartbeat.
type ControlBits [5]byte

// control byte slots
const (
	SlotRoll     = 0
	SlotPitch    = 1
	SlotThrottle = 2
	SlotYaw      = 3
	SlotMode     = 4
)

// Mode is the discrete flag carried in the mode slot.
type Mode byte

// Flight modes...
const (
	ModeIdle   Mode = 0x00
	ModeLaunch Mode = 0x01
	ModeLand   Mode = 0x02
	ModeAux    Mode = 0x03 // meaning is model-specific, usually lights or camera
	ModePanic  Mode = 0x04 // motors off, use with care!
)

const (
	axisCentre = 0x80
	axisStep   = 0x1d // one key press nudges an axis by this much
)

// StandbyBits is the neutral control vector: all axes centred, no mode flag.
var StandbyBits = ControlBits{axisCentre, axisCentre, axisCentre, axisCentre, byte(ModeIdle)}

// StandbyHeartbeat is sent whenever no command is in force.
var StandbyHeartbeat = NewHeartbeat(StandbyBits)

// Heartbeat is a framed control packet ready to be sent to the drone.
type Heartbeat [HeartbeatSize]byte

// NewHeartbeat frames the control bits and computes the checksum.
// This is the only place a Heartbeat should be built.
func NewHeartbeat(cb ControlBits) (hb Heartbeat) {
	hb[0] = hbHeader0
	hb[1] = hbHeader1
	copy(hb[2:7], cb[:])
	hb[7] = checksum(cb)
	hb[8] = hbTrailer
	return hb
}

func checksum(cb ControlBits) (c byte) {
	for _, b := range cb {
		c ^= b
	}
	return c
}

// Bits returns the control bits carried by the heartbeat.
func (hb Heartbeat) Bits() (cb ControlBits) {
	copy(cb[:], hb[2:7])
	return cb
}

// Mode returns the mode flag carried by the heartbeat.
func (hb Heartbeat) Mode() Mode {
	return Mode(hb[2+SlotMode])
}

// Valid reports whether the framing and checksum are intact.
func (hb Heartbeat) Valid() bool {
	return hb[0] == hbHeader0 && hb[1] == hbHeader1 && hb[8] == hbTrailer && hb[7] == checksum(hb.Bits())
}

// String renders the packet as space separated hex, eg. "03 66 80 80 80 80 00 00 99"
func (hb Heartbeat) String() string {
	return strings.ToUpper(hexSpaced(hb[:]))
}

func hexSpaced(b []byte) string {
	var sb strings.Builder
	for i := range b {
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(hex.EncodeToString(b[i : i+1]))
	}
	return sb.String()
}

func (m Mode) String() string {
	switch m {
	case ModeIdle:
		return "idle"
	case ModeLaunch:
		return "launch"
	case ModeLand:
		return "land"
	case ModeAux:
		return "aux"
	case ModePanic:
		return "panic"
	}
	return "unknown"
}
