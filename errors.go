// errors.go

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
	"errors"
	"fmt"
)

var (
	ErrNoTransportHeader = errors.New("wifidrone: SETUP response has no Transport header")
	ErrNoServerPort      = errors.New("wifidrone: Transport header has no usable server_port")
	ErrAlreadyRunning    = errors.New("wifidrone: already running")
	ErrStopped           = errors.New("wifidrone: stopped")
)

// ProtocolError reports a failed session-setup step.
// Status is the RTSP status code if a response was read, otherwise 0.
type ProtocolError struct {
	Step   string
	Status int
	Err    error
}

func (e *ProtocolError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("wifidrone: %s failed with status %d: %v", e.Step, e.Status, e.Err)
	}
	return fmt.Sprintf("wifidrone: %s failed: %v", e.Step, e.Err)
}

func (e *ProtocolError) Unwrap() error { return e.Err }

// TransportError reports a socket failure on one of the drone links.
type TransportError struct {
	Op   string // "send", "recv", "listen", "dial"
	Addr string
	Err  error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("wifidrone: %s %s: %v", e.Op, e.Addr, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// IsProtocolError returns the *ProtocolError in err's chain, if any.
func IsProtocolError(err error) (*ProtocolError, bool) {
	var pe *ProtocolError
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}

// IsTransportError returns the *TransportError in err's chain, if any.
func IsTransportError(err error) (*TransportError, bool) {
	var te *TransportError
	if errors.As(err, &te) {
		return te, true
	}
	return nil, false
}
