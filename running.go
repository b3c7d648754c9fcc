// running.go

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
	"sync"
	"sync/atomic"
)

// RunningFlag is the process-wide shutdown signal shared by every loop.
// It starts out running and can be stopped exactly once.
type RunningFlag struct {
	stopped atomic.Bool

	mu     sync.Mutex // serialises Stop and guards reason
	reason error
}

// NewRunningFlag returns a flag in the running state.
func NewRunningFlag() *RunningFlag {
	return &RunningFlag{}
}

// Running reports whether shutdown has not yet been requested.
func (f *RunningFlag) Running() bool {
	return !f.stopped.Load()
}

// Stop requests shutdown. Only the first call wins and records its reason,
// which may be nil for a normal stop. It reports whether this call was the one that stopped the flag.
func (f *RunningFlag) Stop(reason error) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.stopped.Load() {
		return false
	}
	f.reason = reason // visible before the flag flips
	f.stopped.Store(true)
	return true
}

// Reason returns the error passed to the winning Stop call, if any.
func (f *RunningFlag) Reason() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reason
}
