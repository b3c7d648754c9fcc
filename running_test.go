// running_test.go

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
	"sync"
	"testing"
)

func TestRunningFlagFirstStopWins(t *testing.T) {
	f := NewRunningFlag()
	if !f.Running() {
		t.Fatal("new flag should be running")
	}
	first := errors.New("first")
	if !f.Stop(first) {
		t.Error("first Stop should win")
	}
	if f.Stop(errors.New("second")) {
		t.Error("second Stop should lose")
	}
	if f.Running() || !errors.Is(f.Reason(), first) {
		t.Errorf("running = %v, reason = %v", f.Running(), f.Reason())
	}
}

func TestRunningFlagConcurrentStop(t *testing.T) {
	f := NewRunningFlag()
	var wg sync.WaitGroup
	wins := make(chan bool, 50)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			wins <- f.Stop(nil)
		}()
	}
	wg.Wait()
	close(wins)
	n := 0
	for w := range wins {
		if w {
			n++
		}
	}
	if n != 1 {
		t.Errorf("%d callers won, want exactly one", n)
	}
	if f.Reason() != nil {
		t.Errorf("reason = %v, want nil", f.Reason())
	}
}

func TestRunningFlagReasonVisibleOnceStopped(t *testing.T) {
	for i := 0; i < 100; i++ {
		f := NewRunningFlag()
		seen := make(chan error)
		go func() {
			for f.Running() {
			}
			seen <- f.Reason()
		}()
		f.Stop(ErrStopped)
		if err := <-seen; !errors.Is(err, ErrStopped) {
			t.Fatalf("run %d: stopped flag reported reason %v", i, err)
		}
	}
}

func TestErrorHelpers(t *testing.T) {
	err := &ProtocolError{Step: "SETUP", Status: 461, Err: ErrNoTransportHeader}
	wrapped := errors.Join(errors.New("flight"), err)
	if pe, ok := IsProtocolError(wrapped); !ok || pe.Status != 461 {
		t.Errorf("IsProtocolError = %v, %v", pe, ok)
	}
	if _, ok := IsTransportError(wrapped); ok {
		t.Error("not a transport error")
	}
	if !errors.Is(wrapped, ErrNoTransportHeader) {
		t.Error("sentinel lost through wrapping")
	}
	te := &TransportError{Op: "send", Addr: "192.168.1.1:7099", Err: errors.New("boom")}
	if te.Error() != "wifidrone: send 192.168.1.1:7099: boom" {
		t.Errorf("Error() = %q", te.Error())
	}
}
