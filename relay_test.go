// relay_test.go

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
	"bytes"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/pion/rtp"
)

func listenLoopback(t *testing.T) *net.UDPConn {
	t.Helper()
	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatalf("ListenUDP: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

type relayFixture struct {
	relay   *Relay
	running *RunningFlag
	drone   *droneStub // stands in for the drone's media sender
	player  *droneStub // stands in for the playback sink
	done    chan error
}

func startRelay(t *testing.T) *relayFixture {
	t.Helper()
	f := &relayFixture{
		running: NewRunningFlag(),
		drone:   newDroneStub(t),
		player:  newDroneStub(t),
		done:    make(chan error, 1),
	}
	cfg := MediaConfig{
		PlaybackAddr: f.player.conn.LocalAddr().String(),
		ReadTimeout:  20 * time.Millisecond,
	}
	media, feedback := listenLoopback(t), listenLoopback(t)
	r, err := NewRelay(media, feedback, cfg, f.running, nil)
	if err != nil {
		t.Fatalf("NewRelay: %v", err)
	}
	f.relay = r
	t.Cleanup(func() {
		f.running.Stop(nil)
		r.Close()
	})
	go func() { f.done <- r.Run(f.drone.conn.LocalAddr().(*net.UDPAddr)) }()
	return f
}

func (f *relayFixture) sendMedia(t *testing.T, b []byte) {
	t.Helper()
	if _, err := f.drone.conn.WriteTo(b, f.relay.media.LocalAddr()); err != nil {
		t.Fatalf("send media: %v", err)
	}
}

func TestInitDatagram(t *testing.T) {
	want := []byte{0x80, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0}
	if got := InitDatagram(); !bytes.Equal(got, want) {
		t.Errorf("InitDatagram() = % x, want % x", got, want)
	}
}

func TestRelaySendsInitFromMediaPort(t *testing.T) {
	f := startRelay(t)
	buf := make([]byte, 64)
	f.drone.conn.SetReadDeadline(time.Now().Add(time.Second))
	n, from, err := f.drone.conn.ReadFrom(buf)
	if err != nil {
		t.Fatalf("no init datagram: %v", err)
	}
	if !bytes.Equal(buf[:n], InitDatagram()) {
		t.Errorf("init = % x", buf[:n])
	}
	if from.(*net.UDPAddr).Port != int(f.relay.MediaPort()) {
		t.Errorf("init came from %v, want the media port %d", from, f.relay.MediaPort())
	}
}

func TestRelayForwardsVerbatim(t *testing.T) {
	f := startRelay(t)
	f.drone.next(time.Second) // init

	payloads := [][]byte{
		{0x01},
		bytes.Repeat([]byte{0xab}, 1400),
		[]byte("not an RTP packet at all"),
		bytes.Repeat([]byte{0x5a}, 4000),
	}
	for _, p := range payloads {
		f.sendMedia(t, p)
		if got := f.player.next(time.Second); !bytes.Equal(got, p) {
			t.Errorf("forwarded %d bytes, want %d identical bytes", len(got), len(p))
		}
	}
	st := f.relay.Stats()
	if st.Packets != 4 || st.Bytes != 1+1400+24+4000 {
		t.Errorf("stats = %+v", st)
	}
}

func TestRelayFeedbackNeverForwarded(t *testing.T) {
	f := startRelay(t)
	f.drone.next(time.Second)

	for i := 0; i < 5; i++ {
		if _, err := f.drone.conn.WriteTo([]byte{0x81, 0xc9, 0, 1}, f.relay.feedback.LocalAddr()); err != nil {
			t.Fatal(err)
		}
	}
	if got := f.player.next(200 * time.Millisecond); got != nil {
		t.Errorf("feedback datagram reached the player: % x", got)
	}
	select {
	case err := <-f.done:
		t.Fatalf("relay stopped on feedback traffic: %v", err)
	default:
	}
	if st := f.relay.Stats(); st.Drained != 5 || st.Packets != 0 {
		t.Errorf("stats = %+v", st)
	}

	// media still flows afterwards
	f.sendMedia(t, []byte{1, 2, 3})
	if got := f.player.next(time.Second); !bytes.Equal(got, []byte{1, 2, 3}) {
		t.Errorf("forwarded % x", got)
	}
}

func TestRelayCountsSequenceGaps(t *testing.T) {
	f := startRelay(t)
	f.drone.next(time.Second)

	for _, seq := range []uint16{100, 101, 104, 105} {
		pkt := rtp.Packet{
			Header:  rtp.Header{Version: 2, PayloadType: 96, SequenceNumber: seq, SSRC: 0xfeed},
			Payload: []byte{0x65, 0x88},
		}
		b, err := pkt.Marshal()
		if err != nil {
			t.Fatal(err)
		}
		f.sendMedia(t, b)
		f.player.next(time.Second)
	}
	st := f.relay.Stats()
	if st.Lost != 2 || st.SSRC != 0xfeed || st.Packets != 4 {
		t.Errorf("stats = %+v", st)
	}
}

func TestRelayNoPlayer(t *testing.T) {
	f := startRelay(t)
	f.drone.next(time.Second)
	f.player.conn.Close()

	for i := 0; i < 3; i++ {
		f.sendMedia(t, []byte{byte(i)})
		time.Sleep(20 * time.Millisecond)
	}
	select {
	case err := <-f.done:
		t.Fatalf("relay stopped without a player: %v", err)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestRelayStopsOnFlag(t *testing.T) {
	f := startRelay(t)
	f.drone.next(time.Second)
	f.running.Stop(nil)
	select {
	case err := <-f.done:
		if err != nil {
			t.Errorf("Run returned %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("relay did not stop")
	}
}

func TestRelayReceiveErrorIsFatal(t *testing.T) {
	f := startRelay(t)
	f.drone.next(time.Second)
	f.relay.media.Close()

	select {
	case err := <-f.done:
		te, ok := IsTransportError(err)
		if !ok || te.Op != "recv" || !errors.Is(err, net.ErrClosed) {
			t.Errorf("got %v, want a recv TransportError", err)
		}
	case <-time.After(time.Second):
		t.Fatal("relay kept running without its media socket")
	}
}
