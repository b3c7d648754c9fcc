// pilot_test.go

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

package pilot

import (
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/SMerrony/wifidrone"
)

type fakeDrone struct {
	actions []wifidrone.Action
	stats   wifidrone.DroneStats
}

func (f *fakeDrone) Do(a wifidrone.Action) bool {
	f.actions = append(f.actions, a)
	return true
}

func (f *fakeDrone) Stats() wifidrone.DroneStats { return f.stats }

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func press(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	return next.(Model), cmd
}

func TestKeyMap(t *testing.T) {
	tests := []struct {
		key  tea.KeyMsg
		want wifidrone.Action
	}{
		{tea.KeyMsg{Type: tea.KeySpace}, wifidrone.ActionLaunch},
		{runes("l"), wifidrone.ActionLand},
		{runes("o"), wifidrone.ActionAux},
		{runes("p"), wifidrone.ActionPanic},
		{runes("a"), wifidrone.ActionRollLeft},
		{tea.KeyMsg{Type: tea.KeyLeft}, wifidrone.ActionRollLeft},
		{runes("d"), wifidrone.ActionRollRight},
		{tea.KeyMsg{Type: tea.KeyRight}, wifidrone.ActionRollRight},
		{runes("w"), wifidrone.ActionPitchForward},
		{tea.KeyMsg{Type: tea.KeyUp}, wifidrone.ActionPitchForward},
		{runes("s"), wifidrone.ActionPitchBack},
		{tea.KeyMsg{Type: tea.KeyDown}, wifidrone.ActionPitchBack},
		{runes("q"), wifidrone.ActionYawLeft},
		{runes("e"), wifidrone.ActionYawRight},
	}
	for _, tt := range tests {
		d := &fakeDrone{}
		m := New(d, wifidrone.InputConfig{})
		m, cmd := press(t, m, tt.key)
		if cmd != nil {
			t.Errorf("%q returned a command", tt.key.String())
		}
		if len(d.actions) != 1 || d.actions[0] != tt.want {
			t.Errorf("%q sent %v, want %v", tt.key.String(), d.actions, tt.want)
		}
		if m.last != tt.want.String() {
			t.Errorf("%q last = %q", tt.key.String(), m.last)
		}
	}
}

func TestUnmappedKey(t *testing.T) {
	d := &fakeDrone{}
	press(t, New(d, wifidrone.InputConfig{}), runes("z"))
	if len(d.actions) != 0 {
		t.Errorf("unmapped key sent %v", d.actions)
	}
}

func TestQuitKeys(t *testing.T) {
	for _, key := range []tea.KeyMsg{runes("x"), {Type: tea.KeyCtrlC}} {
		d := &fakeDrone{}
		_, cmd := press(t, New(d, wifidrone.InputConfig{}), key)
		if cmd == nil {
			t.Fatalf("%q did not quit", key.String())
		}
		if _, ok := cmd().(tea.QuitMsg); !ok {
			t.Errorf("%q did not quit", key.String())
		}
		if len(d.actions) != 0 {
			t.Errorf("%q sent %v", key.String(), d.actions)
		}
	}
}

func TestInputRateLimit(t *testing.T) {
	d := &fakeDrone{}
	m := New(d, wifidrone.InputConfig{Rate: 0.01})
	for i := 0; i < 5; i++ {
		m, _ = press(t, m, runes("a"))
	}
	if len(d.actions) != 1 || m.throttled != 4 {
		t.Errorf("actions = %v, throttled = %d", d.actions, m.throttled)
	}
	if !strings.Contains(m.View(), "throttled") {
		t.Error("view should report throttled keys")
	}
}

func TestModeKeysNeverThrottled(t *testing.T) {
	d := &fakeDrone{}
	m := New(d, wifidrone.DefaultConfig().Input)
	m, _ = press(t, m, runes("w"))
	m, _ = press(t, m, runes("a")) // same instant, throttled
	m, _ = press(t, m, runes("p"))
	m, _ = press(t, m, runes("l"))
	want := []wifidrone.Action{wifidrone.ActionPitchForward, wifidrone.ActionPanic, wifidrone.ActionLand}
	if len(d.actions) != len(want) {
		t.Fatalf("actions = %v, want %v", d.actions, want)
	}
	for i := range want {
		if d.actions[i] != want[i] {
			t.Errorf("actions = %v, want %v", d.actions, want)
			break
		}
	}
	if m.throttled != 1 {
		t.Errorf("throttled = %d, want 1", m.throttled)
	}
}

func TestTickRefreshesStats(t *testing.T) {
	d := &fakeDrone{}
	d.stats.Flying = true
	d.stats.Session = wifidrone.Session{MediaPort: 53796, ServerHost: "192.168.1.1", ClientPort: 8768}
	d.stats.Link.Heartbeats = 42
	d.stats.Link.Current = wifidrone.StandbyHeartbeat

	m, cmd := press(t, New(d, wifidrone.InputConfig{}), tickMsg{})
	if cmd == nil {
		t.Error("tick should schedule the next tick")
	}
	view := m.View()
	for _, want := range []string{"flying", "53796", "42 heartbeats", wifidrone.StandbyHeartbeat.String()} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}
}

func TestFlightEnded(t *testing.T) {
	d := &fakeDrone{}
	boom := errors.New("send: network is unreachable")
	m, cmd := press(t, New(d, wifidrone.InputConfig{}), FlightEndedMsg{Err: boom})
	if cmd == nil {
		t.Fatal("console should quit when the flight ends")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("expected tea.Quit")
	}
	if !errors.Is(m.Err(), boom) {
		t.Errorf("Err() = %v", m.Err())
	}
	if !strings.Contains(m.View(), boom.Error()) {
		t.Error("view should show the flight error")
	}
}
