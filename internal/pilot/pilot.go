// pilot.go

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

// Package pilot is the interactive flight console. Key presses become flight
// actions, movement keys rate limited, and the screen shows the live session counters.
package pilot

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/time/rate"

	"github.com/SMerrony/wifidrone"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("57")).
			Padding(0, 1)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("12")).
			Width(12)

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))

	activeStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("10"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			Italic(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("1")).
			Bold(true)
)

const refreshInterval = 250 * time.Millisecond

// Drone is the part of *wifidrone.Drone the console drives.
type Drone interface {
	Do(a wifidrone.Action) bool
	Stats() wifidrone.DroneStats
}

// DefaultKeys maps console keys to flight actions.
var DefaultKeys = map[string]wifidrone.Action{
	" ":     wifidrone.ActionLaunch,
	"space": wifidrone.ActionLaunch,
	"l":     wifidrone.ActionLand,
	"o":     wifidrone.ActionAux,
	"p":     wifidrone.ActionPanic,
	"a":     wifidrone.ActionRollLeft,
	"left":  wifidrone.ActionRollLeft,
	"d":     wifidrone.ActionRollRight,
	"right": wifidrone.ActionRollRight,
	"w":     wifidrone.ActionPitchForward,
	"up":    wifidrone.ActionPitchForward,
	"s":     wifidrone.ActionPitchBack,
	"down":  wifidrone.ActionPitchBack,
	"q":     wifidrone.ActionYawLeft,
	"e":     wifidrone.ActionYawRight,
}

type tickMsg time.Time

// FlightEndedMsg tells the console that Fly has returned.
type FlightEndedMsg struct{ Err error }

// Model is the bubbletea model for the flight console.
type Model struct {
	drone     Drone
	keys      map[string]wifidrone.Action
	limiter   *rate.Limiter
	stats     wifidrone.DroneStats
	last      string
	throttled int
	ended     bool
	err       error
}

// New returns a console for drone. Movement keys are accepted at most cfg.Rate
// per second; a non-positive rate means no limit. Mode keys, panic included,
// are never throttled.
func New(drone Drone, cfg wifidrone.InputConfig) Model {
	limit := rate.Inf
	if cfg.Rate > 0 {
		limit = rate.Limit(cfg.Rate)
	}
	return Model{
		drone:   drone,
		keys:    DefaultKeys,
		limiter: rate.NewLimiter(limit, 1),
	}
}

// Err returns the error Fly ended with, if any.
func (m Model) Err() error { return m.err }

// Init starts the refresh tick.
func (m Model) Init() tea.Cmd {
	return tick()
}

func tick() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Update handles key presses, refresh ticks and the end of the flight.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		key := msg.String()
		if key == "x" || key == "ctrl+c" {
			return m, tea.Quit
		}
		a, ok := m.keys[key]
		if !ok {
			return m, nil
		}
		if a.IsMovement() && !m.limiter.Allow() {
			m.throttled++
			return m, nil
		}
		if m.drone.Do(a) {
			m.last = a.String()
		}
		return m, nil

	case tickMsg:
		m.stats = m.drone.Stats()
		return m, tick()

	case FlightEndedMsg:
		m.ended = true
		m.err = msg.Err
		m.stats = m.drone.Stats()
		return m, tea.Quit
	}
	return m, nil
}

// View renders the console.
func (m Model) View() string {
	var sb strings.Builder
	sb.WriteString(titleStyle.Render(" wifidrone "))
	sb.WriteString("\n\n")

	row := func(label, value string) {
		sb.WriteString(labelStyle.Render(label))
		sb.WriteString(valueStyle.Render(value))
		sb.WriteString("\n")
	}

	st := m.stats
	switch {
	case m.ended:
		row("state", "landed")
	case st.Flying && st.Session.MediaPort != 0:
		row("state", activeStyle.Render("flying"))
	default:
		row("state", dimStyle.Render("connecting…"))
	}
	if st.Session.MediaPort != 0 {
		row("video", fmt.Sprintf("%s:%d → local %d", st.Session.ServerHost, st.Session.MediaPort, st.Session.ClientPort))
	}
	row("heartbeat", st.Link.Current.String())
	row("sent", fmt.Sprintf("%d heartbeats, %d keepalives", st.Link.Heartbeats, st.Link.Keepalives))
	row("commands", fmt.Sprintf("%d accepted, %d outranked, %d expired", st.Link.Accepted, st.Link.Rejected, st.Link.Expired))
	row("video rx", fmt.Sprintf("%d packets, %d KiB, %d lost", st.Relay.Packets, st.Relay.Bytes/1024, st.Relay.Lost))
	if m.last != "" {
		row("last key", m.last)
	}
	if m.throttled > 0 {
		row("throttled", fmt.Sprintf("%d", m.throttled))
	}
	if m.err != nil {
		sb.WriteString(errorStyle.Render(m.err.Error()))
		sb.WriteString("\n")
	}

	sb.WriteString("\n")
	sb.WriteString(dimStyle.Render("space launch · l land · o aux · p PANIC · wasd/arrows move · q/e yaw · x quit"))
	sb.WriteString("\n")
	return sb.String()
}
