// fly.go

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

package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/SMerrony/wifidrone"
	"github.com/SMerrony/wifidrone/internal/pilot"
)

const statsPeriod = 5 * time.Second

var headless bool

var flyCmd = &cobra.Command{
	Use:   "fly",
	Short: "Connect to the drone and fly it from the keyboard",
	Long: `Negotiate the video session, then stream heartbeats and relay video until you quit.

Key bindings:
  space          Launch
  l              Land
  o              Auxiliary mode
  p              PANIC (outranks everything)
  a d / ← →      Roll left / right
  w s / ↑ ↓      Pitch forward / back
  q e            Yaw left / right
  x / Ctrl+C     Quit

With --headless no console is shown; the drone holds standby until interrupted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		if headless {
			return flyHeadless(ctx)
		}
		return flyConsole(ctx)
	},
}

func flyHeadless(ctx context.Context) error {
	drone := wifidrone.NewDrone(cfg, logger)
	statsCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		for st := range drone.StreamStats(statsCtx, statsPeriod) {
			if !st.Flying {
				continue
			}
			logger.Info("flight stats",
				"heartbeats", st.Link.Heartbeats,
				"keepalives", st.Link.Keepalives,
				"video_packets", st.Relay.Packets,
				"video_lost", st.Relay.Lost)
		}
	}()
	return drone.Fly(ctx)
}

func flyConsole(ctx context.Context) error {
	f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()
	fileLogger := newLogger(f)

	drone := wifidrone.NewDrone(cfg, fileLogger)
	p := tea.NewProgram(pilot.New(drone, cfg.Input), tea.WithAltScreen())

	flown := make(chan error, 1)
	go func() {
		err := drone.Fly(ctx)
		flown <- err
		p.Send(pilot.FlightEndedMsg{Err: err})
	}()

	if _, err := p.Run(); err != nil {
		drone.Stop()
		<-flown
		return err
	}
	drone.Stop()
	return <-flown
}

func init() {
	flyCmd.Flags().BoolVar(&headless, "headless", false, "run without the flight console, logging to stderr")
	rootCmd.AddCommand(flyCmd)
}
