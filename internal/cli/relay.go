// relay.go

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
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/SMerrony/wifidrone"
)

var remotePort int

var relayCmd = &cobra.Command{
	Use:   "relay",
	Short: "Relay video from a known drone media port without a handshake",
	RunE: func(cmd *cobra.Command, args []string) error {
		if remotePort <= 0 || remotePort > 65535 {
			return errors.New("--remote-port is required")
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		running := wifidrone.NewRunningFlag()
		relay, err := wifidrone.ListenRelay(cfg.Media, running, logger)
		if err != nil {
			return err
		}
		defer relay.Close()

		remote, err := net.ResolveUDPAddr("udp", net.JoinHostPort(cfg.DroneHost(), strconv.Itoa(remotePort)))
		if err != nil {
			return err
		}
		defer context.AfterFunc(ctx, func() { running.Stop(nil) })()

		err = relay.Run(remote)
		st := relay.Stats()
		fmt.Fprintf(cmd.OutOrStdout(), "relayed %d packets (%d bytes), %d lost, %d feedback drained\n",
			st.Packets, st.Bytes, st.Lost, st.Drained)
		return err
	},
}

func init() {
	relayCmd.Flags().IntVar(&remotePort, "remote-port", 0, "the drone's media port")
	rootCmd.AddCommand(relayCmd)
}
