// handshake.go

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
	"fmt"

	"github.com/spf13/cobra"

	"github.com/SMerrony/wifidrone"
)

var handshakeCmd = &cobra.Command{
	Use:   "handshake",
	Short: "Negotiate the video session and print the drone's media port",
	Long: `Run OPTIONS, DESCRIBE, SETUP and PLAY against the drone and print what was negotiated.
Nothing is sent on the control channel.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		hc, err := wifidrone.DialSession(cmd.Context(), cfg.Session, logger)
		if err != nil {
			return err
		}
		defer hc.Close()

		sess, err := hc.Handshake(cmd.Context(), uint16(cfg.Media.LocalPort))
		if err != nil {
			return fmt.Errorf("handshake stopped at %s: %w", hc.State(), err)
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "server:      %s\n", sess.ServerHost)
		fmt.Fprintf(out, "media port:  %d\n", sess.MediaPort)
		fmt.Fprintf(out, "client port: %d-%d\n", sess.ClientPort, sess.ClientPort+1)
		fmt.Fprintf(out, "session:     %q\n", sess.Token)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(handshakeCmd)
}
