// encode.go

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
	"strconv"

	"github.com/spf13/cobra"

	"github.com/SMerrony/wifidrone"
)

var encodeCmd = &cobra.Command{
	Use:   "encode <action> | <b0> <b1> <b2> <b3> <b4>",
	Short: "Print the heartbeat for an action or a raw control vector",
	Long: `Print the 9-byte heartbeat packet for a named action (launch, land, aux, panic,
roll-left, roll-right, pitch-forward, pitch-back, yaw-left, yaw-right) or for
five control bytes given in decimal or 0x hex.`,
	Args: func(cmd *cobra.Command, args []string) error {
		if len(args) != 1 && len(args) != 5 {
			return fmt.Errorf("want an action name or 5 bytes, got %d arguments", len(args))
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		var cb wifidrone.ControlBits
		if len(args) == 1 {
			a, ok := wifidrone.ParseAction(args[0])
			if !ok {
				return fmt.Errorf("unknown action %q", args[0])
			}
			cb = wifidrone.ActionBits(a)
		} else {
			for i, arg := range args {
				v, err := strconv.ParseUint(arg, 0, 8)
				if err != nil {
					return fmt.Errorf("byte %d: %w", i, err)
				}
				cb[i] = byte(v)
			}
		}
		fmt.Fprintln(cmd.OutOrStdout(), wifidrone.NewHeartbeat(cb).String())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(encodeCmd)
}
