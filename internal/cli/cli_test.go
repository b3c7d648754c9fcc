// cli_test.go

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
	"bufio"
	"bytes"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bluenviron/gortsplib/v4/pkg/base"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := RootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	missing := filepath.Join(t.TempDir(), "none.yaml")
	root.SetArgs(append([]string{"--config", missing, "--log-level", "error", "--drone", ""}, args...))
	err := root.Execute()
	return out.String(), err
}

func TestVersion(t *testing.T) {
	out, err := run(t, "version")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "wifidrone version "+version) {
		t.Errorf("output = %q", out)
	}
}

func TestEncode(t *testing.T) {
	tests := []struct {
		args []string
		want string
	}{
		{[]string{"launch"}, "03 66 80 80 80 80 01 01 99"},
		{[]string{"0x80", "0x80", "0x80", "0x80", "0"}, "03 66 80 80 80 80 00 00 99"},
		{[]string{"255", "0", "0", "0", "15"}, "03 66 FF 00 00 00 0F F0 99"},
	}
	for _, tt := range tests {
		out, err := run(t, append([]string{"encode"}, tt.args...)...)
		if err != nil {
			t.Errorf("encode %v: %v", tt.args, err)
			continue
		}
		if strings.TrimSpace(out) != tt.want {
			t.Errorf("encode %v = %q, want %q", tt.args, out, tt.want)
		}
	}
}

func TestEncodeRejectsBadInput(t *testing.T) {
	for _, args := range [][]string{
		{"encode", "barrel-roll"},
		{"encode", "1", "2", "3"},
		{"encode", "256", "0", "0", "0", "0"},
	} {
		if _, err := run(t, args...); err == nil {
			t.Errorf("%v should fail", args)
		}
	}
}

func TestBadLogLevel(t *testing.T) {
	root := RootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetArgs([]string{"--log-level", "chatty", "version"})
	if err := root.Execute(); err == nil {
		t.Error("invalid log level accepted")
	}
}

func TestRelayNeedsPort(t *testing.T) {
	if _, err := run(t, "relay", "--remote-port", "0"); err == nil {
		t.Error("relay without a port should fail")
	}
}

func TestHandshakeCommand(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		br := bufio.NewReader(conn)
		for {
			var req base.Request
			if err := req.Unmarshal(br); err != nil {
				return
			}
			res := "RTSP/1.0 200 OK\r\nCSeq: " + req.Header["CSeq"][0] + "\r\n"
			if req.Method == base.Setup {
				res += "Transport: RTP/AVP/UDP;unicast;server_port=53796-53797\r\nSession: 5EED\r\n"
			}
			conn.Write([]byte(res + "\r\n"))
		}
	}()

	cfgPath := filepath.Join(t.TempDir(), "wifidrone.yaml")
	yaml := "session:\n  addr: " + ln.Addr().String() + "\n  read_timeout: 1s\n"
	if err := os.WriteFile(cfgPath, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	root := RootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs([]string{"--config", cfgPath, "--log-level", "error", "--drone", "", "handshake"})
	if err := root.Execute(); err != nil {
		t.Fatalf("handshake: %v\n%s", err, out.String())
	}
	for _, want := range []string{"media port:  53796", "client port: 8768-8769", `session:     "5EED"`} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("output missing %q:\n%s", want, out.String())
		}
	}
}
