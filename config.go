// config.go

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
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultDroneHost        = "192.168.1.1"
	defaultSourceAddr       = "0.0.0.0:58737"
	defaultControlPort      = 7099
	defaultSessionPort      = 7070
	defaultSessionPath      = "webcam"
	defaultUserAgent        = "ijkplayer"
	defaultLocalVideoPort   = 8768
	defaultPlaybackAddr     = "127.0.0.1:9090"
	defaultHeartbeatPeriod  = 100 * time.Millisecond
	defaultKeepalivePeriod  = time.Second
	defaultCommandDuration  = 2000 * time.Millisecond
	defaultConnectTimeout   = 5 * time.Second
	defaultHandshakeTimeout = 3 * time.Second
	defaultMediaReadTimeout = 100 * time.Millisecond
	defaultInputRate        = 20
)

// Config holds every externally overridable setting.
type Config struct {
	Control ControlConfig `yaml:"control"`
	Session SessionConfig `yaml:"session"`
	Media   MediaConfig   `yaml:"media"`
	Command CommandConfig `yaml:"command"`
	Input   InputConfig   `yaml:"input"`
}

// ControlConfig covers the heartbeat (control) channel.
type ControlConfig struct {
	SourceAddr        string        `yaml:"source_addr"`
	DestAddr          string        `yaml:"dest_addr"`
	Cadence           time.Duration `yaml:"cadence"`
	KeepaliveInterval time.Duration `yaml:"keepalive_interval"`
}

// SessionConfig covers the session-setup (RTSP) exchange.
type SessionConfig struct {
	Addr           string        `yaml:"addr"`
	Path           string        `yaml:"path"`
	UserAgent      string        `yaml:"user_agent"`
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
}

// MediaConfig covers the video relay.
type MediaConfig struct {
	LocalPort    int           `yaml:"local_port"`
	PlaybackAddr string        `yaml:"playback_addr"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	RemotePort   int           `yaml:"remote_port"` // 0 means use the negotiated port
}

// CommandConfig sets how long a command stays in force and how commands rank.
type CommandConfig struct {
	Duration   time.Duration `yaml:"duration"`
	Priorities Priorities    `yaml:"priorities"`
}

// Priorities ranks the three kinds of command; higher wins.
type Priorities struct {
	Movement uint32 `yaml:"movement"`
	Mode     uint32 `yaml:"mode"`
	Panic    uint32 `yaml:"panic"`
}

// InputConfig limits how fast the operator console may submit commands.
type InputConfig struct {
	Rate float64 `yaml:"rate"` // commands per second
}

// DefaultConfig returns the built-in settings for a drone at 192.168.1.1.
func DefaultConfig() Config {
	return Config{
		Control: ControlConfig{
			SourceAddr:        defaultSourceAddr,
			DestAddr:          net.JoinHostPort(defaultDroneHost, strconv.Itoa(defaultControlPort)),
			Cadence:           defaultHeartbeatPeriod,
			KeepaliveInterval: defaultKeepalivePeriod,
		},
		Session: SessionConfig{
			Addr:           net.JoinHostPort(defaultDroneHost, strconv.Itoa(defaultSessionPort)),
			Path:           defaultSessionPath,
			UserAgent:      defaultUserAgent,
			ConnectTimeout: defaultConnectTimeout,
			ReadTimeout:    defaultHandshakeTimeout,
		},
		Media: MediaConfig{
			LocalPort:    defaultLocalVideoPort,
			PlaybackAddr: defaultPlaybackAddr,
			ReadTimeout:  defaultMediaReadTimeout,
		},
		Command: CommandConfig{
			Duration:   defaultCommandDuration,
			Priorities: Priorities{Movement: 0, Mode: 5, Panic: 10},
		},
		Input: InputConfig{Rate: defaultInputRate},
	}
}

// LoadConfig reads the YAML file at path over the defaults.
// If the file does not exist the defaults are returned with no error.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// SetDroneHost points the control and session addresses at a different drone,
// keeping their ports.
func (c *Config) SetDroneHost(host string) error {
	for _, addr := range []*string{&c.Control.DestAddr, &c.Session.Addr} {
		_, port, err := net.SplitHostPort(*addr)
		if err != nil {
			return err
		}
		*addr = net.JoinHostPort(host, port)
	}
	return nil
}

// DroneHost returns the host part of the session address.
func (c Config) DroneHost() string {
	host, _, err := net.SplitHostPort(c.Session.Addr)
	if err != nil {
		return c.Session.Addr
	}
	return host
}

// Validate checks the settings before any socket is opened.
func (c Config) Validate() error {
	for name, addr := range map[string]string{
		"control.source_addr": c.Control.SourceAddr,
		"control.dest_addr":   c.Control.DestAddr,
		"session.addr":        c.Session.Addr,
		"media.playback_addr": c.Media.PlaybackAddr,
	} {
		if _, _, err := net.SplitHostPort(addr); err != nil {
			return fmt.Errorf("invalid %s %q: %w", name, addr, err)
		}
	}
	if c.Control.Cadence <= 0 {
		return errors.New("control.cadence must be positive")
	}
	if c.Control.KeepaliveInterval <= 0 {
		return errors.New("control.keepalive_interval must be positive")
	}
	if c.Command.Duration <= 0 {
		return errors.New("command.duration must be positive")
	}
	// the control-feedback port is local_port+1
	if c.Media.LocalPort <= 0 || c.Media.LocalPort >= 65535 {
		return fmt.Errorf("media.local_port %d out of range", c.Media.LocalPort)
	}
	if c.Media.RemotePort < 0 || c.Media.RemotePort > 65535 {
		return fmt.Errorf("media.remote_port %d out of range", c.Media.RemotePort)
	}
	if c.Media.ReadTimeout <= 0 {
		return errors.New("media.read_timeout must be positive")
	}
	return nil
}
