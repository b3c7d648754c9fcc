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

package wifidrone

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/bluenviron/gortsplib/v4/pkg/base"
	"github.com/pion/sdp/v3"
)

const defaultTrack = "track0"

// HandshakeState tracks progress through the session-setup exchange.
type HandshakeState int

// Handshake states, in order...
const (
	StateConnected HandshakeState = iota
	StateOptionsSent
	StateDescribeSent
	StateSetupSent
	StateNegotiated
	StatePlaying
)

func (s HandshakeState) String() string {
	switch s {
	case StateConnected:
		return "connected"
	case StateOptionsSent:
		return "options-sent"
	case StateDescribeSent:
		return "describe-sent"
	case StateSetupSent:
		return "setup-sent"
	case StateNegotiated:
		return "negotiated"
	case StatePlaying:
		return "playing"
	}
	return "unknown"
}

// Session is the outcome of a successful handshake.
type Session struct {
	MediaPort  uint16 // the drone's video port, first of the server_port pair
	Token      string // echoed in PLAY, may be empty
	ServerHost string
	ClientPort uint16 // our video port; the control-feedback port is ClientPort+1
}

// HandshakeClient drives OPTIONS, DESCRIBE, SETUP and PLAY over one connection,
// strictly one request at a time.
type HandshakeClient struct {
	conn        net.Conn
	br          *bufio.Reader
	baseURL     string
	userAgent   string
	readTimeout time.Duration
	cseq        int
	state       HandshakeState
	log         *slog.Logger
}

// DialSession connects to the drone's session-setup port.
func DialSession(ctx context.Context, cfg SessionConfig, logger *slog.Logger) (*HandshakeClient, error) {
	dialer := net.Dialer{Timeout: cfg.ConnectTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", cfg.Addr)
	if err != nil {
		return nil, &TransportError{Op: "dial", Addr: cfg.Addr, Err: err}
	}
	return NewHandshakeClient(conn, cfg, logger), nil
}

// NewHandshakeClient uses an established connection. The client takes ownership of conn.
func NewHandshakeClient(conn net.Conn, cfg SessionConfig, logger *slog.Logger) *HandshakeClient {
	if logger == nil {
		logger = slog.Default()
	}
	readTimeout := cfg.ReadTimeout
	if readTimeout <= 0 {
		readTimeout = defaultHandshakeTimeout
	}
	return &HandshakeClient{
		conn:        conn,
		br:          bufio.NewReader(conn),
		baseURL:     "rtsp://" + cfg.Addr + "/" + strings.Trim(cfg.Path, "/"),
		userAgent:   cfg.UserAgent,
		readTimeout: readTimeout,
		log:         logger.With("component", "handshake"),
	}
}

// State returns how far the handshake got.
func (c *HandshakeClient) State() HandshakeState {
	return c.state
}

// Handshake runs the exchange, offering clientPort (and clientPort+1) for the media stream.
// Nothing is sent once the Playing state has been reached.
func (c *HandshakeClient) Handshake(ctx context.Context, clientPort uint16) (sess Session, err error) {
	if c.state != StateConnected {
		return sess, fmt.Errorf("handshake already in state %s", c.state)
	}
	stop := context.AfterFunc(ctx, func() {
		c.conn.SetDeadline(time.Now()) // unblock any pending read or write
	})
	defer stop()

	c.log.Info("starting session handshake", "url", c.baseURL)

	if _, err = c.advisory(c.roundTrip(ctx, base.Options, c.baseURL, nil, StateOptionsSent)); err != nil {
		return sess, err
	}

	res, err := c.advisory(c.roundTrip(ctx, base.Describe, c.baseURL, base.Header{
		"Accept": base.HeaderValue{"application/sdp"},
	}, StateDescribeSent))
	if err != nil {
		return sess, err
	}
	setupURL := c.baseURL + "/" + defaultTrack
	if res.StatusCode >= 200 && res.StatusCode <= 299 {
		setupURL = c.trackURL(res.Body)
	}

	res, err = c.roundTrip(ctx, base.Setup, setupURL, base.Header{
		"Transport": base.HeaderValue{fmt.Sprintf("RTP/AVP/UDP;unicast;client_port=%d-%d", clientPort, clientPort+1)},
	}, StateSetupSent)
	if err != nil {
		return sess, err
	}
	port, err := ParseServerPort(res.Header)
	if err != nil {
		return sess, &ProtocolError{Step: string(base.Setup), Status: int(res.StatusCode), Err: err}
	}
	token := ParseSessionToken(res.Header)
	if token == "" {
		c.log.Warn("SETUP response carried no session id, continuing without one")
	}
	c.state = StateNegotiated
	c.log.Info("media port negotiated", "client_port", clientPort, "server_port", port)

	playHeader := base.Header{
		"Range":   base.HeaderValue{"npt=0.000-"},
		"Session": base.HeaderValue{token},
	}
	if _, err = c.roundTrip(ctx, base.Play, c.baseURL, playHeader, StateNegotiated); err != nil {
		return sess, err
	}
	c.state = StatePlaying
	c.log.Info("session handshake complete")

	host, _, _ := net.SplitHostPort(c.conn.RemoteAddr().String())
	return Session{
		MediaPort:  port,
		Token:      token,
		ServerHost: host,
		ClientPort: clientPort,
	}, nil
}

// roundTrip sends one request and reads its response. The state advances as soon as the request is written.
func (c *HandshakeClient) roundTrip(ctx context.Context, method base.Method, rawURL string, header base.Header, sent HandshakeState) (*base.Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	u, err := base.ParseURL(rawURL)
	if err != nil {
		return nil, &ProtocolError{Step: string(method), Err: err}
	}
	if header == nil {
		header = base.Header{}
	}
	c.cseq++
	header["CSeq"] = base.HeaderValue{strconv.Itoa(c.cseq)}
	if c.userAgent != "" {
		header["User-Agent"] = base.HeaderValue{c.userAgent}
	}
	req := base.Request{Method: method, URL: u, Header: header}
	buf, err := req.Marshal()
	if err != nil {
		return nil, &ProtocolError{Step: string(method), Err: err}
	}

	c.conn.SetDeadline(c.deadline(ctx))
	if _, err := c.conn.Write(buf); err != nil {
		return nil, c.ioError(ctx, "send", err)
	}
	c.state = sent
	c.log.Debug("request sent", "method", method, "cseq", c.cseq)

	var res base.Response
	if err := res.Unmarshal(c.br); err != nil {
		if isIOError(err) {
			return nil, c.ioError(ctx, "recv", err)
		}
		return nil, &ProtocolError{Step: string(method), Err: err}
	}
	if res.StatusCode < 200 || res.StatusCode > 299 {
		return &res, &ProtocolError{Step: string(method), Status: int(res.StatusCode), Err: errors.New(res.StatusMessage)}
	}
	return &res, nil
}

// advisory downgrades a refused status to a warning for steps whose reply
// carries nothing the session needs.
func (c *HandshakeClient) advisory(res *base.Response, err error) (*base.Response, error) {
	if pe, ok := IsProtocolError(err); ok && pe.Status != 0 && res != nil {
		c.log.Warn("drone refused request, continuing", "step", pe.Step, "status", pe.Status)
		return res, nil
	}
	return res, err
}

func (c *HandshakeClient) deadline(ctx context.Context) time.Time {
	d := time.Now().Add(c.readTimeout)
	if cd, ok := ctx.Deadline(); ok && cd.Before(d) {
		return cd
	}
	return d
}

func (c *HandshakeClient) ioError(ctx context.Context, op string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if dl, ok := ctx.Deadline(); ok && !time.Now().Before(dl) {
		return context.DeadlineExceeded
	}
	return &TransportError{Op: op, Addr: c.conn.RemoteAddr().String(), Err: err}
}

// isIOError separates connection failures from malformed responses
func isIOError(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) || errors.Is(err, net.ErrClosed) ||
		errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF)
}

// trackURL picks the SETUP target from the DESCRIBE body, falling back to the default track.
func (c *HandshakeClient) trackURL(body []byte) string {
	fallback := c.baseURL + "/" + defaultTrack
	if len(body) == 0 {
		return fallback
	}
	var sd sdp.SessionDescription
	if err := sd.Unmarshal(body); err != nil {
		c.log.Debug("DESCRIBE body is not usable SDP", "err", err)
		return fallback
	}
	for _, md := range sd.MediaDescriptions {
		if md.MediaName.Media != "video" {
			continue
		}
		ctrl, ok := md.Attribute("control")
		switch {
		case !ok || ctrl == "" || ctrl == "*":
			return fallback
		case strings.HasPrefix(ctrl, "rtsp://"):
			return ctrl
		default:
			return c.baseURL + "/" + strings.TrimPrefix(ctrl, "/")
		}
	}
	return fallback
}

// Watch keeps the session connection open for the lifetime of the flight.
// Anything the drone sends is discarded; if the drone closes the connection
// it is logged and the control stream carries on regardless.
func (c *HandshakeClient) Watch(running *RunningFlag) {
	buf := make([]byte, 1024)
	for running.Running() {
		c.conn.SetReadDeadline(time.Now().Add(c.readTimeout))
		n, err := c.br.Read(buf)
		if err != nil {
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				continue
			}
			if running.Running() {
				c.log.Warn("session connection closed by drone", "err", err)
			}
			return
		}
		c.log.Debug("ignoring data on session connection", "bytes", n)
	}
}

// Close closes the session connection.
func (c *HandshakeClient) Close() error {
	return c.conn.Close()
}

// ParseServerPort returns the first port of the server_port field in a Transport header.
// A range such as 53796-53797 yields 53796.
func ParseServerPort(h base.Header) (uint16, error) {
	values, ok := h["Transport"]
	if !ok || len(values) == 0 {
		return 0, ErrNoTransportHeader
	}
	for _, v := range values {
		for _, field := range strings.Split(v, ";") {
			key, val, found := strings.Cut(strings.TrimSpace(field), "=")
			if !found || key != "server_port" {
				continue
			}
			first, _, _ := strings.Cut(val, "-")
			port, err := strconv.ParseUint(strings.TrimSpace(first), 10, 16)
			if err != nil || port == 0 {
				return 0, fmt.Errorf("%w: %q", ErrNoServerPort, val)
			}
			return uint16(port), nil
		}
	}
	return 0, ErrNoServerPort
}

// ParseSessionToken returns the session id from a Session header, verbatim
// up to the first whitespace, or "" if there is none.
func ParseSessionToken(h base.Header) string {
	for _, v := range h["Session"] {
		if fields := strings.Fields(v); len(fields) > 0 {
			return fields[0]
		}
	}
	return ""
}
