/*Package wifidrone provides an unofficial, easy-to-use, standalone API for the common family of
toy Wi-Fi camera drones that are controlled by a stream of 9-byte "heartbeat" packets.

Disclaimer

The package has been developed by examining data packets sent to/from the drone and its phone app.
It will probably be extended as more knowledge of the drone's protocol is obtained.

Use this package at your own risk.  The author(s) is/are in no way responsible for any damage caused either to or by the
drone when using this software.

Features

The following features have been implemented...
  * Video session negotiation (OPTIONS, DESCRIBE, SETUP, PLAY) over the drone's RTSP-like port
  * Fixed-cadence heartbeat stream with a once-per-second keepalive
  * Prioritised, self-expiring flight commands, eg. Launch(), Land(), Panic()
  * Macro-level flight control, eg. Forward(), YawLeft(), or arbitrary Sticks()
  * Video relay to a local player such as ffplay or VLC
  * Session statistics, single-shot via Stats() or streamed via StreamStats()
An example console application using this package is in cmd/wifidrone.

Concepts

Connection Types

The drone provides three connections: a TCP 'session' connection used once to negotiate the video stream,
a UDP 'control' connection to which heartbeats are sent every 100ms, and a UDP 'video' stream sent back
to the port pair offered during negotiation.  Fly() sets up all three and runs until stopped.
If negotiation fails nothing is ever sent on the control connection.

Commands

A command is a heartbeat payload, a duration and a priority.  The drone repeats the active command on every
heartbeat until it expires, then falls back to the standby payload.  A new command replaces the active one only if
its priority is at least as high, so Panic() cannot be cancelled by a stray movement key.
Only the most recent command submitted between two heartbeats is considered.

*/
package wifidrone
