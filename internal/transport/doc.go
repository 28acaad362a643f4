// Package transport is the socket layer under the secure channel.
//
// It provides the Sockets capability (listen, listen-packet, dial) so the
// server can run over something other than the host network stack in tests,
// and the length-prefixed framing shared by TCP and UDP:
//
//	[4-byte little-endian length][payload]
//
// Per-call timeouts are applied as deadlines and cleared again before the
// call returns; a connection never keeps a deadline between calls.
package transport
