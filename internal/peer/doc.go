// Package peer is the host side of a hostlink session.
//
// It discovers the server over UDP, dials the advertised TCP endpoint,
// exchanges keys, sends its identity and then serves the session: echoing
// keep-alive probes, answering pings and surfacing commands and responses.
// hostlinkd probe and the server tests use it as a reference host.
package peer
