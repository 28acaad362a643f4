// Package server is the connection lifecycle manager.
//
// A Server owns one TCP instance that accepts host sessions and one UDP
// instance that answers discovery. Each accepted connection runs on its own
// goroutine through key exchange, identity, state restore and activation,
// after which a single receive loop reads the socket and a keep-alive
// monitor probes it. Sessions leave through Evict, which runs exactly once
// per session.
package server
