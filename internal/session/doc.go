// Package session holds the server-side record of one connected host.
//
// Every mutable field sits behind the session's own mutex. The receive loop
// is the only reader of the socket; it hands keep-alive echoes and awaited
// responses to the waiting goroutine through one-shot channels. Responses go
// to the oldest waiter for the same action, so no two goroutines ever race
// for the same inbound frame.
package session
