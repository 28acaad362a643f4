// Package dispatch interprets validated inbound requests.
//
// Perform decides, per action and transport, what the server does and
// whether anything happened. Requests that arrive on the wrong transport,
// for a missing session, or with an action the server does not handle are
// refused without side effects.
package dispatch
