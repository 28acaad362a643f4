// Package keepalive probes a session periodically and evicts it when a
// probe goes unanswered.
package keepalive
