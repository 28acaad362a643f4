// Package store provides file-based persistence for hostlink.
//
// It contains concrete implementations of the domain storage interfaces:
//   - StateFileStore: the JSON state file holding server info and the
//     client list keyed by machine ID.
//   - KeyFileStore: the server private key sealed under a passphrase.
//
// Writes go through a temp file and rename so a crash never leaves a
// half-written document. All methods are safe for concurrent use.
package store
