// Package app wires application dependencies for the CLI.
//
// It loads Config from a TOML file over built-in defaults, then builds the
// logger, key material, stores, registry and server, exposing them via the
// Wire struct for commands to use.
package app
