// Package commands defines the hostlinkd CLI and wires dependencies for subcommands.
//
// Commands
//
//   - serve   Run the TCP and UDP instances with the operator console
//   - state   Print the persisted state file
//   - key     Create, rotate or fingerprint the persistent server key
//   - probe   Act as a host: discover, connect and exercise a server
//
// # Implementation
//
// The root command loads hostlink.toml over built-in defaults and applies
// flag overrides before any subcommand runs. serve builds the full
// dependency graph through app.NewWire; the other commands only touch the
// pieces they need.
package commands
