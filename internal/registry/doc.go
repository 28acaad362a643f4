// Package registry is the table of live sessions keyed by session ID.
//
// One mutex guards the map and ID generation. Per-session fields are
// guarded by the session itself, so holding the registry lock never
// requires a session lock except through the callback of ForEach.
package registry
