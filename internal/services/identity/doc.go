// Package identity manages the server key pair.
//
// Without a key store the pair is ephemeral and regenerated on every start.
// With one, the private key is sealed under a passphrase that must pass the
// strength policy, and reloaded on later starts.
package identity
