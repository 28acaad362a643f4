package domain

// StateStore persists server info and the per-host client list.
type StateStore interface {
	Load() (State, error)
	Lookup(machineID string) (ClientRecord, bool, error)
	Save(info ServerInfo, records []ClientRecord) error
}

// KeyStore persists the server key pair sealed under a passphrase.
type KeyStore interface {
	SaveKey(passphrase string, priv [32]byte) error
	LoadKey(passphrase string) (priv [32]byte, ok bool, err error)
}
