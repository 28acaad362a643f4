package store

// NewFastKeyFileStore uses cheap KDF parameters for tests.
func NewFastKeyFileStore(path string) *KeyFileStore {
	return &KeyFileStore{path: path, kdf: kdfParams{N: 1 << 10, R: 8, P: 1}}
}
