package store

import (
	"fmt"
	"sync"

	"hostlink/internal/domain"
	"hostlink/internal/util/memzero"
)

const keyLabel = "hostlink/server-key/v1"

// KeyFileStore keeps the server private key sealed on disk.
type KeyFileStore struct {
	path string
	kdf  kdfParams
	mu   sync.Mutex
}

// NewKeyFileStore returns a KeyFileStore writing to path.
func NewKeyFileStore(path string) *KeyFileStore {
	return &KeyFileStore{path: path, kdf: defaultKDF}
}

// SaveKey seals priv under passphrase and writes it with mode 0600.
func (s *KeyFileStore) SaveKey(passphrase string, priv [32]byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := seal(passphrase, priv[:], keyLabel, s.kdf)
	if err != nil {
		return err
	}
	return writeFile(s.path, b, 0o600)
}

// LoadKey returns the stored key. ok is false when no key file exists.
func (s *KeyFileStore) LoadKey(passphrase string) ([32]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var priv [32]byte
	b, err := readFile(s.path)
	if err != nil {
		return priv, false, err
	}
	if b == nil {
		return priv, false, nil
	}
	pt, err := open(passphrase, b, keyLabel)
	if err != nil {
		return priv, false, err
	}
	defer memzero.Zero(pt)
	if len(pt) != len(priv) {
		return priv, false, fmt.Errorf("store: key file holds %d bytes: %w", len(pt), ErrWrongPassphrase)
	}
	copy(priv[:], pt)
	return priv, true, nil
}

var _ domain.KeyStore = (*KeyFileStore)(nil)
