package identity

import (
	"errors"
	"fmt"
	"unicode"

	"hostlink/internal/crypto"
	"hostlink/internal/domain"
)

const (
	// minPassphraseLength defines the minimum number of characters required for a passphrase.
	minPassphraseLength = 12
)

var (
	// ErrWeakPassphrase is returned when the passphrase fails the strength policy.
	ErrWeakPassphrase = fmt.Errorf(
		"passphrase is too weak (must be at least %d characters and include upper, lower, "+
			"number, and symbol)",
		minPassphraseLength,
	)
	// ErrNoPassphrase is returned when a key store is configured without a passphrase.
	ErrNoPassphrase = errors.New("identity: key file configured but no passphrase given")
)

// Service hands out the server key pair. A nil store means ephemeral keys.
type Service struct {
	store domain.KeyStore
}

// New returns a service backed by s, which may be nil.
func New(s domain.KeyStore) *Service { return &Service{store: s} }

// Ephemeral reports whether keys are regenerated on each start.
func (s *Service) Ephemeral() bool { return s.store == nil }

// LoadOrGenerate returns the stored key pair, generating and saving one on
// first use. created reports whether a new key was generated.
func (s *Service) LoadOrGenerate(passphrase string) (kp crypto.KeyPair, created bool, err error) {
	if s.store == nil {
		kp, err = crypto.GenerateKeyPair()
		return kp, true, err
	}
	if passphrase == "" {
		return crypto.KeyPair{}, false, ErrNoPassphrase
	}

	priv, ok, err := s.store.LoadKey(passphrase)
	if err != nil {
		return crypto.KeyPair{}, false, err
	}
	if ok {
		kp, err = crypto.KeyPairFromPrivate(priv)
		return kp, false, err
	}

	if !isSecurePassphrase(passphrase) {
		return crypto.KeyPair{}, false, ErrWeakPassphrase
	}
	kp, err = crypto.GenerateKeyPair()
	if err != nil {
		return crypto.KeyPair{}, false, err
	}
	if err := s.store.SaveKey(passphrase, kp.Private); err != nil {
		return crypto.KeyPair{}, false, err
	}
	return kp, true, nil
}

// Rotate replaces the stored key with a fresh one.
func (s *Service) Rotate(passphrase string) (crypto.KeyPair, error) {
	if s.store == nil {
		return crypto.GenerateKeyPair()
	}
	if !isSecurePassphrase(passphrase) {
		return crypto.KeyPair{}, ErrWeakPassphrase
	}
	kp, err := crypto.GenerateKeyPair()
	if err != nil {
		return crypto.KeyPair{}, err
	}
	if err := s.store.SaveKey(passphrase, kp.Private); err != nil {
		return crypto.KeyPair{}, err
	}
	return kp, nil
}

// Fingerprint returns a short fingerprint of the public key.
func Fingerprint(kp crypto.KeyPair) string { return crypto.Fingerprint(kp.Public) }

// isSecurePassphrase enforces a basic strength policy.
func isSecurePassphrase(passphrase string) bool {
	var hasUpper, hasLower, hasDigit, hasSymbol bool
	if len(passphrase) < minPassphraseLength {
		return false
	}
	for _, r := range passphrase {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsPunct(r), unicode.IsSymbol(r):
			hasSymbol = true
		}
	}
	return hasUpper && hasLower && hasDigit && hasSymbol
}
