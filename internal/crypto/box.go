package crypto

import (
	"crypto/rand"
	"errors"
	"fmt"

	"golang.org/x/crypto/curve25519"
	"golang.org/x/crypto/nacl/box"

	"hostlink/internal/util/memzero"
)

// KeySize is the length of public and private keys.
const KeySize = 32

// Overhead is the number of bytes Seal adds to a message.
const Overhead = box.AnonymousOverhead

var (
	// ErrDecrypt is returned when a sealed box fails authentication.
	ErrDecrypt = errors.New("crypto: decrypt failed validity check")
	// ErrKeySize is returned for public keys of the wrong length.
	ErrKeySize = errors.New("crypto: invalid public key size")
)

// PublicKey is an X25519 public key.
type PublicKey [KeySize]byte

// Slice returns the key as a []byte.
func (k PublicKey) Slice() []byte { return k[:] }

// PrivateKey is an X25519 private key.
type PrivateKey [KeySize]byte

// KeyPair holds the server or host key material.
type KeyPair struct {
	Public  PublicKey
	Private PrivateKey
}

// GenerateKeyPair returns a fresh X25519 key pair.
func GenerateKeyPair() (KeyPair, error) {
	pub, priv, err := box.GenerateKey(rand.Reader)
	if err != nil {
		return KeyPair{}, err
	}
	return KeyPair{Public: *pub, Private: *priv}, nil
}

// KeyPairFromPrivate rebuilds a key pair from a stored private key.
func KeyPairFromPrivate(priv [KeySize]byte) (KeyPair, error) {
	pub, err := curve25519.X25519(priv[:], curve25519.Basepoint)
	if err != nil {
		return KeyPair{}, err
	}
	kp := KeyPair{Private: priv}
	copy(kp.Public[:], pub)
	return kp, nil
}

// ParsePublicKey validates and copies a received public key.
func ParsePublicKey(b []byte) (PublicKey, error) {
	var k PublicKey
	if len(b) != KeySize {
		return k, fmt.Errorf("%w: got %d bytes", ErrKeySize, len(b))
	}
	copy(k[:], b)
	return k, nil
}

// Seal encrypts msg so that only the holder of to's private key can open it.
func Seal(msg []byte, to PublicKey) ([]byte, error) {
	pub := [KeySize]byte(to)
	return box.SealAnonymous(nil, msg, &pub, rand.Reader)
}

// Open decrypts a sealed box addressed to kp and checks its integrity.
func Open(sealed []byte, kp KeyPair) ([]byte, error) {
	pub := [KeySize]byte(kp.Public)
	priv := [KeySize]byte(kp.Private)
	defer memzero.Zero(priv[:])

	out, ok := box.OpenAnonymous(nil, sealed, &pub, &priv)
	if !ok {
		return nil, ErrDecrypt
	}
	return out, nil
}

// Wipe clears the private half of kp.
func (kp *KeyPair) Wipe() { memzero.Zero(kp.Private[:]) }
