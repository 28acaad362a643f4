// Package crypto exposes the asymmetric primitives used by hostlink.
//
// Contents
//
//   - X25519 key pair generation (GenerateKeyPair, KeyPairFromPrivate)
//   - Anonymous sealed boxes addressed to a public key (Seal, Open)
//   - Short public-key fingerprints for display/logging (Fingerprint)
//   - Base64 helpers for persisted key material (B64, FromB64)
//
// # Notes
//
// Open is the validity gate for every inbound frame: NaCl boxes carry a
// Poly1305 tag, so any modified ciphertext fails with ErrDecrypt instead of
// yielding garbage plaintext.
package crypto
