// Package service provides the cryptographic services for envelope
// encryption: an AES-256-GCM AEAD cipher with split authentication tags, a
// payload cipher bound to the payload AAD context, and a data key manager
// that generates, wraps, and unwraps single-use data keys.
package service

import (
	cryptoDomain "github.com/brightchat/fieldvault/internal/crypto/domain"
)

// AEAD defines authenticated encryption with associated data over the record
// layout this core persists: ciphertext, nonce, and tag stored as three
// separate fields.
type AEAD interface {
	// Encrypt encrypts plaintext bound to aad and returns the ciphertext,
	// the randomly generated nonce, and the authentication tag.
	Encrypt(plaintext, aad []byte) (ciphertext, nonce, tag []byte, err error)

	// Decrypt authenticates and decrypts ciphertext. It fails if any of
	// ciphertext, nonce, tag, or aad differ from encryption time.
	Decrypt(ciphertext, nonce, tag, aad []byte) ([]byte, error)
}

// PayloadCipher encrypts and decrypts one payload under a single-use data
// key, binding the payload AAD context.
type PayloadCipher interface {
	// Encrypt encrypts plaintext under dataKey with a fresh random nonce.
	Encrypt(plaintext, dataKey []byte) (ciphertext, nonce, tag []byte, err error)

	// Decrypt recovers the plaintext, failing with ErrDecryptionFailed on
	// any tamper, truncation, or wrong-key condition.
	Decrypt(ciphertext, nonce, tag, dataKey []byte) ([]byte, error)
}

// DataKeyManager manages the lifecycle of single-use data keys: generation,
// wrapping under a master secret, and unwrapping for decryption or rotation.
// Wrapping binds the data key AAD context so a wrapped key can never be
// mistaken for an encrypted payload.
type DataKeyManager interface {
	// Generate produces a random 256-bit data key already wrapped under the
	// master secret. The returned key carries both forms; callers must Close
	// it once the payload operation completes.
	Generate(secret *cryptoDomain.MasterSecret) (*cryptoDomain.DataKey, error)

	// Wrap encrypts existing data key material under the master secret with
	// a fresh nonce. Used by key rotation to rewrap a key it just unwrapped.
	Wrap(dataKey []byte, secret *cryptoDomain.MasterSecret) (wrapped, nonce, tag []byte, err error)

	// Unwrap recovers the plaintext data key, failing with
	// ErrDecryptionFailed on tamper or wrong secret.
	Unwrap(wrapped, nonce, tag []byte, secret *cryptoDomain.MasterSecret) ([]byte, error)
}
