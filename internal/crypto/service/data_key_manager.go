package service

import (
	"crypto/rand"
	"fmt"

	cryptoDomain "github.com/brightchat/fieldvault/internal/crypto/domain"
)

// DataKeyManagerService implements DataKeyManager for the two-tier envelope
// scheme: the master secret wraps data keys, data keys encrypt payloads.
//
// Wrapping uses the same AES-256-GCM construction as payload encryption but
// binds the "data-key" AAD context, so the two ciphertext roles are mutually
// unusable even under the same key.
type DataKeyManagerService struct{}

// NewDataKeyManager creates a new DataKeyManagerService.
func NewDataKeyManager() *DataKeyManagerService {
	return &DataKeyManagerService{}
}

// Generate produces a cryptographically random 256-bit data key and wraps it
// under the master secret with a fresh nonce.
//
// The returned DataKey carries the plaintext key material for the one
// payload encryption it exists for; callers must Close it immediately after.
func (km *DataKeyManagerService) Generate(
	secret *cryptoDomain.MasterSecret,
) (*cryptoDomain.DataKey, error) {
	if !secret.Valid() {
		return nil, cryptoDomain.ErrInvalidMasterSecret
	}

	key := make([]byte, cryptoDomain.KeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("failed to generate data key: %w", err)
	}

	wrapped, nonce, tag, err := km.Wrap(key, secret)
	if err != nil {
		cryptoDomain.Zero(key)
		return nil, err
	}

	return &cryptoDomain.DataKey{
		Key:       key,
		Wrapped:   wrapped,
		WrapNonce: nonce,
		WrapTag:   tag,
	}, nil
}

// Wrap encrypts existing data key material under the master secret. Key
// rotation uses it to rewrap a key it just unwrapped with the old secret; a
// fresh nonce is generated on every call.
func (km *DataKeyManagerService) Wrap(
	dataKey []byte,
	secret *cryptoDomain.MasterSecret,
) (wrapped, nonce, tag []byte, err error) {
	if !secret.Valid() {
		return nil, nil, nil, cryptoDomain.ErrInvalidMasterSecret
	}
	if len(dataKey) != cryptoDomain.KeySize {
		return nil, nil, nil, cryptoDomain.ErrInvalidKeySize
	}

	aead, err := NewAESGCM(secret.Key)
	if err != nil {
		return nil, nil, nil, err
	}
	return aead.Encrypt(dataKey, []byte(cryptoDomain.DataKeyContext))
}

// Unwrap recovers the plaintext data key wrapped by Generate or Wrap.
//
// The caller owns the returned bytes and must zero them after use. Tampered
// wrap fields and wrong secrets both fail with ErrDecryptionFailed.
func (km *DataKeyManagerService) Unwrap(
	wrapped, nonce, tag []byte,
	secret *cryptoDomain.MasterSecret,
) ([]byte, error) {
	if !secret.Valid() {
		return nil, cryptoDomain.ErrInvalidMasterSecret
	}

	aead, err := NewAESGCM(secret.Key)
	if err != nil {
		return nil, err
	}

	dataKey, err := aead.Decrypt(wrapped, nonce, tag, []byte(cryptoDomain.DataKeyContext))
	if err != nil {
		return nil, cryptoDomain.ErrDecryptionFailed
	}
	return dataKey, nil
}
