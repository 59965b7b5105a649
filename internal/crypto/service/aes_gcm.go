package service

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"

	cryptoDomain "github.com/brightchat/fieldvault/internal/crypto/domain"
)

// AESGCMCipher implements the AEAD interface using AES-256-GCM with a
// 128-bit nonce and the authentication tag carried as a separate field.
//
// The persisted record layout stores ciphertext, nonce, and tag in three
// distinct fields, so Encrypt splits the tag off the sealed output and
// Decrypt joins it back before opening. The 16-byte nonce (instead of Go's
// 12-byte GCM default) is part of that layout contract.
//
// Security properties:
//   - 256-bit key, 16-byte random nonce per operation, 16-byte tag
//   - associated data binds each ciphertext to its semantic role
//   - decryption fails closed: no plaintext is returned on tag mismatch
//
// The cipher instance is stateless and safe for concurrent use.
type AESGCMCipher struct {
	aead cipher.AEAD
}

// NewAESGCM creates an AES-256-GCM cipher over a 32-byte key. Keys of any
// other length are rejected before touching the cipher.
func NewAESGCM(key []byte) (*AESGCMCipher, error) {
	if len(key) != cryptoDomain.KeySize {
		return nil, cryptoDomain.ErrInvalidKeySize
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create AES cipher: %w", err)
	}

	aead, err := cipher.NewGCMWithNonceSize(block, cryptoDomain.NonceSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	return &AESGCMCipher{aead: aead}, nil
}

// Encrypt encrypts plaintext bound to aad under a fresh random nonce.
//
// Empty plaintext is valid: the ciphertext is zero-length but the tag still
// authenticates it together with the aad. Nonces come from crypto/rand and
// are never reused because every data key encrypts exactly one payload.
func (a *AESGCMCipher) Encrypt(plaintext, aad []byte) (ciphertext, nonce, tag []byte, err error) {
	nonce = make([]byte, cryptoDomain.NonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, nil, nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	sealed := a.aead.Seal(nil, nonce, plaintext, aad)

	// Seal appends the tag to the ciphertext; the record layout stores them
	// separately.
	split := len(sealed) - cryptoDomain.TagSize
	return sealed[:split], nonce, sealed[split:], nil
}

// Decrypt authenticates and decrypts ciphertext.
//
// Nonce and tag lengths are validated up front: GCM panics on a wrong-sized
// nonce, and a wrong-sized tag can only mean a truncated or tampered record.
// All failure modes map to ErrDecryptionFailed so callers cannot distinguish
// a wrong key from tampered bytes.
func (a *AESGCMCipher) Decrypt(ciphertext, nonce, tag, aad []byte) ([]byte, error) {
	if len(nonce) != cryptoDomain.NonceSize || len(tag) != cryptoDomain.TagSize {
		return nil, cryptoDomain.ErrDecryptionFailed
	}

	sealed := make([]byte, 0, len(ciphertext)+len(tag))
	sealed = append(sealed, ciphertext...)
	sealed = append(sealed, tag...)

	plaintext, err := a.aead.Open(nil, nonce, sealed, aad)
	if err != nil {
		return nil, cryptoDomain.ErrDecryptionFailed
	}
	return plaintext, nil
}
