// Package usecase implements the envelope encryption workflow for payloads.
//
// The use case layer composes the cipher services into the three operations
// the rest of the system needs: encrypting a plaintext into a fully wrapped
// payload, decrypting a wrapped payload back to plaintext, and rewrapping a
// payload's data key under a new master secret during rotation. It owns the
// lifecycle of plaintext data keys, which exist only for the duration of a
// single call and are zeroed before returning.
package usecase

import (
	cryptoDomain "github.com/brightchat/fieldvault/internal/crypto/domain"
)

// PayloadUseCase orchestrates envelope encryption of text payloads.
//
// Every Encrypt call generates a fresh single-use data key, so two
// encryptions of the same plaintext never share key material or ciphertext.
// Decrypt and Rewrap refuse legacy payloads (records that predate envelope
// encryption and carry no wrap fields) with ErrLegacyRecord; callers decide
// whether to skip or surface those.
type PayloadUseCase interface {
	// Encrypt envelope-encrypts plaintext under a fresh data key wrapped by
	// the given master secret. The returned payload carries the secret's
	// version label so later runs can tell which secret wrapped it.
	Encrypt(plaintext string, secret *cryptoDomain.MasterSecret) (*cryptoDomain.EncryptedPayload, error)

	// Decrypt unwraps the payload's data key with the given master secret and
	// returns the original plaintext. Returns ErrLegacyRecord for payloads
	// without wrap fields and ErrDecryptionFailed when the secret does not
	// match or any field was tampered with.
	Decrypt(payload *cryptoDomain.EncryptedPayload, secret *cryptoDomain.MasterSecret) (string, error)

	// Rewrap unwraps the payload's data key with oldSecret and wraps it again
	// with newSecret, updating the wrap fields and version label in place.
	// The payload ciphertext, nonce and tag are never touched.
	Rewrap(payload *cryptoDomain.EncryptedPayload, oldSecret, newSecret *cryptoDomain.MasterSecret) error
}
