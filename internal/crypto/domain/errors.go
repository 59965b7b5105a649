package domain

import (
	"github.com/brightchat/fieldvault/internal/errors"
)

// Cryptographic operation error definitions.
//
// These domain-specific errors wrap standard errors from internal/errors so
// callers can branch on the error class without learning cipher internals.
// None of them ever carries key material, plaintext, or ciphertext bytes.
var (
	// ErrMasterSecretNotSet indicates no master secret was supplied.
	//
	// Fatal: returned before any cryptographic operation runs. Operators must
	// provide MASTER_SECRET (and NEW_MASTER_SECRET for rotation runs).
	ErrMasterSecretNotSet = errors.Wrap(errors.ErrConfiguration, "master secret not set")

	// ErrInvalidMasterSecret indicates the master secret is not valid base64
	// or does not decode to exactly 32 bytes.
	//
	// Fatal: a short or malformed secret must never reach the cipher.
	ErrInvalidMasterSecret = errors.Wrap(errors.ErrConfiguration, "invalid master secret")

	// ErrInvalidKeySize indicates a data key is not exactly 32 bytes.
	ErrInvalidKeySize = errors.Wrap(errors.ErrInvalidInput, "invalid key size")

	// ErrDecryptionFailed indicates an authenticated decryption failed.
	//
	// This covers a wrong secret, a tampered ciphertext, nonce, or tag, and
	// corrupted stored bytes. The specific cause is deliberately not
	// disclosed to prevent information leakage.
	ErrDecryptionFailed = errors.Wrap(errors.ErrInvalidInput, "decryption failed")

	// ErrLegacyRecord indicates a record predates data key wrapping and lacks
	// the wrap nonce/tag needed to unwrap its data key safely.
	//
	// Such records cannot be decrypted or rotated; they must be re-encrypted
	// from a trusted plaintext source instead.
	ErrLegacyRecord = errors.Wrap(errors.ErrInvalidInput, "legacy record lacks wrap fields")

	// ErrMalformedRecord indicates a stored record is structurally invalid:
	// required fields are missing, not strings, or not valid base64.
	ErrMalformedRecord = errors.Wrap(errors.ErrInvalidInput, "malformed encrypted record")
)
