// Package fieldvault protects text fields at rest with envelope encryption.
//
// Each value is encrypted under its own single-use 256-bit data key, and the
// data key is wrapped under a process-wide master secret that the operator
// supplies as base64. Rotating the master secret therefore only rewraps data
// keys and never touches payload ciphertext. This package is the surface for
// library consumers: payload encryption and decryption, the compact storage
// codec, and the advisory PII redactor. The batch tooling (key rotation,
// plaintext migration, audit verification) lives behind the cmd/app CLI and
// works against a document store.
//
// The write path is EncryptPayload followed by FormatForStorage; the read
// path is ParseFromStorage followed by DecryptPayload. The compact record
// produced by FormatForStorage is the stable on-disk contract shared with
// every other reader of the store.
package fieldvault

import (
	"encoding/base64"
	"fmt"

	cryptoDomain "github.com/brightchat/fieldvault/internal/crypto/domain"
	cryptoService "github.com/brightchat/fieldvault/internal/crypto/service"
	cryptoUseCase "github.com/brightchat/fieldvault/internal/crypto/usecase"
	"github.com/brightchat/fieldvault/internal/redact"
)

// DefaultKeyVersion is the version label stamped on wrapped data keys when
// the caller does not supply one. It matches the MASTER_KEY_VERSION default
// used by the batch tooling.
const DefaultKeyVersion = "v1"

// Errors returned by this package. They alias the internal taxonomy so
// callers can branch with errors.Is without importing internal packages.
var (
	// ErrMasterSecretNotSet indicates an empty master secret.
	ErrMasterSecretNotSet = cryptoDomain.ErrMasterSecretNotSet

	// ErrInvalidMasterSecret indicates a master secret that is not valid
	// base64 or does not decode to exactly 32 bytes.
	ErrInvalidMasterSecret = cryptoDomain.ErrInvalidMasterSecret

	// ErrDecryptionFailed indicates a wrong secret or a tampered field. The
	// specific cause is deliberately not disclosed.
	ErrDecryptionFailed = cryptoDomain.ErrDecryptionFailed

	// ErrLegacyRecord indicates a payload that predates data key wrapping and
	// cannot be decrypted or rotated; it must be re-encrypted from a trusted
	// plaintext source.
	ErrLegacyRecord = cryptoDomain.ErrLegacyRecord

	// ErrMalformedRecord indicates a payload or stored record with missing,
	// mismatched, or invalid base64 fields.
	ErrMalformedRecord = cryptoDomain.ErrMalformedRecord
)

// The cipher services are stateless, so one shared use case serves every
// call. RedactPII is always on here; the REDACTION_ENABLED flag only gates
// the CLI redact command.
var (
	payloads = cryptoUseCase.NewPayloadUseCase(
		cryptoService.NewPayloadCipher(),
		cryptoService.NewDataKeyManager(),
	)
	redactor = redact.New(true)
)

// EncryptedPayload is one envelope-encrypted value with every binary field
// encoded as standard base64, ready to cross process or serialization
// boundaries.
//
// The payload fields (Ciphertext, CiphertextNonce, CiphertextTag) never
// change after encryption. The wrap fields (WrappedDataKey, WrapNonce,
// WrapTag, KeyVersion) are replaced only by key rotation. A payload without
// WrapNonce and WrapTag is legacy: it predates data key wrapping and cannot
// be decrypted by this module.
type EncryptedPayload struct {
	Ciphertext      string
	CiphertextNonce string
	CiphertextTag   string
	WrappedDataKey  string
	WrapNonce       string
	WrapTag         string
	KeyVersion      string
}

// IsLegacy reports whether the payload lacks the wrap fields needed to
// unwrap its data key.
func (p *EncryptedPayload) IsLegacy() bool {
	return p.WrapNonce == "" && p.WrapTag == ""
}

// EncryptPayload envelope-encrypts plaintext under a fresh single-use data
// key wrapped by the given master secret.
//
// The master secret must be standard base64 and decode to exactly 32 bytes.
// keyVersion labels the wrapped data key so rotation runs can tell which
// secret wrapped it without attempting an unwrap; an empty keyVersion
// defaults to DefaultKeyVersion. Every call generates a new data key and
// fresh nonces, so encrypting the same plaintext twice never yields the same
// ciphertext.
func EncryptPayload(plaintext, masterSecretB64, keyVersion string) (*EncryptedPayload, error) {
	if keyVersion == "" {
		keyVersion = DefaultKeyVersion
	}

	secret, err := cryptoDomain.ParseMasterSecret(masterSecretB64, keyVersion)
	if err != nil {
		return nil, err
	}
	defer secret.Close()

	encrypted, err := payloads.Encrypt(plaintext, secret)
	if err != nil {
		return nil, err
	}

	return fromDomain(encrypted), nil
}

// DecryptPayload recovers the plaintext of an encrypted payload.
//
// It fails with ErrDecryptionFailed when the secret is not the one that
// wrapped the payload's data key or when any field was tampered with, and
// with ErrLegacyRecord for payloads without wrap fields. The error never
// says which check failed.
func DecryptPayload(payload *EncryptedPayload, masterSecretB64 string) (string, error) {
	if payload == nil {
		return "", fmt.Errorf("%w: payload is nil", ErrMalformedRecord)
	}

	secret, err := cryptoDomain.ParseMasterSecret(masterSecretB64, payload.KeyVersion)
	if err != nil {
		return "", err
	}
	defer secret.Close()

	domainPayload, err := payload.toDomain()
	if err != nil {
		return "", err
	}

	return payloads.Decrypt(domainPayload, secret)
}

// FormatForStorage serializes a payload into the compact field map persisted
// in the document store, validating every base64 field on the way. Wrap
// fields and the version label are omitted when empty so a legacy payload
// keeps its legacy shape.
func FormatForStorage(payload *EncryptedPayload) (map[string]any, error) {
	if payload == nil {
		return nil, fmt.Errorf("%w: payload is nil", ErrMalformedRecord)
	}

	domainPayload, err := payload.toDomain()
	if err != nil {
		return nil, err
	}

	return cryptoDomain.FormatForStorage(domainPayload), nil
}

// ParseFromStorage deserializes a compact record back into a payload.
//
// Records without wrap nonce and wrap tag parse as legacy payloads with
// those fields empty rather than failing, so callers can detect them and
// branch. A record carrying only one of the two wrap fields fails with
// ErrMalformedRecord, as does any record with missing or invalid base64
// fields.
func ParseFromStorage(record map[string]any) (*EncryptedPayload, error) {
	domainPayload, err := cryptoDomain.ParseFromStorage(record)
	if err != nil {
		return nil, err
	}

	return fromDomain(domainPayload), nil
}

// RedactPII substitutes email addresses, phone numbers and 16-digit card
// numbers in text with fixed placeholders. This is advisory hygiene for logs
// and analytics, not a security boundary; text that must stay confidential
// belongs in an encrypted field.
func RedactPII(text string) string {
	return redactor.Redact(text)
}

// toDomain converts the base64 fields into the internal byte form by routing
// through the storage codec, so base64 validation and the legacy variant
// decision live in exactly one place.
func (p *EncryptedPayload) toDomain() (*cryptoDomain.EncryptedPayload, error) {
	record := map[string]any{
		cryptoDomain.FieldCiphertext:      p.Ciphertext,
		cryptoDomain.FieldCiphertextNonce: p.CiphertextNonce,
		cryptoDomain.FieldCiphertextTag:   p.CiphertextTag,
		cryptoDomain.FieldWrappedDataKey:  p.WrappedDataKey,
	}

	if p.WrapNonce != "" {
		record[cryptoDomain.FieldWrapNonce] = p.WrapNonce
	}
	if p.WrapTag != "" {
		record[cryptoDomain.FieldWrapTag] = p.WrapTag
	}
	if p.KeyVersion != "" {
		record[cryptoDomain.FieldKeyVersion] = p.KeyVersion
	}

	return cryptoDomain.ParseFromStorage(record)
}

// fromDomain encodes the internal byte form back to the base64 surface.
// Encoding an empty field yields an empty string, so legacy payloads keep
// empty wrap fields.
func fromDomain(payload *cryptoDomain.EncryptedPayload) *EncryptedPayload {
	return &EncryptedPayload{
		Ciphertext:      base64.StdEncoding.EncodeToString(payload.Ciphertext),
		CiphertextNonce: base64.StdEncoding.EncodeToString(payload.CiphertextNonce),
		CiphertextTag:   base64.StdEncoding.EncodeToString(payload.CiphertextTag),
		WrappedDataKey:  base64.StdEncoding.EncodeToString(payload.WrappedDataKey),
		WrapNonce:       base64.StdEncoding.EncodeToString(payload.WrapNonce),
		WrapTag:         base64.StdEncoding.EncodeToString(payload.WrapTag),
		KeyVersion:      payload.KeyVersion,
	}
}
