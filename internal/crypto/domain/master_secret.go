// Package domain defines the core cryptographic domain models for envelope
// encryption of stored text fields.
//
// The hierarchy has two tiers: a process-wide master secret wraps single-use
// data keys, and each data key encrypts exactly one payload. Rotating the
// master secret therefore only rewraps data keys and never touches payload
// ciphertext. All keys are 256-bit AES-256-GCM keys with 128-bit nonces and
// 128-bit tags.
package domain

import (
	"encoding/base64"
	"fmt"
)

// MasterSecret is the top-level symmetric key that wraps and unwraps data
// keys. It never encrypts payloads directly and is never persisted by this
// core; an external operator supplies it as base64 through configuration.
//
// Version is an operator-chosen label (e.g. "v1", "2026-q1") stored alongside
// wrapped data keys so rotation runs can tell which secret wrapped a record
// without attempting an unwrap.
type MasterSecret struct {
	Version string
	Key     []byte
}

// ParseMasterSecret decodes a base64-encoded master secret and validates it.
//
// The secret must be standard base64 and decode to exactly 32 bytes; anything
// else is a configuration error that must abort before any cryptographic
// operation. The error never includes the supplied value.
func ParseMasterSecret(encoded, version string) (*MasterSecret, error) {
	if encoded == "" {
		return nil, ErrMasterSecretNotSet
	}

	key, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: not valid base64", ErrInvalidMasterSecret)
	}
	if len(key) != KeySize {
		Zero(key)
		return nil, fmt.Errorf(
			"%w: must decode to %d bytes, got %d",
			ErrInvalidMasterSecret,
			KeySize,
			len(key),
		)
	}

	return &MasterSecret{Version: version, Key: key}, nil
}

// Valid reports whether the secret carries usable key material.
func (m *MasterSecret) Valid() bool {
	return m != nil && len(m.Key) == KeySize
}

// Close zeroes the key material. The secret must not be used afterwards.
func (m *MasterSecret) Close() {
	if m == nil {
		return
	}
	Zero(m.Key)
	m.Key = nil
}
