package audit

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"

	cryptoDomain "github.com/brightchat/fieldvault/internal/crypto/domain"
	"github.com/brightchat/fieldvault/internal/errors"
)

// signingKeyInfo versions the key derivation so the signing scheme can change
// without old trails verifying against the wrong algorithm.
const signingKeyInfo = "fieldvault-audit-signing-v1"

// ErrSignatureInvalid indicates an entry's signature does not match its
// content, or is missing or unreadable.
var ErrSignatureInvalid = errors.Wrap(errors.ErrInvalidInput, "audit signature invalid")

// Signer signs and verifies trail entries with HMAC-SHA256 under a key
// derived from the master secret.
type Signer struct{}

// NewSigner creates an audit entry signer.
func NewSigner() *Signer {
	return &Signer{}
}

// deriveSigningKey derives a dedicated 32-byte signing key via HKDF-SHA256,
// so the master secret never doubles as a MAC key.
func (s *Signer) deriveSigningKey(secret *cryptoDomain.MasterSecret) ([]byte, error) {
	if !secret.Valid() {
		return nil, cryptoDomain.ErrInvalidMasterSecret
	}

	kdf := hkdf.New(sha256.New, secret.Key, nil, []byte(signingKeyInfo))
	key := make([]byte, cryptoDomain.KeySize)
	if _, err := io.ReadFull(kdf, key); err != nil {
		return nil, fmt.Errorf("failed to derive signing key: %w", err)
	}

	return key, nil
}

// canonicalize converts an entry to a fixed byte representation for signing.
// Variable-length fields are length-prefixed so no two entries share bytes.
// The signature field itself is not part of the representation.
func (s *Signer) canonicalize(entry *Entry) []byte {
	buf := make([]byte, 0, 512)

	buf = appendLengthPrefixed(buf, []byte(entry.RunID))
	buf = appendLengthPrefixed(buf, []byte(entry.Kind))
	buf = appendLengthPrefixed(buf, []byte(entry.Mode))
	buf = appendLengthPrefixed(buf, []byte(entry.KeyVersion))

	buf = appendUint64(buf, uint64(entry.Processed))
	buf = appendUint64(buf, uint64(entry.Changed))
	buf = appendUint64(buf, uint64(entry.Skipped))
	buf = appendUint64(buf, uint64(entry.Errors))

	buf = appendUint64(buf, uint64(len(entry.Collections)))
	for _, coll := range entry.Collections {
		buf = appendLengthPrefixed(buf, []byte(coll.Collection))
		buf = appendUint64(buf, uint64(coll.Processed))
		buf = appendUint64(buf, uint64(coll.Changed))
		buf = appendUint64(buf, uint64(coll.Skipped))
		buf = appendUint64(buf, uint64(coll.Errors))
	}

	buf = appendUint64(buf, uint64(entry.StartedAt.UnixNano()))
	buf = appendUint64(buf, uint64(entry.FinishedAt.UnixNano()))

	return buf
}

// appendLengthPrefixed adds a 4-byte big-endian length followed by the data.
func appendLengthPrefixed(buf, data []byte) []byte {
	length := make([]byte, 4)
	binary.BigEndian.PutUint32(length, uint32(len(data)))
	buf = append(buf, length...)
	buf = append(buf, data...)
	return buf
}

func appendUint64(buf []byte, v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return append(buf, b...)
}

// Sign computes the entry's signature and stores it base64-encoded on the
// entry.
func (s *Signer) Sign(secret *cryptoDomain.MasterSecret, entry *Entry) error {
	key, err := s.deriveSigningKey(secret)
	if err != nil {
		return err
	}
	defer cryptoDomain.Zero(key)

	mac := hmac.New(sha256.New, key)
	mac.Write(s.canonicalize(entry))
	entry.Signature = base64.StdEncoding.EncodeToString(mac.Sum(nil))

	return nil
}

// Verify recomputes the entry's signature and compares it in constant time.
// Returns ErrSignatureInvalid when the entry was altered or the signature is
// unreadable.
func (s *Signer) Verify(secret *cryptoDomain.MasterSecret, entry *Entry) error {
	if entry.Signature == "" {
		return fmt.Errorf("%w: entry is unsigned", ErrSignatureInvalid)
	}
	signature, err := base64.StdEncoding.DecodeString(entry.Signature)
	if err != nil {
		return fmt.Errorf("%w: signature is not valid base64", ErrSignatureInvalid)
	}

	key, err := s.deriveSigningKey(secret)
	if err != nil {
		return err
	}
	defer cryptoDomain.Zero(key)

	mac := hmac.New(sha256.New, key)
	mac.Write(s.canonicalize(entry))
	if !hmac.Equal(signature, mac.Sum(nil)) {
		return ErrSignatureInvalid
	}

	return nil
}
