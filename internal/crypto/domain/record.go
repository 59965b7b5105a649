package domain

// Variant distinguishes the two shapes an encrypted record can take on disk.
// It is decided exactly once, when a record is parsed from storage, so that
// rotation and migration never branch on ad hoc field checks.
type Variant string

const (
	// VariantWrapped is the current format: the data key is wrapped under a
	// master secret with its own nonce and tag.
	VariantWrapped Variant = "wrapped"

	// VariantLegacy marks records that predate data key wrapping: the wrap
	// nonce and tag are absent, so there is no way to verify how the stored
	// key bytes were protected. Legacy records are never decrypted or
	// rotated; they are surfaced for manual re-encryption.
	VariantLegacy Variant = "legacy"
)

// EncryptedPayload is the in-memory form of one envelope-encrypted value.
//
// The payload fields (Ciphertext, CiphertextNonce, CiphertextTag) are
// produced once at encryption time and never change afterwards. The wrap
// fields (WrappedDataKey, WrapNonce, WrapTag, KeyVersion) are replaced only
// by key rotation, which rewraps the same data key under a new master
// secret.
type EncryptedPayload struct {
	Ciphertext      []byte
	CiphertextNonce []byte
	CiphertextTag   []byte
	WrappedDataKey  []byte
	WrapNonce       []byte
	WrapTag         []byte

	// KeyVersion is the version label of the master secret that wrapped the
	// data key. Empty for records written before version tracking.
	KeyVersion string

	// Variant is fixed when the payload is created or parsed.
	Variant Variant
}

// IsLegacy reports whether the record lacks the wrap fields needed to unwrap
// its data key.
func (p *EncryptedPayload) IsLegacy() bool {
	return p.Variant == VariantLegacy
}
