package domain

// Sizes of the cryptographic primitives used by the envelope scheme.
//
// Every key in the hierarchy (master secret and data keys) is 256 bits.
// Nonces and authentication tags are 128 bits; both sizes are part of the
// persisted record contract and must never change without a new record
// format.
const (
	// KeySize is the size in bytes of master secrets and data keys.
	KeySize = 32

	// NonceSize is the size in bytes of AEAD nonces.
	NonceSize = 16

	// TagSize is the size in bytes of AEAD authentication tags.
	TagSize = 16
)

// AAD context strings bound to every AEAD operation. They separate the two
// semantic roles a ciphertext can have: a wrapped data key can never be
// presented as an encrypted payload and vice versa, even under the same key.
const (
	// PayloadContext is the associated data bound to payload encryption.
	PayloadContext = "payload"

	// DataKeyContext is the associated data bound to data key wrapping.
	DataKeyContext = "data-key"
)

// Short field keys of the compact storage format produced by FormatForStorage.
// These names are the on-disk contract shared with every other reader of the
// document store and must remain byte-for-byte stable.
const (
	// FieldCiphertext holds the base64 payload ciphertext.
	FieldCiphertext = "c"

	// FieldCiphertextNonce holds the base64 nonce used to encrypt the payload.
	FieldCiphertextNonce = "n"

	// FieldCiphertextTag holds the base64 authentication tag of the payload.
	FieldCiphertextTag = "t"

	// FieldWrappedDataKey holds the base64 data key encrypted under the master secret.
	FieldWrappedDataKey = "k"

	// FieldWrapNonce holds the base64 nonce used to wrap the data key.
	FieldWrapNonce = "kn"

	// FieldWrapTag holds the base64 authentication tag of the wrapped data key.
	FieldWrapTag = "kt"

	// FieldKeyVersion holds the version label of the master secret that wrapped
	// the data key. Used by key rotation to skip already-rotated records.
	FieldKeyVersion = "kv"
)
