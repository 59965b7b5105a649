package domain

// DataKey is a single-use 256-bit key generated for one payload.
//
// Key holds the plaintext key material and exists only transiently in memory
// while encrypting, decrypting, or rotating a single record; it is never
// persisted. Only the wrapped form (Wrapped, WrapNonce, WrapTag) reaches
// storage. Callers must Close the key as soon as the payload operation
// completes.
type DataKey struct {
	Key       []byte // plaintext key material, never persisted
	Wrapped   []byte // key encrypted under the master secret
	WrapNonce []byte // nonce used for the wrap
	WrapTag   []byte // authentication tag of the wrap
}

// Close zeroes the plaintext key material. The wrapped form stays intact.
func (d *DataKey) Close() {
	if d == nil {
		return
	}
	Zero(d.Key)
	d.Key = nil
}
