package domain

import (
	"encoding/base64"
	"fmt"
)

// FormatForStorage serializes a payload into the compact field map persisted
// in the document store. All byte fields are standard base64 strings under
// single-letter keys to keep per-record overhead low.
//
// Wrap nonce, wrap tag, and key version are omitted when empty so that a
// legacy payload round-trips to the exact legacy shape it was parsed from.
func FormatForStorage(p *EncryptedPayload) map[string]any {
	record := map[string]any{
		FieldCiphertext:      base64.StdEncoding.EncodeToString(p.Ciphertext),
		FieldCiphertextNonce: base64.StdEncoding.EncodeToString(p.CiphertextNonce),
		FieldCiphertextTag:   base64.StdEncoding.EncodeToString(p.CiphertextTag),
		FieldWrappedDataKey:  base64.StdEncoding.EncodeToString(p.WrappedDataKey),
	}

	if len(p.WrapNonce) > 0 {
		record[FieldWrapNonce] = base64.StdEncoding.EncodeToString(p.WrapNonce)
	}
	if len(p.WrapTag) > 0 {
		record[FieldWrapTag] = base64.StdEncoding.EncodeToString(p.WrapTag)
	}
	if p.KeyVersion != "" {
		record[FieldKeyVersion] = p.KeyVersion
	}

	return record
}

// ParseFromStorage deserializes a compact field map back into a payload and
// decides its variant once, so callers can branch on Variant instead of
// probing optional fields.
//
// The ciphertext, ciphertext nonce, ciphertext tag, and wrapped key fields
// are required; a record missing any of them is malformed. Records missing
// both wrap nonce and wrap tag are surfaced as VariantLegacy with those
// fields present but empty rather than rejected, so batch engines can skip
// them deliberately. A record carrying only one of the two wrap fields is
// malformed: it matches neither shape and is likely truncated or tampered.
func ParseFromStorage(record map[string]any) (*EncryptedPayload, error) {
	ciphertext, err := requiredBytes(record, FieldCiphertext)
	if err != nil {
		return nil, err
	}
	nonce, err := requiredBytes(record, FieldCiphertextNonce)
	if err != nil {
		return nil, err
	}
	tag, err := requiredBytes(record, FieldCiphertextTag)
	if err != nil {
		return nil, err
	}
	wrappedKey, err := requiredBytes(record, FieldWrappedDataKey)
	if err != nil {
		return nil, err
	}

	wrapNonce, err := optionalBytes(record, FieldWrapNonce)
	if err != nil {
		return nil, err
	}
	wrapTag, err := optionalBytes(record, FieldWrapTag)
	if err != nil {
		return nil, err
	}

	variant := VariantWrapped
	switch {
	case len(wrapNonce) == 0 && len(wrapTag) == 0:
		variant = VariantLegacy
	case len(wrapNonce) == 0 || len(wrapTag) == 0:
		return nil, fmt.Errorf(
			"%w: wrap nonce and wrap tag must be present together",
			ErrMalformedRecord,
		)
	}

	keyVersion, err := optionalString(record, FieldKeyVersion)
	if err != nil {
		return nil, err
	}

	return &EncryptedPayload{
		Ciphertext:      ciphertext,
		CiphertextNonce: nonce,
		CiphertextTag:   tag,
		WrappedDataKey:  wrappedKey,
		WrapNonce:       wrapNonce,
		WrapTag:         wrapTag,
		KeyVersion:      keyVersion,
		Variant:         variant,
	}, nil
}

// requiredBytes reads a mandatory base64 field. The ciphertext of an empty
// plaintext decodes to zero bytes, so an empty string is acceptable as long
// as the key itself is present.
func requiredBytes(record map[string]any, key string) ([]byte, error) {
	raw, ok := record[key]
	if !ok || raw == nil {
		return nil, fmt.Errorf("%w: missing field %q", ErrMalformedRecord, key)
	}
	s, ok := raw.(string)
	if !ok {
		return nil, fmt.Errorf("%w: field %q is not a string", ErrMalformedRecord, key)
	}
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: field %q is not valid base64", ErrMalformedRecord, key)
	}
	return b, nil
}

// optionalBytes reads a base64 field that may be absent or null (legacy
// records). Absent and empty are equivalent and both yield nil.
func optionalBytes(record map[string]any, key string) ([]byte, error) {
	raw, ok := record[key]
	if !ok || raw == nil {
		return nil, nil
	}
	s, ok := raw.(string)
	if !ok {
		return nil, fmt.Errorf("%w: field %q is not a string", ErrMalformedRecord, key)
	}
	if s == "" {
		return nil, nil
	}
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: field %q is not valid base64", ErrMalformedRecord, key)
	}
	return b, nil
}

// optionalString reads a plain string field, treating absent, null, and empty
// identically. SQL backends persist cleared fields as JSON null, so null must
// parse the same as a missing key.
func optionalString(record map[string]any, key string) (string, error) {
	raw, ok := record[key]
	if !ok || raw == nil {
		return "", nil
	}
	s, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("%w: field %q is not a string", ErrMalformedRecord, key)
	}
	return s, nil
}
