package domain

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/brightchat/fieldvault/internal/errors"
)

func wrappedPayload() *EncryptedPayload {
	return &EncryptedPayload{
		Ciphertext:      []byte("ciphertext-bytes"),
		CiphertextNonce: []byte("0123456789abcdef"),
		CiphertextTag:   []byte("fedcba9876543210"),
		WrappedDataKey:  []byte("wrapped-data-key-bytes"),
		WrapNonce:       []byte("abcdef0123456789"),
		WrapTag:         []byte("0123456789fedcba"),
		KeyVersion:      "v1",
		Variant:         VariantWrapped,
	}
}

func TestFormatForStorage(t *testing.T) {
	t.Run("wrapped payload uses the compact keys", func(t *testing.T) {
		record := FormatForStorage(wrappedPayload())

		assert.Len(t, record, 7)
		for _, key := range []string{"c", "n", "t", "k", "kn", "kt"} {
			s, ok := record[key].(string)
			require.True(t, ok, "field %q must be a string", key)
			_, err := base64.StdEncoding.DecodeString(s)
			assert.NoError(t, err, "field %q must be base64", key)
		}
		assert.Equal(t, "v1", record["kv"])
	})

	t.Run("legacy payload omits wrap fields", func(t *testing.T) {
		p := wrappedPayload()
		p.WrapNonce = nil
		p.WrapTag = nil
		p.KeyVersion = ""
		p.Variant = VariantLegacy

		record := FormatForStorage(p)
		assert.Len(t, record, 4)
		assert.NotContains(t, record, "kn")
		assert.NotContains(t, record, "kt")
		assert.NotContains(t, record, "kv")
	})

	t.Run("empty ciphertext serializes to an empty string", func(t *testing.T) {
		p := wrappedPayload()
		p.Ciphertext = nil

		record := FormatForStorage(p)
		assert.Equal(t, "", record["c"])
	})
}

func TestParseFromStorage(t *testing.T) {
	t.Run("round-trips a wrapped payload losslessly", func(t *testing.T) {
		original := wrappedPayload()

		parsed, err := ParseFromStorage(FormatForStorage(original))
		require.NoError(t, err)
		assert.Equal(t, original, parsed)
	})

	t.Run("round-trips an empty-ciphertext payload", func(t *testing.T) {
		original := wrappedPayload()
		original.Ciphertext = nil

		parsed, err := ParseFromStorage(FormatForStorage(original))
		require.NoError(t, err)
		assert.Empty(t, parsed.Ciphertext)
		assert.Equal(t, VariantWrapped, parsed.Variant)
	})

	t.Run("missing wrap fields surface as legacy, not an error", func(t *testing.T) {
		record := map[string]any{
			"c": base64.StdEncoding.EncodeToString([]byte("ciphertext")),
			"n": base64.StdEncoding.EncodeToString([]byte("nonce")),
			"t": base64.StdEncoding.EncodeToString([]byte("tag")),
			"k": base64.StdEncoding.EncodeToString([]byte("raw-key-bytes")),
		}

		parsed, err := ParseFromStorage(record)
		require.NoError(t, err)
		assert.Equal(t, VariantLegacy, parsed.Variant)
		assert.True(t, parsed.IsLegacy())
		assert.Empty(t, parsed.WrapNonce)
		assert.Empty(t, parsed.WrapTag)
		assert.Empty(t, parsed.KeyVersion)
	})

	t.Run("legacy payload round-trips to the legacy shape", func(t *testing.T) {
		p := wrappedPayload()
		p.WrapNonce = nil
		p.WrapTag = nil
		p.KeyVersion = ""
		p.Variant = VariantLegacy

		parsed, err := ParseFromStorage(FormatForStorage(p))
		require.NoError(t, err)
		assert.Equal(t, p, parsed)
	})

	t.Run("null wrap fields parse the same as absent ones", func(t *testing.T) {
		record := FormatForStorage(wrappedPayload())
		record["kn"] = nil
		record["kt"] = nil
		record["kv"] = nil

		parsed, err := ParseFromStorage(record)
		require.NoError(t, err)
		assert.Equal(t, VariantLegacy, parsed.Variant)
	})

	t.Run("missing required fields are malformed", func(t *testing.T) {
		for _, key := range []string{"c", "n", "t", "k"} {
			record := FormatForStorage(wrappedPayload())
			delete(record, key)

			_, err := ParseFromStorage(record)
			assert.ErrorIs(t, err, ErrMalformedRecord, "missing %q", key)
			assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
		}
	})

	t.Run("non-string fields are malformed", func(t *testing.T) {
		record := FormatForStorage(wrappedPayload())
		record["c"] = 42

		_, err := ParseFromStorage(record)
		assert.ErrorIs(t, err, ErrMalformedRecord)
	})

	t.Run("invalid base64 is malformed", func(t *testing.T) {
		record := FormatForStorage(wrappedPayload())
		record["k"] = "%%% not base64 %%%"

		_, err := ParseFromStorage(record)
		assert.ErrorIs(t, err, ErrMalformedRecord)
	})

	t.Run("wrap nonce without wrap tag is malformed", func(t *testing.T) {
		record := FormatForStorage(wrappedPayload())
		delete(record, "kt")

		_, err := ParseFromStorage(record)
		assert.ErrorIs(t, err, ErrMalformedRecord)
	})

	t.Run("wrap tag without wrap nonce is malformed", func(t *testing.T) {
		record := FormatForStorage(wrappedPayload())
		delete(record, "kn")

		_, err := ParseFromStorage(record)
		assert.ErrorIs(t, err, ErrMalformedRecord)
	})
}
