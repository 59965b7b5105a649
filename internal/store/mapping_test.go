package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/brightchat/fieldvault/internal/errors"
)

func TestParseCollectionFields(t *testing.T) {
	t.Run("parses the default mapping", func(t *testing.T) {
		raw := "chat_messages:body:body_enc,chat_sessions:visitor_meta:visitor_meta_enc," +
			"accounts:notes:notes_enc,assistant_logs:response:response_enc"

		mappings, err := ParseCollectionFields(raw)
		require.NoError(t, err)
		require.Len(t, mappings, 4)
		assert.Equal(t, CollectionField{
			Collection:     "chat_messages",
			PlainField:     "body",
			EncryptedField: "body_enc",
		}, mappings[0])
		assert.Equal(t, "assistant_logs", mappings[3].Collection)
	})

	t.Run("tolerates whitespace around triples", func(t *testing.T) {
		mappings, err := ParseCollectionFields(" accounts:notes:notes_enc , chat_messages:body:body_enc ")
		require.NoError(t, err)
		require.Len(t, mappings, 2)
		assert.Equal(t, "accounts", mappings[0].Collection)
	})

	t.Run("empty value", func(t *testing.T) {
		mappings, err := ParseCollectionFields("  ")
		assert.ErrorIs(t, err, ErrInvalidCollection)
		assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
		assert.Nil(t, mappings)
	})

	t.Run("wrong part count", func(t *testing.T) {
		for _, raw := range []string{"accounts:notes", "accounts", "a:b:c:d"} {
			mappings, err := ParseCollectionFields(raw)
			assert.ErrorIs(t, err, ErrInvalidCollection, raw)
			assert.Nil(t, mappings)
		}
	})

	t.Run("unsafe names are rejected", func(t *testing.T) {
		for _, raw := range []string{
			"accounts;drop table accounts:notes:notes_enc",
			"accounts:no tes:notes_enc",
			`accounts:notes:"notes"`,
			"1accounts:notes:notes_enc",
			":notes:notes_enc",
		} {
			mappings, err := ParseCollectionFields(raw)
			assert.ErrorIs(t, err, ErrInvalidCollection, raw)
			assert.Nil(t, mappings)
		}
	})
}
