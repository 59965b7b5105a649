package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cryptoDomain "github.com/brightchat/fieldvault/internal/crypto/domain"
)

func TestPayloadCipherService(t *testing.T) {
	svc := NewPayloadCipher()
	dataKey := testKey(t)

	t.Run("round-trips a message", func(t *testing.T) {
		ciphertext, nonce, tag, err := svc.Encrypt([]byte("Hello, this is a test message!"), dataKey)
		require.NoError(t, err)

		got, err := svc.Decrypt(ciphertext, nonce, tag, dataKey)
		require.NoError(t, err)
		assert.Equal(t, "Hello, this is a test message!", string(got))
	})

	t.Run("fresh data keys yield different ciphertext for the same plaintext", func(t *testing.T) {
		c1, _, _, err := svc.Encrypt([]byte("same body"), testKey(t))
		require.NoError(t, err)
		c2, _, _, err := svc.Encrypt([]byte("same body"), testKey(t))
		require.NoError(t, err)
		assert.NotEqual(t, c1, c2)
	})

	t.Run("wrong data key fails", func(t *testing.T) {
		ciphertext, nonce, tag, err := svc.Encrypt([]byte("secret"), dataKey)
		require.NoError(t, err)

		got, err := svc.Decrypt(ciphertext, nonce, tag, testKey(t))
		assert.ErrorIs(t, err, cryptoDomain.ErrDecryptionFailed)
		assert.Nil(t, got)
	})

	t.Run("invalid data key size on encrypt", func(t *testing.T) {
		_, _, _, err := svc.Encrypt([]byte("secret"), make([]byte, 16))
		assert.ErrorIs(t, err, cryptoDomain.ErrInvalidKeySize)
	})

	t.Run("invalid data key size on decrypt", func(t *testing.T) {
		ciphertext, nonce, tag, err := svc.Encrypt([]byte("secret"), dataKey)
		require.NoError(t, err)

		_, err = svc.Decrypt(ciphertext, nonce, tag, make([]byte, 16))
		assert.ErrorIs(t, err, cryptoDomain.ErrInvalidKeySize)
	})
}
