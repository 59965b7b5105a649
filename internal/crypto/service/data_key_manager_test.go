package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cryptoDomain "github.com/brightchat/fieldvault/internal/crypto/domain"
)

func testSecret(t *testing.T) *cryptoDomain.MasterSecret {
	t.Helper()
	return &cryptoDomain.MasterSecret{Version: "v1", Key: testKey(t)}
}

func TestDataKeyManagerService_Generate(t *testing.T) {
	manager := NewDataKeyManager()

	t.Run("generates a wrapped 256-bit data key", func(t *testing.T) {
		secret := testSecret(t)

		dataKey, err := manager.Generate(secret)
		require.NoError(t, err)
		assert.Len(t, dataKey.Key, 32)
		assert.NotEmpty(t, dataKey.Wrapped)
		assert.Len(t, dataKey.WrapNonce, 16)
		assert.Len(t, dataKey.WrapTag, 16)

		unwrapped, err := manager.Unwrap(dataKey.Wrapped, dataKey.WrapNonce, dataKey.WrapTag, secret)
		require.NoError(t, err)
		assert.Equal(t, dataKey.Key, unwrapped)
	})

	t.Run("every data key is unique", func(t *testing.T) {
		secret := testSecret(t)

		first, err := manager.Generate(secret)
		require.NoError(t, err)
		second, err := manager.Generate(secret)
		require.NoError(t, err)
		assert.NotEqual(t, first.Key, second.Key)
		assert.NotEqual(t, first.Wrapped, second.Wrapped)
	})

	t.Run("nil secret is rejected", func(t *testing.T) {
		dataKey, err := manager.Generate(nil)
		assert.ErrorIs(t, err, cryptoDomain.ErrInvalidMasterSecret)
		assert.Nil(t, dataKey)
	})

	t.Run("short secret is rejected", func(t *testing.T) {
		dataKey, err := manager.Generate(&cryptoDomain.MasterSecret{Version: "v1", Key: make([]byte, 16)})
		assert.ErrorIs(t, err, cryptoDomain.ErrInvalidMasterSecret)
		assert.Nil(t, dataKey)
	})
}

func TestDataKeyManagerService_Wrap(t *testing.T) {
	manager := NewDataKeyManager()

	t.Run("round-trips through unwrap", func(t *testing.T) {
		secret := testSecret(t)
		plainKey := testKey(t)

		wrapped, nonce, tag, err := manager.Wrap(plainKey, secret)
		require.NoError(t, err)

		unwrapped, err := manager.Unwrap(wrapped, nonce, tag, secret)
		require.NoError(t, err)
		assert.Equal(t, plainKey, unwrapped)
	})

	t.Run("rewrap under a new secret preserves the key", func(t *testing.T) {
		oldSecret := testSecret(t)
		newSecret := &cryptoDomain.MasterSecret{Version: "v2", Key: testKey(t)}
		plainKey := testKey(t)

		wrapped, nonce, tag, err := manager.Wrap(plainKey, oldSecret)
		require.NoError(t, err)
		unwrapped, err := manager.Unwrap(wrapped, nonce, tag, oldSecret)
		require.NoError(t, err)

		rewrapped, newNonce, newTag, err := manager.Wrap(unwrapped, newSecret)
		require.NoError(t, err)
		assert.NotEqual(t, wrapped, rewrapped)

		got, err := manager.Unwrap(rewrapped, newNonce, newTag, newSecret)
		require.NoError(t, err)
		assert.Equal(t, plainKey, got)
	})

	t.Run("invalid data key size", func(t *testing.T) {
		_, _, _, err := manager.Wrap(make([]byte, 16), testSecret(t))
		assert.ErrorIs(t, err, cryptoDomain.ErrInvalidKeySize)
	})

	t.Run("invalid secret", func(t *testing.T) {
		_, _, _, err := manager.Wrap(testKey(t), nil)
		assert.ErrorIs(t, err, cryptoDomain.ErrInvalidMasterSecret)
	})
}

func TestDataKeyManagerService_Unwrap(t *testing.T) {
	manager := NewDataKeyManager()
	secret := testSecret(t)

	wrapped, nonce, tag, err := manager.Wrap(testKey(t), secret)
	require.NoError(t, err)

	t.Run("wrong secret fails", func(t *testing.T) {
		got, err := manager.Unwrap(wrapped, nonce, tag, testSecret(t))
		assert.ErrorIs(t, err, cryptoDomain.ErrDecryptionFailed)
		assert.Nil(t, got)
	})

	t.Run("tampered wrap fields fail", func(t *testing.T) {
		fields := map[string][]byte{
			"wrapped": wrapped,
			"nonce":   nonce,
			"tag":     tag,
		}
		for name, field := range fields {
			t.Run(name, func(t *testing.T) {
				tampered := make([]byte, len(field))
				copy(tampered, field)
				tampered[len(tampered)-1] ^= 0xff

				args := map[string][]byte{"wrapped": wrapped, "nonce": nonce, "tag": tag}
				args[name] = tampered

				got, err := manager.Unwrap(args["wrapped"], args["nonce"], args["tag"], secret)
				assert.ErrorIs(t, err, cryptoDomain.ErrDecryptionFailed)
				assert.Nil(t, got)
			})
		}
	})

	t.Run("payload ciphertext is not accepted as a wrapped key", func(t *testing.T) {
		// Both layers use the same AEAD but bind different contexts, so a
		// payload encrypted under the master secret's bytes must not unwrap.
		payloads := NewPayloadCipher()
		ciphertext, pNonce, pTag, err := payloads.Encrypt(testKey(t), secret.Key)
		require.NoError(t, err)

		got, err := manager.Unwrap(ciphertext, pNonce, pTag, secret)
		assert.ErrorIs(t, err, cryptoDomain.ErrDecryptionFailed)
		assert.Nil(t, got)
	})
}
