package service

import (
	cryptoDomain "github.com/brightchat/fieldvault/internal/crypto/domain"
)

// PayloadCipherService implements PayloadCipher over AES-256-GCM, binding
// the "payload" AAD context to every operation.
//
// A fresh cipher is constructed per call: data keys are single-use, so there
// is nothing to cache, and the constructor doubles as the key size check.
type PayloadCipherService struct{}

// NewPayloadCipher creates a new PayloadCipherService.
func NewPayloadCipher() *PayloadCipherService {
	return &PayloadCipherService{}
}

// Encrypt encrypts plaintext under dataKey. The plaintext may be empty or
// arbitrarily large; the output round-trips byte-exactly through Decrypt.
func (s *PayloadCipherService) Encrypt(
	plaintext, dataKey []byte,
) (ciphertext, nonce, tag []byte, err error) {
	aead, err := NewAESGCM(dataKey)
	if err != nil {
		return nil, nil, nil, err
	}
	return aead.Encrypt(plaintext, []byte(cryptoDomain.PayloadContext))
}

// Decrypt recovers the plaintext encrypted by Encrypt. An invalid data key
// size is reported as such; every other failure is ErrDecryptionFailed.
func (s *PayloadCipherService) Decrypt(ciphertext, nonce, tag, dataKey []byte) ([]byte, error) {
	aead, err := NewAESGCM(dataKey)
	if err != nil {
		return nil, err
	}
	return aead.Decrypt(ciphertext, nonce, tag, []byte(cryptoDomain.PayloadContext))
}
