package usecase

import (
	cryptoDomain "github.com/brightchat/fieldvault/internal/crypto/domain"
	cryptoService "github.com/brightchat/fieldvault/internal/crypto/service"
)

type payloadUseCase struct {
	payloadCipher  cryptoService.PayloadCipher
	dataKeyManager cryptoService.DataKeyManager
}

// Encrypt envelope-encrypts plaintext with a fresh wrapped data key.
func (p *payloadUseCase) Encrypt(
	plaintext string,
	secret *cryptoDomain.MasterSecret,
) (*cryptoDomain.EncryptedPayload, error) {
	// 1. Generate a single-use data key wrapped by the master secret
	dataKey, err := p.dataKeyManager.Generate(secret)
	if err != nil {
		return nil, err
	}
	defer dataKey.Close()

	// 2. Encrypt the payload with the plaintext data key
	ciphertext, nonce, tag, err := p.payloadCipher.Encrypt([]byte(plaintext), dataKey.Key)
	if err != nil {
		return nil, err
	}

	return &cryptoDomain.EncryptedPayload{
		Ciphertext:      ciphertext,
		CiphertextNonce: nonce,
		CiphertextTag:   tag,
		WrappedDataKey:  dataKey.Wrapped,
		WrapNonce:       dataKey.WrapNonce,
		WrapTag:         dataKey.WrapTag,
		KeyVersion:      secret.Version,
		Variant:         cryptoDomain.VariantWrapped,
	}, nil
}

// Decrypt recovers the plaintext from a wrapped payload.
func (p *payloadUseCase) Decrypt(
	payload *cryptoDomain.EncryptedPayload,
	secret *cryptoDomain.MasterSecret,
) (string, error) {
	if payload.IsLegacy() {
		return "", cryptoDomain.ErrLegacyRecord
	}

	// 1. Unwrap the data key with the master secret
	dataKey, err := p.dataKeyManager.Unwrap(
		payload.WrappedDataKey, payload.WrapNonce, payload.WrapTag, secret,
	)
	if err != nil {
		return "", err
	}
	defer cryptoDomain.Zero(dataKey)

	// 2. Decrypt the payload with the plaintext data key
	plaintext, err := p.payloadCipher.Decrypt(
		payload.Ciphertext, payload.CiphertextNonce, payload.CiphertextTag, dataKey,
	)
	if err != nil {
		return "", err
	}

	return string(plaintext), nil
}

// Rewrap re-encrypts the payload's data key under newSecret without touching
// the payload ciphertext.
func (p *payloadUseCase) Rewrap(
	payload *cryptoDomain.EncryptedPayload,
	oldSecret, newSecret *cryptoDomain.MasterSecret,
) error {
	if payload.IsLegacy() {
		return cryptoDomain.ErrLegacyRecord
	}

	// 1. Unwrap the data key with the old master secret
	dataKey, err := p.dataKeyManager.Unwrap(
		payload.WrappedDataKey, payload.WrapNonce, payload.WrapTag, oldSecret,
	)
	if err != nil {
		return err
	}
	defer cryptoDomain.Zero(dataKey)

	// 2. Wrap the same data key with the new master secret
	wrapped, nonce, tag, err := p.dataKeyManager.Wrap(dataKey, newSecret)
	if err != nil {
		return err
	}

	// 3. Only the wrap fields and version label change
	payload.WrappedDataKey = wrapped
	payload.WrapNonce = nonce
	payload.WrapTag = tag
	payload.KeyVersion = newSecret.Version

	return nil
}

// NewPayloadUseCase creates a new PayloadUseCase instance.
func NewPayloadUseCase(
	payloadCipher cryptoService.PayloadCipher,
	dataKeyManager cryptoService.DataKeyManager,
) PayloadUseCase {
	return &payloadUseCase{
		payloadCipher:  payloadCipher,
		dataKeyManager: dataKeyManager,
	}
}
