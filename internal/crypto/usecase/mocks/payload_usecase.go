// Package mocks provides mock implementations for testing code that depends
// on the crypto use cases.
package mocks

import (
	"testing"

	"github.com/stretchr/testify/mock"

	cryptoDomain "github.com/brightchat/fieldvault/internal/crypto/domain"
)

// MockPayloadUseCase is a mock implementation of PayloadUseCase for testing.
type MockPayloadUseCase struct {
	mock.Mock
}

// NewMockPayloadUseCase creates a mock that asserts its expectations when the
// test finishes.
func NewMockPayloadUseCase(t *testing.T) *MockPayloadUseCase {
	m := &MockPayloadUseCase{}
	m.Mock.Test(t)
	t.Cleanup(func() {
		m.AssertExpectations(t)
	})
	return m
}

// Encrypt mocks the Encrypt method of PayloadUseCase.
func (m *MockPayloadUseCase) Encrypt(
	plaintext string,
	secret *cryptoDomain.MasterSecret,
) (*cryptoDomain.EncryptedPayload, error) {
	args := m.Called(plaintext, secret)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cryptoDomain.EncryptedPayload), args.Error(1)
}

// Decrypt mocks the Decrypt method of PayloadUseCase.
func (m *MockPayloadUseCase) Decrypt(
	payload *cryptoDomain.EncryptedPayload,
	secret *cryptoDomain.MasterSecret,
) (string, error) {
	args := m.Called(payload, secret)
	return args.String(0), args.Error(1)
}

// Rewrap mocks the Rewrap method of PayloadUseCase.
func (m *MockPayloadUseCase) Rewrap(
	payload *cryptoDomain.EncryptedPayload,
	oldSecret, newSecret *cryptoDomain.MasterSecret,
) error {
	args := m.Called(payload, oldSecret, newSecret)
	return args.Error(0)
}
