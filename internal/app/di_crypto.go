package app

import (
	"fmt"

	"github.com/brightchat/fieldvault/internal/audit"
	cryptoDomain "github.com/brightchat/fieldvault/internal/crypto/domain"
	cryptoService "github.com/brightchat/fieldvault/internal/crypto/service"
	cryptoUseCase "github.com/brightchat/fieldvault/internal/crypto/usecase"
)

// MasterSecret returns the active master secret loaded from MASTER_SECRET.
func (c *Container) MasterSecret() (*cryptoDomain.MasterSecret, error) {
	var err error
	c.masterSecretInit.Do(func() {
		c.masterSecret, err = cryptoDomain.ParseMasterSecret(
			c.config.MasterSecret,
			c.config.MasterKeyVersion,
		)
		if err != nil {
			err = fmt.Errorf("failed to load master secret: %w", err)
			c.initErrors["masterSecret"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["masterSecret"]; exists {
		return nil, storedErr
	}
	return c.masterSecret, nil
}

// NewMasterSecret returns the replacement master secret loaded from
// NEW_MASTER_SECRET. Only rotation runs need it.
func (c *Container) NewMasterSecret() (*cryptoDomain.MasterSecret, error) {
	var err error
	c.newMasterSecretInit.Do(func() {
		c.newMasterSecret, err = cryptoDomain.ParseMasterSecret(
			c.config.NewMasterSecret,
			c.config.NewMasterKeyVersion,
		)
		if err != nil {
			err = fmt.Errorf("failed to load new master secret: %w", err)
			c.initErrors["newMasterSecret"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["newMasterSecret"]; exists {
		return nil, storedErr
	}
	return c.newMasterSecret, nil
}

// PayloadCipher returns the payload cipher service.
func (c *Container) PayloadCipher() cryptoService.PayloadCipher {
	c.payloadCipherInit.Do(func() {
		c.payloadCipher = cryptoService.NewPayloadCipher()
	})
	return c.payloadCipher
}

// DataKeyManager returns the data key manager service.
func (c *Container) DataKeyManager() cryptoService.DataKeyManager {
	c.dataKeyManagerInit.Do(func() {
		c.dataKeyManager = cryptoService.NewDataKeyManager()
	})
	return c.dataKeyManager
}

// PayloadUseCase returns the envelope encryption use case.
func (c *Container) PayloadUseCase() cryptoUseCase.PayloadUseCase {
	c.payloadUseCaseInit.Do(func() {
		c.payloadUseCase = cryptoUseCase.NewPayloadUseCase(
			c.PayloadCipher(),
			c.DataKeyManager(),
		)
	})
	return c.payloadUseCase
}

// AuditTrail returns the signed run-audit trail. Entries are signed with the
// master secret active when the run executes; an empty AUDIT_LOG_PATH yields
// a disabled trail that records nothing.
func (c *Container) AuditTrail() (*audit.Trail, error) {
	var err error
	c.auditTrailInit.Do(func() {
		c.auditTrail, err = c.initAuditTrail()
		if err != nil {
			c.initErrors["auditTrail"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["auditTrail"]; exists {
		return nil, storedErr
	}
	return c.auditTrail, nil
}

// initAuditTrail creates the audit trail with the active master secret.
func (c *Container) initAuditTrail() (*audit.Trail, error) {
	if c.config.AuditLogPath == "" {
		return audit.NewTrail("", nil), nil
	}

	secret, err := c.MasterSecret()
	if err != nil {
		return nil, fmt.Errorf("failed to get master secret for audit trail: %w", err)
	}

	return audit.NewTrail(c.config.AuditLogPath, secret), nil
}
