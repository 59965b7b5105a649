package app

import (
	"fmt"

	"golang.org/x/time/rate"

	"github.com/brightchat/fieldvault/internal/migration"
	"github.com/brightchat/fieldvault/internal/rotation"
)

// RateLimiter returns the write-back throttle for batch runs, or nil when
// rate limiting is disabled (the engines treat nil as unlimited).
func (c *Container) RateLimiter() *rate.Limiter {
	c.limiterInit.Do(func() {
		if !c.config.RateLimitEnabled {
			return
		}
		c.limiter = rate.NewLimiter(
			rate.Limit(c.config.RateLimitWritesPerSec),
			c.config.RateLimitBurst,
		)
	})
	return c.limiter
}

// RotationEngine returns the master secret rotation engine.
func (c *Container) RotationEngine() (*rotation.Engine, error) {
	var err error
	c.rotationEngineInit.Do(func() {
		c.rotationEngine, err = c.initRotationEngine()
		if err != nil {
			c.initErrors["rotationEngine"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["rotationEngine"]; exists {
		return nil, storedErr
	}
	return c.rotationEngine, nil
}

// MigrationRunner returns the plaintext migration runner.
func (c *Container) MigrationRunner() (*migration.Runner, error) {
	var err error
	c.migrationRunnerInit.Do(func() {
		c.migrationRunner, err = c.initMigrationRunner()
		if err != nil {
			c.initErrors["migrationRunner"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["migrationRunner"]; exists {
		return nil, storedErr
	}
	return c.migrationRunner, nil
}

// initRotationEngine creates the rotation engine with all its dependencies.
func (c *Container) initRotationEngine() (*rotation.Engine, error) {
	documents, err := c.DocumentStore()
	if err != nil {
		return nil, fmt.Errorf("failed to get document store for rotation engine: %w", err)
	}

	mappings, err := c.Mappings()
	if err != nil {
		return nil, fmt.Errorf("failed to get collection mappings for rotation engine: %w", err)
	}

	businessMetrics, err := c.BusinessMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to get business metrics for rotation engine: %w", err)
	}

	return rotation.NewEngine(
		documents,
		c.PayloadUseCase(),
		mappings,
		c.RateLimiter(),
		businessMetrics,
		c.Logger(),
	), nil
}

// initMigrationRunner creates the migration runner with all its dependencies.
func (c *Container) initMigrationRunner() (*migration.Runner, error) {
	documents, err := c.DocumentStore()
	if err != nil {
		return nil, fmt.Errorf("failed to get document store for migration runner: %w", err)
	}

	mappings, err := c.Mappings()
	if err != nil {
		return nil, fmt.Errorf("failed to get collection mappings for migration runner: %w", err)
	}

	businessMetrics, err := c.BusinessMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to get business metrics for migration runner: %w", err)
	}

	return migration.NewRunner(
		documents,
		c.PayloadUseCase(),
		mappings,
		c.RateLimiter(),
		businessMetrics,
		c.Logger(),
	), nil
}
