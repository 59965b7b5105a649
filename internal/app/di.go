// Package app provides the dependency injection container for assembling
// application components.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"golang.org/x/time/rate"

	"github.com/brightchat/fieldvault/internal/audit"
	"github.com/brightchat/fieldvault/internal/config"
	cryptoDomain "github.com/brightchat/fieldvault/internal/crypto/domain"
	cryptoService "github.com/brightchat/fieldvault/internal/crypto/service"
	cryptoUseCase "github.com/brightchat/fieldvault/internal/crypto/usecase"
	"github.com/brightchat/fieldvault/internal/database"
	"github.com/brightchat/fieldvault/internal/http"
	"github.com/brightchat/fieldvault/internal/metrics"
	"github.com/brightchat/fieldvault/internal/migration"
	"github.com/brightchat/fieldvault/internal/redact"
	"github.com/brightchat/fieldvault/internal/rotation"
	"github.com/brightchat/fieldvault/internal/store"
	"github.com/brightchat/fieldvault/internal/store/repository"
)

// Container holds all application dependencies and provides methods to access them.
// It follows the lazy initialization pattern - components are created on first access.
type Container struct {
	// Configuration
	config *config.Config

	// Infrastructure
	logger    *slog.Logger
	db        *sql.DB
	documents store.DocumentStore
	mappings  []store.CollectionField

	// Crypto
	masterSecret    *cryptoDomain.MasterSecret
	newMasterSecret *cryptoDomain.MasterSecret
	payloadCipher   cryptoService.PayloadCipher
	dataKeyManager  cryptoService.DataKeyManager
	payloadUseCase  cryptoUseCase.PayloadUseCase

	// Supporting services
	redactor   *redact.Redactor
	auditTrail *audit.Trail
	limiter    *rate.Limiter

	// Metrics
	metricsProvider *metrics.Provider
	businessMetrics metrics.BusinessMetrics
	metricsServer   *http.MetricsServer

	// Engines
	rotationEngine  *rotation.Engine
	migrationRunner *migration.Runner

	// Initialization flags and mutex for thread-safety
	mu                  sync.Mutex
	loggerInit          sync.Once
	dbInit              sync.Once
	documentsInit       sync.Once
	mappingsInit        sync.Once
	masterSecretInit    sync.Once
	newMasterSecretInit sync.Once
	payloadCipherInit   sync.Once
	dataKeyManagerInit  sync.Once
	payloadUseCaseInit  sync.Once
	redactorInit        sync.Once
	auditTrailInit      sync.Once
	limiterInit         sync.Once
	metricsProviderInit sync.Once
	businessMetricsInit sync.Once
	metricsServerInit   sync.Once
	rotationEngineInit  sync.Once
	migrationRunnerInit sync.Once
	initErrors          map[string]error
}

// NewContainer creates a new dependency injection container with the provided configuration.
func NewContainer(cfg *config.Config) *Container {
	return &Container{
		config:     cfg,
		initErrors: make(map[string]error),
	}
}

// Config returns the application configuration.
func (c *Container) Config() *config.Config {
	return c.config
}

// Logger returns the configured logger instance.
// It creates a new logger on first access based on the log level in configuration.
func (c *Container) Logger() *slog.Logger {
	c.loggerInit.Do(func() {
		c.logger = c.initLogger()
	})
	return c.logger
}

// DB returns the database connection used by the SQL-backed store drivers.
func (c *Container) DB() (*sql.DB, error) {
	var err error
	c.dbInit.Do(func() {
		c.db, err = c.initDB()
		if err != nil {
			c.initErrors["db"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["db"]; exists {
		return nil, storedErr
	}
	return c.db, nil
}

// DocumentStore returns the document store selected by STORE_DRIVER.
func (c *Container) DocumentStore() (store.DocumentStore, error) {
	var err error
	c.documentsInit.Do(func() {
		c.documents, err = c.initDocumentStore()
		if err != nil {
			c.initErrors["documents"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["documents"]; exists {
		return nil, storedErr
	}
	return c.documents, nil
}

// Mappings returns the encrypted collection mappings parsed from
// ENCRYPTED_COLLECTIONS.
func (c *Container) Mappings() ([]store.CollectionField, error) {
	var err error
	c.mappingsInit.Do(func() {
		c.mappings, err = store.ParseCollectionFields(c.config.EncryptedCollections)
		if err != nil {
			c.initErrors["mappings"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["mappings"]; exists {
		return nil, storedErr
	}
	return c.mappings, nil
}

// Redactor returns the PII redactor.
func (c *Container) Redactor() *redact.Redactor {
	c.redactorInit.Do(func() {
		c.redactor = redact.New(c.config.RedactionEnabled)
	})
	return c.redactor
}

// MetricsProvider returns the metrics provider instance.
func (c *Container) MetricsProvider() (*metrics.Provider, error) {
	var err error
	c.metricsProviderInit.Do(func() {
		c.metricsProvider, err = metrics.NewProvider(c.config.MetricsNamespace)
		if err != nil {
			c.initErrors["metricsProvider"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["metricsProvider"]; exists {
		return nil, storedErr
	}
	return c.metricsProvider, nil
}

// BusinessMetrics returns the business metrics recorder. When metrics are
// disabled it returns a no-op implementation so callers never branch.
func (c *Container) BusinessMetrics() (metrics.BusinessMetrics, error) {
	var err error
	c.businessMetricsInit.Do(func() {
		c.businessMetrics, err = c.initBusinessMetrics()
		if err != nil {
			c.initErrors["businessMetrics"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["businessMetrics"]; exists {
		return nil, storedErr
	}
	return c.businessMetrics, nil
}

// MetricsServer returns the Prometheus scrape server.
func (c *Container) MetricsServer() (*http.MetricsServer, error) {
	var err error
	c.metricsServerInit.Do(func() {
		c.metricsServer, err = c.initMetricsServer()
		if err != nil {
			c.initErrors["metricsServer"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["metricsServer"]; exists {
		return nil, storedErr
	}
	return c.metricsServer, nil
}

// Shutdown performs cleanup of all initialized resources.
// It should be called when the application is shutting down.
func (c *Container) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var shutdownErrors []error

	// Shutdown metrics server if initialized
	if c.metricsServer != nil {
		if err := c.metricsServer.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("metrics server shutdown: %w", err))
		}
	}

	// Shutdown metrics provider if initialized
	if c.metricsProvider != nil {
		if err := c.metricsProvider.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("metrics provider shutdown: %w", err))
		}
	}

	// Close docstore collections if that driver is in use
	if closer, ok := c.documents.(*repository.DocstoreRepository); ok && closer != nil {
		if err := closer.Close(); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("document store close: %w", err))
		}
	}

	// Close database connection if initialized
	if c.db != nil {
		if err := c.db.Close(); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("database close: %w", err))
		}
	}

	// Zero key material
	c.masterSecret.Close()
	c.newMasterSecret.Close()

	// Return combined errors if any occurred
	if len(shutdownErrors) > 0 {
		return fmt.Errorf("shutdown errors: %v", shutdownErrors)
	}

	return nil
}

// initLogger creates and configures a structured logger based on the log level.
func (c *Container) initLogger() *slog.Logger {
	var logLevel slog.Level
	switch c.config.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})

	return slog.New(handler)
}

// initDB creates and configures the database connection.
func (c *Container) initDB() (*sql.DB, error) {
	db, err := database.Connect(database.Config{
		Driver:             c.config.StoreDriver,
		ConnectionString:   c.config.StoreConnectionString,
		MaxOpenConnections: c.config.StoreMaxOpenConnections,
		MaxIdleConnections: c.config.StoreMaxIdleConnections,
		ConnMaxLifetime:    c.config.StoreConnMaxLifetime,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// initDocumentStore creates the document store based on the store driver.
func (c *Container) initDocumentStore() (store.DocumentStore, error) {
	switch c.config.StoreDriver {
	case "docstore":
		return repository.NewDocstoreRepository(c.config.DocstoreURL, c.config.DocstoreIDField), nil
	case "postgres":
		db, err := c.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to get database for document store: %w", err)
		}
		return repository.NewPostgreSQLRepository(db), nil
	case "mysql":
		db, err := c.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to get database for document store: %w", err)
		}
		return repository.NewMySQLRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported store driver: %s", c.config.StoreDriver)
	}
}

// initBusinessMetrics creates the business metrics recorder.
func (c *Container) initBusinessMetrics() (metrics.BusinessMetrics, error) {
	if !c.config.MetricsEnabled {
		return metrics.NewNoOpBusinessMetrics(), nil
	}

	provider, err := c.MetricsProvider()
	if err != nil {
		return nil, fmt.Errorf("failed to get metrics provider for business metrics: %w", err)
	}

	businessMetrics, err := metrics.NewBusinessMetrics(provider.MeterProvider(), c.config.MetricsNamespace)
	if err != nil {
		return nil, fmt.Errorf("failed to create business metrics: %w", err)
	}

	return businessMetrics, nil
}

// initMetricsServer creates the metrics scrape server. Without a provider
// (metrics disabled) the server still runs but exposes no scrape route.
func (c *Container) initMetricsServer() (*http.MetricsServer, error) {
	logger := c.Logger()

	var provider *metrics.Provider
	if c.config.MetricsEnabled {
		p, err := c.MetricsProvider()
		if err != nil {
			return nil, fmt.Errorf("failed to get metrics provider for metrics server: %w", err)
		}
		provider = p
	}

	server := http.NewMetricsServer(
		c.config.MetricsHost,
		c.config.MetricsPort,
		c.config.MetricsNamespace,
		logger,
		provider,
	)

	return server, nil
}
