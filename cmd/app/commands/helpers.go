// Package commands contains CLI command implementations for the application.
package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"golang.org/x/sync/errgroup"

	internalHTTP "github.com/brightchat/fieldvault/internal/http"
)

// metricsShutdownTimeout bounds the scrape server shutdown after a batch run
// finishes.
const metricsShutdownTimeout = 5 * time.Second

// IOTuple holds reader and writer for commands, allowing for testing.
type IOTuple struct {
	Reader io.Reader
	Writer io.Writer
}

// DefaultIO returns an IOTuple with os.Stdin and os.Stdout.
func DefaultIO() IOTuple {
	return IOTuple{
		Reader: os.Stdin,
		Writer: os.Stdout,
	}
}

// closeMigrate closes the migration instance and logs any errors.
func closeMigrate(migrate *migrate.Migrate, logger *slog.Logger) {
	sourceError, databaseError := migrate.Close()
	if sourceError != nil || databaseError != nil {
		logger.Error(
			"failed to close the migrate",
			slog.Any("source_error", sourceError),
			slog.Any("database_error", databaseError),
		)
	}
}

// runWithMetrics executes run while serving the Prometheus scrape endpoint,
// so long batch jobs can be observed in flight. The server is stopped once
// run returns; a nil server means metrics are disabled and run executes
// directly. A listener failure cancels the run through the group context.
func runWithMetrics(
	ctx context.Context,
	metricsServer *internalHTTP.MetricsServer,
	logger *slog.Logger,
	run func(ctx context.Context) error,
) error {
	if metricsServer == nil {
		return run(ctx)
	}

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		if err := metricsServer.Start(groupCtx); err != nil {
			return fmt.Errorf("metrics server error: %w", err)
		}
		return nil
	})

	group.Go(func() error {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), metricsShutdownTimeout)
			defer cancel()
			if err := metricsServer.Shutdown(shutdownCtx); err != nil {
				logger.Error("failed to shutdown metrics server", slog.Any("error", err))
			}
		}()
		return run(groupCtx)
	})

	return group.Wait()
}
