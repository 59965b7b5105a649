package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/brightchat/fieldvault/internal/audit"
	internalHTTP "github.com/brightchat/fieldvault/internal/http"
	"github.com/brightchat/fieldvault/internal/migration"
)

// PlaintextMigrator runs bulk plaintext-to-encrypted conversions over the
// configured collections.
type PlaintextMigrator interface {
	Run(ctx context.Context, cfg migration.Config) (*migration.Summary, error)
}

// RunMigratePlaintext encrypts legacy plaintext fields in place: each record
// gets a fresh data key, the encrypted field map and a cleared-at marker,
// and the plaintext is nulled out. Re-runs skip already encrypted records, so
// an interrupted run can simply be restarted. The scrape server, when
// provided, exposes /metrics for the duration of the run. The summary is
// rendered to writer and appended to the audit trail, also for partial runs
// cut short by cancellation.
func RunMigratePlaintext(
	ctx context.Context,
	runner PlaintextMigrator,
	trail *audit.Trail,
	metricsServer *internalHTTP.MetricsServer,
	logger *slog.Logger,
	writer io.Writer,
	cfg migration.Config,
	format string,
) error {
	mode := migration.ModeMigrate
	if cfg.DryRun {
		mode = migration.ModeDryRun
	}

	logger.Info("starting migration run",
		slog.String("mode", mode),
		slog.Int("batch_size", cfg.BatchSize),
		slog.String("collection", cfg.Collection),
	)

	var summary *migration.Summary
	runErr := runWithMetrics(ctx, metricsServer, logger, func(ctx context.Context) error {
		var err error
		summary, err = runner.Run(ctx, cfg)
		return err
	})

	if summary != nil {
		if format == "json" {
			if err := outputMigrateJSON(writer, summary); err != nil {
				return fmt.Errorf("failed to output JSON: %w", err)
			}
		} else {
			outputMigrateText(writer, summary)
		}

		if err := trail.Record(audit.MigrationEntry(summary)); err != nil {
			return fmt.Errorf("failed to record audit entry: %w", err)
		}
	}

	if runErr != nil {
		return fmt.Errorf("migration run failed: %w", runErr)
	}

	logger.Info("migration completed",
		slog.String("run_id", summary.RunID.String()),
		slog.Int("processed", summary.Processed),
		slog.Int("migrated", summary.Migrated),
		slog.Int("skipped", summary.Skipped),
		slog.Int("errors", summary.Errors),
	)

	// Per-record failures never abort the run, but the exit code must still
	// tell the operator something went wrong.
	if summary.Errors > 0 {
		return fmt.Errorf("migration completed with %d record error(s)", summary.Errors)
	}

	return nil
}

// outputMigrateText outputs the migration summary in human-readable text
// format.
func outputMigrateText(writer io.Writer, summary *migration.Summary) {
	_, _ = fmt.Fprintf(writer, "Plaintext Migration Summary\n")
	_, _ = fmt.Fprintf(writer, "===========================\n\n")
	_, _ = fmt.Fprintf(writer, "Run ID:      %s\n", summary.RunID)
	_, _ = fmt.Fprintf(writer, "Mode:        %s\n", summary.Mode)
	_, _ = fmt.Fprintf(writer, "Key Version: %s\n", summary.KeyVersion)
	_, _ = fmt.Fprintf(writer,
		"Duration:    %s\n\n",
		summary.FinishedAt.Sub(summary.StartedAt).Round(time.Millisecond),
	)

	for _, coll := range summary.Collections {
		_, _ = fmt.Fprintf(writer, "  %s: processed=%d migrated=%d skipped=%d errors=%d\n",
			coll.Collection, coll.Processed, coll.Migrated, coll.Skipped, coll.Errors)
	}
	if len(summary.Collections) > 0 {
		_, _ = fmt.Fprintln(writer)
	}

	_, _ = fmt.Fprintf(writer, "Processed:   %d\n", summary.Processed)
	_, _ = fmt.Fprintf(writer, "Migrated:    %d\n", summary.Migrated)
	_, _ = fmt.Fprintf(writer, "Skipped:     %d\n", summary.Skipped)
	_, _ = fmt.Fprintf(writer, "Errors:      %d\n\n", summary.Errors)

	switch {
	case summary.Errors > 0:
		_, _ = fmt.Fprintf(writer, "Status: COMPLETED WITH ERRORS ❌\n")
	case summary.Mode == migration.ModeDryRun:
		_, _ = fmt.Fprintf(writer, "Status: DRY RUN ONLY (no writes) ✓\n")
	default:
		_, _ = fmt.Fprintf(writer, "Status: PASSED ✓\n")
	}
}

// outputMigrateJSON outputs the migration summary in JSON format for machine
// consumption.
func outputMigrateJSON(writer io.Writer, summary *migration.Summary) error {
	jsonBytes, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	_, _ = fmt.Fprintln(writer, string(jsonBytes))
	return nil
}
