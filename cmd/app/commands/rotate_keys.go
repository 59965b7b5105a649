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
	"github.com/brightchat/fieldvault/internal/rotation"
)

// KeyRotator runs master secret rotations over the configured collections.
type KeyRotator interface {
	Run(ctx context.Context, cfg rotation.Config) (*rotation.Summary, error)
}

// RunRotateKeys rewraps every stored data key under the new master secret.
// Payload ciphertext is never touched; only the key wrapping changes. The
// scrape server, when provided, exposes /metrics for the duration of the run.
// The summary is rendered to writer and appended to the audit trail, also for
// partial runs cut short by cancellation.
//
// Requirements: MASTER_SECRET holds the secret records are currently wrapped
// with, NEW_MASTER_SECRET the rotation target with a distinct version label.
func RunRotateKeys(
	ctx context.Context,
	engine KeyRotator,
	trail *audit.Trail,
	metricsServer *internalHTTP.MetricsServer,
	logger *slog.Logger,
	writer io.Writer,
	cfg rotation.Config,
	format string,
) error {
	mode := rotation.ModeRotate
	if cfg.Preview {
		mode = rotation.ModePreview
	}

	logger.Info("starting rotation run",
		slog.String("mode", mode),
		slog.Int("batch_size", cfg.BatchSize),
		slog.String("collection", cfg.Collection),
	)

	var summary *rotation.Summary
	runErr := runWithMetrics(ctx, metricsServer, logger, func(ctx context.Context) error {
		var err error
		summary, err = engine.Run(ctx, cfg)
		return err
	})

	if summary != nil {
		if format == "json" {
			if err := outputRotateJSON(writer, summary); err != nil {
				return fmt.Errorf("failed to output JSON: %w", err)
			}
		} else {
			outputRotateText(writer, summary)
		}

		if err := trail.Record(audit.RotationEntry(summary)); err != nil {
			return fmt.Errorf("failed to record audit entry: %w", err)
		}
	}

	if runErr != nil {
		return fmt.Errorf("rotation run failed: %w", runErr)
	}

	logger.Info("rotation completed",
		slog.String("run_id", summary.RunID.String()),
		slog.Int("processed", summary.Processed),
		slog.Int("rotated", summary.Rotated),
		slog.Int("skipped", summary.Skipped),
		slog.Int("errors", summary.Errors),
	)

	// Per-record failures never abort the run, but the exit code must still
	// tell the operator something went wrong.
	if summary.Errors > 0 {
		return fmt.Errorf("rotation completed with %d record error(s)", summary.Errors)
	}

	return nil
}

// outputRotateText outputs the rotation summary in human-readable text format.
func outputRotateText(writer io.Writer, summary *rotation.Summary) {
	_, _ = fmt.Fprintf(writer, "Key Rotation Summary\n")
	_, _ = fmt.Fprintf(writer, "====================\n\n")
	_, _ = fmt.Fprintf(writer, "Run ID:         %s\n", summary.RunID)
	_, _ = fmt.Fprintf(writer, "Mode:           %s\n", summary.Mode)
	_, _ = fmt.Fprintf(writer, "Target Version: %s\n", summary.TargetVersion)
	_, _ = fmt.Fprintf(writer,
		"Duration:       %s\n\n",
		summary.FinishedAt.Sub(summary.StartedAt).Round(time.Millisecond),
	)

	for _, coll := range summary.Collections {
		_, _ = fmt.Fprintf(writer, "  %s: processed=%d rotated=%d skipped=%d errors=%d\n",
			coll.Collection, coll.Processed, coll.Rotated, coll.Skipped, coll.Errors)
	}
	if len(summary.Collections) > 0 {
		_, _ = fmt.Fprintln(writer)
	}

	_, _ = fmt.Fprintf(writer, "Processed:      %d\n", summary.Processed)
	_, _ = fmt.Fprintf(writer, "Rotated:        %d\n", summary.Rotated)
	_, _ = fmt.Fprintf(writer, "Skipped:        %d\n", summary.Skipped)
	_, _ = fmt.Fprintf(writer, "Errors:         %d\n\n", summary.Errors)

	switch {
	case summary.Errors > 0:
		_, _ = fmt.Fprintf(writer, "Status: COMPLETED WITH ERRORS ❌\n")
	case summary.Mode == rotation.ModePreview:
		_, _ = fmt.Fprintf(writer, "Status: PREVIEW ONLY (no writes) ✓\n")
	default:
		_, _ = fmt.Fprintf(writer, "Status: PASSED ✓\n")
	}
}

// outputRotateJSON outputs the rotation summary in JSON format for machine
// consumption.
func outputRotateJSON(writer io.Writer, summary *rotation.Summary) error {
	jsonBytes, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	_, _ = fmt.Fprintln(writer, string(jsonBytes))
	return nil
}
