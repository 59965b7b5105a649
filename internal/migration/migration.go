// Package migration implements the bulk conversion of legacy plaintext
// fields to the encrypted record format.
//
// Each migrated record gets a fresh data key, the encrypted field map, a
// marker recording when the plaintext was cleared, and the plaintext field
// nulled out, all in one patch. The run is idempotent: records already
// carrying a parseable encrypted field are skipped, so an interrupted run
// can simply be restarted from the beginning.
package migration

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	cryptoDomain "github.com/brightchat/fieldvault/internal/crypto/domain"
	cryptoUseCase "github.com/brightchat/fieldvault/internal/crypto/usecase"
	apperrors "github.com/brightchat/fieldvault/internal/errors"
	"github.com/brightchat/fieldvault/internal/metrics"
	"github.com/brightchat/fieldvault/internal/store"
)

// DefaultBatchSize is the page size used when Config.BatchSize is not set.
const DefaultBatchSize = 100

// ClearedAtSuffix is appended to the plaintext field name to form the marker
// field that records when the plaintext was cleared.
const ClearedAtSuffix = "_cleared_at"

// Mode values stamped on run summaries.
const (
	ModeMigrate = "migrate"
	ModeDryRun  = "dry-run"
)

// Outcome is the terminal state of one record.
type Outcome int

const (
	// OutcomeMigrated means the plaintext was encrypted and cleared (or
	// would have been, in dry-run mode).
	OutcomeMigrated Outcome = iota
	// OutcomeSkipped means the record was already encrypted or had no
	// plaintext to migrate.
	OutcomeSkipped
	// OutcomeErrored means encryption or the write back failed.
	OutcomeErrored
)

// Config controls one migration run.
type Config struct {
	// DryRun performs the encryption but withholds writes.
	DryRun bool
	// BatchSize is the page size. DefaultBatchSize when <= 0.
	BatchSize int
	// Collection restricts the run to one configured collection when set.
	Collection string
	// Secret wraps the fresh data keys; its version label is stamped on
	// every record the run encrypts.
	Secret *cryptoDomain.MasterSecret
}

// CollectionSummary counts record outcomes for one collection.
type CollectionSummary struct {
	Collection string `json:"collection"`
	Processed  int    `json:"processed"`
	Migrated   int    `json:"migrated"`
	Skipped    int    `json:"skipped"`
	Errors     int    `json:"errors"`
}

// Summary is the result of a migration run.
type Summary struct {
	RunID       uuid.UUID           `json:"run_id"`
	Mode        string              `json:"mode"`
	KeyVersion  string              `json:"key_version"`
	Collections []CollectionSummary `json:"collections"`
	Processed   int                 `json:"processed"`
	Migrated    int                 `json:"migrated"`
	Skipped     int                 `json:"skipped"`
	Errors      int                 `json:"errors"`
	StartedAt   time.Time           `json:"started_at"`
	FinishedAt  time.Time           `json:"finished_at"`
}

// Runner walks the configured collections and encrypts plaintext fields.
type Runner struct {
	documents       store.DocumentStore
	payloads        cryptoUseCase.PayloadUseCase
	mappings        []store.CollectionField
	limiter         *rate.Limiter
	businessMetrics metrics.BusinessMetrics
	logger          *slog.Logger
}

// Run executes a migration over every configured collection (or the one
// named by cfg.Collection) and returns the aggregated summary.
//
// Read failures abort the affected collection, are counted as errors and do
// not stop the run. Context cancellation stops the run between pages and
// returns the partial summary alongside the context error.
func (r *Runner) Run(ctx context.Context, cfg Config) (*Summary, error) {
	if err := r.validate(cfg); err != nil {
		return nil, err
	}

	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}

	mode := ModeMigrate
	if cfg.DryRun {
		mode = ModeDryRun
	}

	summary := &Summary{
		RunID:      uuid.Must(uuid.NewV7()),
		Mode:       mode,
		KeyVersion: cfg.Secret.Version,
		StartedAt:  time.Now().UTC(),
	}

	logger := r.logger.With(
		slog.String("run_id", summary.RunID.String()),
		slog.String("mode", mode),
	)

	for _, mapping := range r.mappings {
		if cfg.Collection != "" && mapping.Collection != cfg.Collection {
			continue
		}

		collSummary, err := r.migrateCollection(ctx, cfg, mapping, logger)

		summary.Collections = append(summary.Collections, collSummary)
		summary.Processed += collSummary.Processed
		summary.Migrated += collSummary.Migrated
		summary.Skipped += collSummary.Skipped
		summary.Errors += collSummary.Errors

		// A read failure aborts only the affected collection; it is already
		// counted in the summary. Cancellation stops the whole run.
		if err != nil && (apperrors.Is(err, context.Canceled) || apperrors.Is(err, context.DeadlineExceeded)) {
			summary.FinishedAt = time.Now().UTC()
			return summary, err
		}
	}

	summary.FinishedAt = time.Now().UTC()

	status := "success"
	if summary.Errors > 0 {
		status = "error"
	}
	r.businessMetrics.RecordDuration(
		ctx, "migration", "run", summary.FinishedAt.Sub(summary.StartedAt), status,
	)

	logger.Info("migration run complete",
		slog.Int("processed", summary.Processed),
		slog.Int("migrated", summary.Migrated),
		slog.Int("skipped", summary.Skipped),
		slog.Int("errors", summary.Errors),
	)

	return summary, nil
}

func (r *Runner) validate(cfg Config) error {
	if len(r.mappings) == 0 {
		return fmt.Errorf("%w: no encrypted collections configured", apperrors.ErrConfiguration)
	}
	if !cfg.Secret.Valid() {
		return cryptoDomain.ErrInvalidMasterSecret
	}
	if strings.TrimSpace(cfg.Secret.Version) == "" {
		return fmt.Errorf(
			"%w: master secret must carry a version label",
			apperrors.ErrConfiguration,
		)
	}
	if cfg.Collection != "" && !r.hasMapping(cfg.Collection) {
		return fmt.Errorf(
			"%w: collection %q is not configured for encryption",
			apperrors.ErrInvalidInput, cfg.Collection,
		)
	}
	return nil
}

func (r *Runner) hasMapping(collection string) bool {
	for _, mapping := range r.mappings {
		if mapping.Collection == collection {
			return true
		}
	}
	return false
}

func (r *Runner) migrateCollection(
	ctx context.Context,
	cfg Config,
	mapping store.CollectionField,
	logger *slog.Logger,
) (CollectionSummary, error) {
	collSummary := CollectionSummary{Collection: mapping.Collection}
	logger = logger.With(slog.String("collection", mapping.Collection))

	offset := 0
	for {
		if err := ctx.Err(); err != nil {
			return collSummary, err
		}

		docs, err := r.documents.List(ctx, mapping.Collection, nil, cfg.BatchSize, offset)
		if err != nil {
			collSummary.Errors++
			logger.Error("failed to list documents",
				slog.Int("offset", offset),
				slog.String("error", err.Error()),
			)
			return collSummary, err
		}
		if len(docs) == 0 {
			break
		}

		migratedInBatch := 0
		for _, doc := range docs {
			outcome := r.migrateRecord(ctx, cfg, mapping, doc, logger)

			collSummary.Processed++
			switch outcome {
			case OutcomeMigrated:
				collSummary.Migrated++
				migratedInBatch++
				r.businessMetrics.RecordOperation(ctx, "migration", "record", "migrated")
			case OutcomeSkipped:
				collSummary.Skipped++
				r.businessMetrics.RecordOperation(ctx, "migration", "record", "skipped")
			case OutcomeErrored:
				collSummary.Errors++
				r.businessMetrics.RecordOperation(ctx, "migration", "record", "errored")
			}
		}

		logger.Info("migration batch complete",
			slog.Int("offset", offset),
			slog.Int("batch_size", len(docs)),
			slog.Int("migrated_in_batch", migratedInBatch),
		)

		if len(docs) < cfg.BatchSize {
			break
		}
		offset += cfg.BatchSize
	}

	return collSummary, nil
}

// migrateRecord decides and applies the terminal state for one record.
func (r *Runner) migrateRecord(
	ctx context.Context,
	cfg Config,
	mapping store.CollectionField,
	doc *store.Document,
	logger *slog.Logger,
) Outcome {
	if raw, ok := doc.Fields[mapping.EncryptedField].(map[string]any); ok {
		if _, err := cryptoDomain.ParseFromStorage(raw); err == nil {
			// Already encrypted; re-runs land here.
			return OutcomeSkipped
		}
		// A malformed encrypted field does not block migration as long as
		// the plaintext is still around to encrypt again.
		logger.Warn("encrypted field is malformed, re-encrypting from plaintext",
			slog.String("document_id", doc.ID),
		)
	}

	plaintext, ok := doc.Fields[mapping.PlainField].(string)
	if !ok || plaintext == "" {
		return OutcomeSkipped
	}

	payload, err := r.payloads.Encrypt(plaintext, cfg.Secret)
	if err != nil {
		logger.Error("failed to encrypt plaintext",
			slog.String("document_id", doc.ID),
			slog.String("error", err.Error()),
		)
		return OutcomeErrored
	}

	if cfg.DryRun {
		return OutcomeMigrated
	}

	if err := r.wait(ctx); err != nil {
		return OutcomeErrored
	}

	fields := map[string]any{
		mapping.EncryptedField:               cryptoDomain.FormatForStorage(payload),
		mapping.PlainField:                   nil,
		mapping.PlainField + ClearedAtSuffix: time.Now().UTC().Format(time.RFC3339),
	}
	if err := r.documents.Update(ctx, mapping.Collection, doc.ID, fields); err != nil {
		logger.Error("failed to write migrated record",
			slog.String("document_id", doc.ID),
			slog.String("error", err.Error()),
		)
		return OutcomeErrored
	}

	return OutcomeMigrated
}

func (r *Runner) wait(ctx context.Context) error {
	if r.limiter == nil {
		return nil
	}
	return r.limiter.Wait(ctx)
}

// NewRunner creates a migration runner. limiter may be nil for unthrottled
// write backs.
func NewRunner(
	documents store.DocumentStore,
	payloads cryptoUseCase.PayloadUseCase,
	mappings []store.CollectionField,
	limiter *rate.Limiter,
	businessMetrics metrics.BusinessMetrics,
	logger *slog.Logger,
) *Runner {
	return &Runner{
		documents:       documents,
		payloads:        payloads,
		mappings:        mappings,
		limiter:         limiter,
		businessMetrics: businessMetrics,
		logger:          logger,
	}
}
