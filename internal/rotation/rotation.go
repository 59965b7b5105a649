// Package rotation implements the master secret rotation engine.
//
// Rotation rewraps each record's data key under a new master secret and
// never touches payload ciphertext, so a run over a large collection moves
// only a few dozen bytes per document. Records are processed page by page
// in stable id order; per-record failures are counted, never fatal. Legacy
// records that predate data key wrapping carry no wrap nonce/tag, cannot be
// rotated safely, and are skipped with a warning so operators can schedule
// a re-encryption.
//
// Running two rotations concurrently against the same collection is unsafe
// (racing unwrap/rewrap); operators must serialize runs externally.
package rotation

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

// Mode values stamped on run summaries.
const (
	ModeRotate  = "rotate"
	ModePreview = "preview"
)

// Outcome is the terminal state of one record.
type Outcome int

const (
	// OutcomeRotated means the record's data key was rewrapped (or would
	// have been, in preview mode).
	OutcomeRotated Outcome = iota
	// OutcomeSkipped means the record needed no rotation: not encrypted,
	// already on the target version, legacy, or unparseable.
	OutcomeSkipped
	// OutcomeErrored means unwrap, rewrap or the write back failed.
	OutcomeErrored
)

// Config controls one rotation run.
type Config struct {
	// Preview performs every cryptographic step but withholds writes.
	Preview bool
	// BatchSize is the page size. DefaultBatchSize when <= 0.
	BatchSize int
	// Collection restricts the run to one configured collection when set.
	Collection string
	// OldSecret unwraps existing data keys. NewSecret wraps them again and
	// its version label is stamped on every rotated record; records already
	// carrying that label are skipped, which makes interrupted runs safe to
	// resume.
	OldSecret *cryptoDomain.MasterSecret
	NewSecret *cryptoDomain.MasterSecret
}

// CollectionSummary counts record outcomes for one collection.
type CollectionSummary struct {
	Collection string `json:"collection"`
	Processed  int    `json:"processed"`
	Rotated    int    `json:"rotated"`
	Skipped    int    `json:"skipped"`
	Errors     int    `json:"errors"`
}

// Summary is the result of a rotation run.
type Summary struct {
	RunID         uuid.UUID           `json:"run_id"`
	Mode          string              `json:"mode"`
	TargetVersion string              `json:"target_version"`
	Collections   []CollectionSummary `json:"collections"`
	Processed     int                 `json:"processed"`
	Rotated       int                 `json:"rotated"`
	Skipped       int                 `json:"skipped"`
	Errors        int                 `json:"errors"`
	StartedAt     time.Time           `json:"started_at"`
	FinishedAt    time.Time           `json:"finished_at"`
}

// Engine walks the configured collections and rewraps data keys.
type Engine struct {
	documents       store.DocumentStore
	payloads        cryptoUseCase.PayloadUseCase
	mappings        []store.CollectionField
	limiter         *rate.Limiter
	businessMetrics metrics.BusinessMetrics
	logger          *slog.Logger
}

// Run executes a rotation over every configured collection (or the one
// named by cfg.Collection) and returns the aggregated summary.
//
// Read failures abort the affected collection, are counted as errors and do
// not stop the run. Context cancellation stops the run between pages and
// returns the partial summary alongside the context error.
func (e *Engine) Run(ctx context.Context, cfg Config) (*Summary, error) {
	if err := e.validate(cfg); err != nil {
		return nil, err
	}

	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}

	mode := ModeRotate
	if cfg.Preview {
		mode = ModePreview
	}

	summary := &Summary{
		RunID:         uuid.Must(uuid.NewV7()),
		Mode:          mode,
		TargetVersion: cfg.NewSecret.Version,
		StartedAt:     time.Now().UTC(),
	}

	logger := e.logger.With(
		slog.String("run_id", summary.RunID.String()),
		slog.String("mode", mode),
	)

	for _, mapping := range e.mappings {
		if cfg.Collection != "" && mapping.Collection != cfg.Collection {
			continue
		}

		collSummary, err := e.rotateCollection(ctx, cfg, mapping, logger)

		summary.Collections = append(summary.Collections, collSummary)
		summary.Processed += collSummary.Processed
		summary.Rotated += collSummary.Rotated
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
	e.businessMetrics.RecordDuration(
		ctx, "rotation", "run", summary.FinishedAt.Sub(summary.StartedAt), status,
	)

	logger.Info("rotation run complete",
		slog.Int("processed", summary.Processed),
		slog.Int("rotated", summary.Rotated),
		slog.Int("skipped", summary.Skipped),
		slog.Int("errors", summary.Errors),
	)

	return summary, nil
}

func (e *Engine) validate(cfg Config) error {
	if len(e.mappings) == 0 {
		return fmt.Errorf("%w: no encrypted collections configured", apperrors.ErrConfiguration)
	}
	if !cfg.OldSecret.Valid() || !cfg.NewSecret.Valid() {
		return cryptoDomain.ErrInvalidMasterSecret
	}
	if strings.TrimSpace(cfg.NewSecret.Version) == "" {
		return fmt.Errorf(
			"%w: new master secret must carry a version label",
			apperrors.ErrConfiguration,
		)
	}
	// An unchanged label would make every record wrapped under the old secret
	// look already rotated.
	if cfg.NewSecret.Version == cfg.OldSecret.Version {
		return fmt.Errorf(
			"%w: new master secret version %q must differ from the old one",
			apperrors.ErrConfiguration, cfg.NewSecret.Version,
		)
	}
	if cfg.Collection != "" && !e.hasMapping(cfg.Collection) {
		return fmt.Errorf(
			"%w: collection %q is not configured for encryption",
			apperrors.ErrInvalidInput, cfg.Collection,
		)
	}
	return nil
}

func (e *Engine) hasMapping(collection string) bool {
	for _, mapping := range e.mappings {
		if mapping.Collection == collection {
			return true
		}
	}
	return false
}

func (e *Engine) rotateCollection(
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

		docs, err := e.documents.List(ctx, mapping.Collection, nil, cfg.BatchSize, offset)
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

		rotatedInBatch := 0
		for _, doc := range docs {
			outcome := e.rotateRecord(ctx, cfg, mapping, doc, logger)

			collSummary.Processed++
			switch outcome {
			case OutcomeRotated:
				collSummary.Rotated++
				rotatedInBatch++
				e.businessMetrics.RecordOperation(ctx, "rotation", "record", "rotated")
			case OutcomeSkipped:
				collSummary.Skipped++
				e.businessMetrics.RecordOperation(ctx, "rotation", "record", "skipped")
			case OutcomeErrored:
				collSummary.Errors++
				e.businessMetrics.RecordOperation(ctx, "rotation", "record", "errored")
			}
		}

		logger.Info("rotation batch complete",
			slog.Int("offset", offset),
			slog.Int("batch_size", len(docs)),
			slog.Int("rotated_in_batch", rotatedInBatch),
		)

		if len(docs) < cfg.BatchSize {
			break
		}
		offset += cfg.BatchSize
	}

	return collSummary, nil
}

// rotateRecord decides and applies the terminal state for one record.
func (e *Engine) rotateRecord(
	ctx context.Context,
	cfg Config,
	mapping store.CollectionField,
	doc *store.Document,
	logger *slog.Logger,
) Outcome {
	raw, ok := doc.Fields[mapping.EncryptedField].(map[string]any)
	if !ok {
		// Nothing encrypted in this document.
		return OutcomeSkipped
	}

	payload, err := cryptoDomain.ParseFromStorage(raw)
	if err != nil {
		logger.Warn("skipping malformed encrypted record",
			slog.String("document_id", doc.ID),
			slog.String("error", err.Error()),
		)
		return OutcomeSkipped
	}

	if payload.KeyVersion == cfg.NewSecret.Version {
		return OutcomeSkipped
	}

	if payload.IsLegacy() {
		logger.Warn("skipping legacy record without wrap fields",
			slog.String("document_id", doc.ID),
		)
		return OutcomeSkipped
	}

	if err := e.payloads.Rewrap(payload, cfg.OldSecret, cfg.NewSecret); err != nil {
		logger.Error("failed to rewrap data key",
			slog.String("document_id", doc.ID),
			slog.String("error", err.Error()),
		)
		return OutcomeErrored
	}

	if cfg.Preview {
		return OutcomeRotated
	}

	if err := e.wait(ctx); err != nil {
		return OutcomeErrored
	}

	fields := map[string]any{
		mapping.EncryptedField: cryptoDomain.FormatForStorage(payload),
	}
	if err := e.documents.Update(ctx, mapping.Collection, doc.ID, fields); err != nil {
		logger.Error("failed to write rotated record",
			slog.String("document_id", doc.ID),
			slog.String("error", err.Error()),
		)
		return OutcomeErrored
	}

	return OutcomeRotated
}

func (e *Engine) wait(ctx context.Context) error {
	if e.limiter == nil {
		return nil
	}
	return e.limiter.Wait(ctx)
}

// NewEngine creates a rotation engine. limiter may be nil for unthrottled
// write backs.
func NewEngine(
	documents store.DocumentStore,
	payloads cryptoUseCase.PayloadUseCase,
	mappings []store.CollectionField,
	limiter *rate.Limiter,
	businessMetrics metrics.BusinessMetrics,
	logger *slog.Logger,
) *Engine {
	return &Engine{
		documents:       documents,
		payloads:        payloads,
		mappings:        mappings,
		limiter:         limiter,
		businessMetrics: businessMetrics,
		logger:          logger,
	}
}
