package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/brightchat/fieldvault/internal/audit"
	"github.com/brightchat/fieldvault/internal/rotation"
)

// Manual mock since the engine is a concrete type in its own package.
type mockKeyRotator struct {
	mock.Mock
}

func (m *mockKeyRotator) Run(ctx context.Context, cfg rotation.Config) (*rotation.Summary, error) {
	args := m.Called(ctx, cfg)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*rotation.Summary), args.Error(1)
}

func rotationSummaryFixture() *rotation.Summary {
	started := time.Now().UTC()
	return &rotation.Summary{
		RunID:         uuid.Must(uuid.NewV7()),
		Mode:          rotation.ModeRotate,
		TargetVersion: "v2",
		Collections: []rotation.CollectionSummary{
			{Collection: "chat_messages", Processed: 5, Rotated: 3, Skipped: 2},
		},
		Processed:  5,
		Rotated:    3,
		Skipped:    2,
		StartedAt:  started,
		FinishedAt: started.Add(120 * time.Millisecond),
	}
}

func TestRunRotateKeys(t *testing.T) {
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := rotation.Config{BatchSize: 100}
	disabledTrail := audit.NewTrail("", nil)

	t.Run("success-text", func(t *testing.T) {
		mockEngine := &mockKeyRotator{}
		mockEngine.On("Run", ctx, cfg).Return(rotationSummaryFixture(), nil)

		var out bytes.Buffer
		err := RunRotateKeys(ctx, mockEngine, disabledTrail, nil, logger, &out, cfg, "text")
		require.NoError(t, err)
		require.Contains(t, out.String(), "Key Rotation Summary")
		require.Contains(t, out.String(), "chat_messages: processed=5 rotated=3 skipped=2 errors=0")
		require.Contains(t, out.String(), "Status: PASSED ✓")
		mockEngine.AssertExpectations(t)
	})

	t.Run("success-json", func(t *testing.T) {
		mockEngine := &mockKeyRotator{}
		mockEngine.On("Run", ctx, cfg).Return(rotationSummaryFixture(), nil)

		var out bytes.Buffer
		err := RunRotateKeys(ctx, mockEngine, disabledTrail, nil, logger, &out, cfg, "json")
		require.NoError(t, err)

		var result map[string]interface{}
		err = json.Unmarshal(out.Bytes(), &result)
		require.NoError(t, err)
		require.Equal(t, "rotate", result["mode"])
		require.Equal(t, "v2", result["target_version"])
		require.Equal(t, float64(3), result["rotated"])
		mockEngine.AssertExpectations(t)
	})

	t.Run("preview-status", func(t *testing.T) {
		summary := rotationSummaryFixture()
		summary.Mode = rotation.ModePreview
		previewCfg := rotation.Config{Preview: true, BatchSize: 100}

		mockEngine := &mockKeyRotator{}
		mockEngine.On("Run", ctx, previewCfg).Return(summary, nil)

		var out bytes.Buffer
		err := RunRotateKeys(ctx, mockEngine, disabledTrail, nil, logger, &out, previewCfg, "text")
		require.NoError(t, err)
		require.Contains(t, out.String(), "Status: PREVIEW ONLY (no writes) ✓")
		mockEngine.AssertExpectations(t)
	})

	t.Run("run-error", func(t *testing.T) {
		mockEngine := &mockKeyRotator{}
		mockEngine.On("Run", ctx, cfg).Return(nil, errors.New("no encrypted collections configured"))

		var out bytes.Buffer
		err := RunRotateKeys(ctx, mockEngine, disabledTrail, nil, logger, &out, cfg, "text")
		require.Error(t, err)
		require.Contains(t, err.Error(), "rotation run failed")
		require.Empty(t, out.String())
		mockEngine.AssertExpectations(t)
	})

	t.Run("record-errors-fail-exit", func(t *testing.T) {
		summary := rotationSummaryFixture()
		summary.Errors = 2
		summary.Collections[0].Errors = 2

		mockEngine := &mockKeyRotator{}
		mockEngine.On("Run", ctx, cfg).Return(summary, nil)

		var out bytes.Buffer
		err := RunRotateKeys(ctx, mockEngine, disabledTrail, nil, logger, &out, cfg, "text")
		require.Error(t, err)
		require.Contains(t, err.Error(), "2 record error(s)")
		require.Contains(t, out.String(), "Status: COMPLETED WITH ERRORS ❌")
		mockEngine.AssertExpectations(t)
	})

	t.Run("audit-recorded", func(t *testing.T) {
		secret := testMasterSecret("v1", 0x41)
		trailPath := filepath.Join(t.TempDir(), "audit.jsonl")
		trail := audit.NewTrail(trailPath, secret)

		mockEngine := &mockKeyRotator{}
		mockEngine.On("Run", ctx, cfg).Return(rotationSummaryFixture(), nil)

		var out bytes.Buffer
		err := RunRotateKeys(ctx, mockEngine, trail, nil, logger, &out, cfg, "text")
		require.NoError(t, err)

		result, err := audit.VerifyFile(trailPath, secret)
		require.NoError(t, err)
		require.Equal(t, 1, result.Total)
		require.True(t, result.Ok())
		mockEngine.AssertExpectations(t)
	})

	t.Run("partial-run-still-audited", func(t *testing.T) {
		secret := testMasterSecret("v1", 0x41)
		trailPath := filepath.Join(t.TempDir(), "audit.jsonl")
		trail := audit.NewTrail(trailPath, secret)

		partial := rotationSummaryFixture()
		mockEngine := &mockKeyRotator{}
		mockEngine.On("Run", ctx, cfg).Return(partial, context.Canceled)

		var out bytes.Buffer
		err := RunRotateKeys(ctx, mockEngine, trail, nil, logger, &out, cfg, "text")
		require.Error(t, err)
		require.Contains(t, err.Error(), "rotation run failed")
		require.Contains(t, out.String(), "Key Rotation Summary")

		result, err := audit.VerifyFile(trailPath, secret)
		require.NoError(t, err)
		require.Equal(t, 1, result.Total)
		require.True(t, result.Ok())
		mockEngine.AssertExpectations(t)
	})
}
