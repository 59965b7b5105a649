package commands

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/brightchat/fieldvault/internal/redact"
)

// RunRedact reads text from reader, scrubs the common PII shapes and writes
// the result to writer. Meant for piping support transcripts or log extracts
// through before sharing them. The text itself is never logged.
func RunRedact(
	redactor *redact.Redactor,
	logger *slog.Logger,
	reader io.Reader,
	writer io.Writer,
) error {
	data, err := io.ReadAll(reader)
	if err != nil {
		return fmt.Errorf("failed to read input: %w", err)
	}

	if _, err := io.WriteString(writer, redactor.Redact(string(data))); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	logger.Info("redaction completed", slog.Int("bytes", len(data)))

	return nil
}
