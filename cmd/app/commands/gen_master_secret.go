package commands

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
	"log/slog"

	cryptoDomain "github.com/brightchat/fieldvault/internal/crypto/domain"
)

// RunGenMasterSecret generates a cryptographically secure 32-byte master
// secret and prints the environment lines that configure it. Key material is
// zeroed from memory after encoding. If version is empty, the label defaults
// to "v1".
//
// Output format:
//   - MASTER_SECRET="<base64-encoded-32-byte-secret>"
//   - MASTER_KEY_VERSION="<version>"
//
// Security: the output is secret material. Pipe it into a secrets manager
// rather than leaving it in shell history or log files.
func RunGenMasterSecret(logger *slog.Logger, writer io.Writer, version string) error {
	if version == "" {
		version = "v1"
	}

	secret := make([]byte, cryptoDomain.KeySize)
	if _, err := rand.Read(secret); err != nil {
		return fmt.Errorf("failed to generate master secret: %w", err)
	}

	encoded := base64.StdEncoding.EncodeToString(secret)
	cryptoDomain.Zero(secret)

	_, _ = fmt.Fprintln(writer, "# Master Secret Configuration")
	_, _ = fmt.Fprintln(writer, "# Copy these environment variables to your .env file or secrets manager")
	_, _ = fmt.Fprintln(writer)
	_, _ = fmt.Fprintf(writer, "MASTER_SECRET=\"%s\"\n", encoded)
	_, _ = fmt.Fprintf(writer, "MASTER_KEY_VERSION=\"%s\"\n", version)
	_, _ = fmt.Fprintln(writer)
	_, _ = fmt.Fprintln(writer, "# To rotate an existing deployment onto this secret, configure it as the")
	_, _ = fmt.Fprintln(writer, "# rotation target instead and run rotate-keys:")
	_, _ = fmt.Fprintf(writer, "# NEW_MASTER_SECRET=\"%s\"\n", encoded)
	_, _ = fmt.Fprintf(writer, "# NEW_MASTER_KEY_VERSION=\"%s\"\n", version)

	logger.Info("master secret generated", slog.String("version", version))

	return nil
}
