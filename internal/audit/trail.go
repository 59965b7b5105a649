package audit

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	cryptoDomain "github.com/brightchat/fieldvault/internal/crypto/domain"
)

// Trail appends signed run entries to a JSONL file. A Trail with an empty
// path is disabled and records nothing, so callers never need to branch on
// whether auditing is configured.
type Trail struct {
	path   string
	secret *cryptoDomain.MasterSecret
	signer *Signer

	mu sync.Mutex
}

// NewTrail creates a trail writing to path, signed under secret. An empty
// path disables the trail.
func NewTrail(path string, secret *cryptoDomain.MasterSecret) *Trail {
	return &Trail{
		path:   path,
		secret: secret,
		signer: NewSigner(),
	}
}

// Enabled reports whether the trail writes anywhere.
func (t *Trail) Enabled() bool {
	return t != nil && t.path != ""
}

// Record signs the entry and appends it as one JSON line. A disabled trail
// returns nil without writing.
func (t *Trail) Record(entry Entry) error {
	if !t.Enabled() {
		return nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.signer.Sign(t.secret, &entry); err != nil {
		return err
	}

	line, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal audit entry: %w", err)
	}

	file, err := os.OpenFile(t.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("failed to open audit trail: %w", err)
	}

	if _, err := file.Write(append(line, '\n')); err != nil {
		_ = file.Close()
		return fmt.Errorf("failed to append audit entry: %w", err)
	}

	return file.Close()
}

// InvalidEntry describes one line that failed verification.
type InvalidEntry struct {
	Line   int    `json:"line"`
	RunID  string `json:"run_id,omitempty"`
	Reason string `json:"reason"`
}

// VerifyResult reports the outcome of verifying one trail file.
type VerifyResult struct {
	Total   int            `json:"total"`
	Valid   int            `json:"valid"`
	Invalid []InvalidEntry `json:"invalid,omitempty"`
}

// Ok reports whether every entry verified.
func (r *VerifyResult) Ok() bool {
	return len(r.Invalid) == 0
}

// VerifyFile re-checks the signature of every line in a trail file. Blank
// lines are ignored; unreadable or tampered lines are reported per line and
// do not stop verification.
func VerifyFile(path string, secret *cryptoDomain.MasterSecret) (*VerifyResult, error) {
	if !secret.Valid() {
		return nil, cryptoDomain.ErrInvalidMasterSecret
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit trail: %w", err)
	}
	defer func() {
		_ = file.Close()
	}()

	signer := NewSigner()
	result := &VerifyResult{}

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 {
			continue
		}
		result.Total++

		var entry Entry
		if err := json.Unmarshal(raw, &entry); err != nil {
			result.Invalid = append(result.Invalid, InvalidEntry{
				Line:   lineNo,
				Reason: "not valid JSON",
			})
			continue
		}

		if err := signer.Verify(secret, &entry); err != nil {
			result.Invalid = append(result.Invalid, InvalidEntry{
				Line:   lineNo,
				RunID:  entry.RunID,
				Reason: "signature mismatch",
			})
			continue
		}

		result.Valid++
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read audit trail: %w", err)
	}

	return result, nil
}
