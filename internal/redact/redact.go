// Package redact provides advisory PII scrubbing for free text bound for
// logs, analytics or support tooling.
//
// The redactor is pattern-based hygiene, not a security boundary: it blunts
// accidental exposure of the obvious identifier shapes and makes no promise
// about exotic formats. Text that must stay confidential belongs in an
// encrypted field, not behind the redactor.
package redact

import (
	"regexp"
)

// Placeholders substituted for matched PII.
const (
	EmailPlaceholder = "[EMAIL REDACTED]"
	PhonePlaceholder = "[PHONE REDACTED]"
	CardPlaceholder  = "[CARD REDACTED]"
)

var (
	emailPattern = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)

	// The separators are mandatory so a 16-digit card number grouped 4-4-4-4
	// can never be half-eaten by the phone pattern.
	phonePattern = regexp.MustCompile(`\(?\d{3}\)?[-.\s]\d{3}[-.\s]\d{4}\b`)

	cardPattern = regexp.MustCompile(`\b(?:\d[ \-]?){15}\d\b`)
)

// Redactor scrubs common PII shapes from text. A disabled redactor returns
// its input untouched.
type Redactor struct {
	enabled bool
}

// Redact substitutes email addresses, phone numbers and 16-digit card-like
// numbers with fixed placeholders, in that order.
func (r *Redactor) Redact(text string) string {
	if !r.enabled || text == "" {
		return text
	}

	text = emailPattern.ReplaceAllString(text, EmailPlaceholder)
	text = phonePattern.ReplaceAllString(text, PhonePlaceholder)
	text = cardPattern.ReplaceAllString(text, CardPlaceholder)

	return text
}

// New creates a Redactor. Pass the REDACTION_ENABLED config value; a
// disabled redactor is a safe no-op.
func New(enabled bool) *Redactor {
	return &Redactor{enabled: enabled}
}
