// Package audit maintains a signed, append-only trail of rotation and
// migration runs.
//
// Each run appends one JSON line carrying an HMAC-SHA256 signature computed
// with a key derived from the master secret, so the trail can be verified
// later without storing any extra secret. The trail is tamper-evident, not
// tamper-proof: altering a line breaks its signature, but deleting a whole
// line leaves no trace beyond the missing run id.
package audit

import (
	"time"

	"github.com/brightchat/fieldvault/internal/migration"
	"github.com/brightchat/fieldvault/internal/rotation"
)

// Kind values distinguishing the two run types in the trail.
const (
	KindRotation  = "rotation"
	KindMigration = "migration"
)

// CollectionCount is the per-collection slice of a trail entry. Changed is
// the engine-specific success count (rotated or migrated records).
type CollectionCount struct {
	Collection string `json:"collection"`
	Processed  int    `json:"processed"`
	Changed    int    `json:"changed"`
	Skipped    int    `json:"skipped"`
	Errors     int    `json:"errors"`
}

// Entry is one signed line of the trail. Signature is set by Signer.Sign and
// excluded from the signed bytes.
type Entry struct {
	RunID       string            `json:"run_id"`
	Kind        string            `json:"kind"`
	Mode        string            `json:"mode"`
	KeyVersion  string            `json:"key_version,omitempty"`
	Collections []CollectionCount `json:"collections,omitempty"`
	Processed   int               `json:"processed"`
	Changed     int               `json:"changed"`
	Skipped     int               `json:"skipped"`
	Errors      int               `json:"errors"`
	StartedAt   time.Time         `json:"started_at"`
	FinishedAt  time.Time         `json:"finished_at"`
	Signature   string            `json:"sig,omitempty"`
}

// RotationEntry converts a rotation summary into a trail entry.
func RotationEntry(summary *rotation.Summary) Entry {
	entry := Entry{
		RunID:      summary.RunID.String(),
		Kind:       KindRotation,
		Mode:       summary.Mode,
		KeyVersion: summary.TargetVersion,
		Processed:  summary.Processed,
		Changed:    summary.Rotated,
		Skipped:    summary.Skipped,
		Errors:     summary.Errors,
		StartedAt:  summary.StartedAt,
		FinishedAt: summary.FinishedAt,
	}
	for _, coll := range summary.Collections {
		entry.Collections = append(entry.Collections, CollectionCount{
			Collection: coll.Collection,
			Processed:  coll.Processed,
			Changed:    coll.Rotated,
			Skipped:    coll.Skipped,
			Errors:     coll.Errors,
		})
	}
	return entry
}

// MigrationEntry converts a migration summary into a trail entry.
func MigrationEntry(summary *migration.Summary) Entry {
	entry := Entry{
		RunID:      summary.RunID.String(),
		Kind:       KindMigration,
		Mode:       summary.Mode,
		KeyVersion: summary.KeyVersion,
		Processed:  summary.Processed,
		Changed:    summary.Migrated,
		Skipped:    summary.Skipped,
		Errors:     summary.Errors,
		StartedAt:  summary.StartedAt,
		FinishedAt: summary.FinishedAt,
	}
	for _, coll := range summary.Collections {
		entry.Collections = append(entry.Collections, CollectionCount{
			Collection: coll.Collection,
			Processed:  coll.Processed,
			Changed:    coll.Migrated,
			Skipped:    coll.Skipped,
			Errors:     coll.Errors,
		})
	}
	return entry
}
