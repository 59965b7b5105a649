// Package store defines the document storage contract the encryption
// engines operate on.
//
// Encrypted collections live in whichever document database the deployment
// uses; the engines only ever list pages of documents and patch individual
// fields back. DocumentStore captures exactly that surface so the rotation
// and migration code stays identical across gocloud docstore collections
// and PostgreSQL/MySQL JSON document tables.
package store

import (
	"context"
)

// Document is a single stored record: its identifier plus the remaining
// fields as loosely typed values, the way document databases return them.
// A field holding an explicit JSON null is indistinguishable from an absent
// field to readers.
type Document struct {
	ID     string
	Fields map[string]any
}

// DocumentStore abstracts the backing document database.
//
// List returns documents in stable ID order so offset pagination is
// deterministic across calls. filter restricts results to documents whose
// top-level fields equal the given values; a nil filter matches everything.
//
// Update applies a shallow field merge to one document: listed fields are
// replaced, unlisted fields are untouched, and a nil value clears the field.
// Updating a document that no longer exists returns ErrDocumentNotFound.
type DocumentStore interface {
	List(ctx context.Context, collection string, filter map[string]any, limit, offset int) ([]*Document, error)
	Update(ctx context.Context, collection, id string, fields map[string]any) error
}
