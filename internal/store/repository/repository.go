// Package repository implements the store.DocumentStore contract for the
// supported backends.
//
// Three implementations exist:
//   - DocstoreRepository: gocloud.dev docstore collections opened by URL
//     (memdocstore for local runs and tests, mongodocstore for MongoDB)
//   - PostgreSQLRepository: JSONB document tables
//   - MySQLRepository: JSON document tables
//
// The SQL backends model each collection as a two-column table
// (id TEXT PRIMARY KEY, doc JSON/JSONB) so the engines see the same
// document shape everywhere.
package repository

import (
	"encoding/json"
	"fmt"

	validation "github.com/jellydator/validation"

	apperrors "github.com/brightchat/fieldvault/internal/errors"
	"github.com/brightchat/fieldvault/internal/store"
	appvalidation "github.com/brightchat/fieldvault/internal/validation"
)

// validateCollection gates names before they reach SQL statements or
// provider URLs.
func validateCollection(collection string) error {
	if err := validation.Validate(collection, validation.Required, appvalidation.Identifier); err != nil {
		return fmt.Errorf("%w: %q", store.ErrInvalidCollection, collection)
	}
	return nil
}

// unmarshalDoc decodes a JSON document column into a Document.
func unmarshalDoc(id string, raw []byte) (*store.Document, error) {
	fields := map[string]any{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &fields); err != nil {
			return nil, apperrors.Wrapf(err, "failed to decode document %s", id)
		}
	}
	return &store.Document{ID: id, Fields: fields}, nil
}
