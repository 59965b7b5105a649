package store

import (
	"github.com/brightchat/fieldvault/internal/errors"
)

// Store-specific error definitions.
var (
	// ErrStoreUnavailable indicates the backing document store failed to
	// serve a request. Engines abort the current collection when reads fail
	// with this error.
	ErrStoreUnavailable = errors.Wrap(errors.ErrUnavailable, "document store unavailable")

	// ErrDocumentNotFound indicates the document targeted by an update no
	// longer exists.
	ErrDocumentNotFound = errors.Wrap(errors.ErrNotFound, "document not found")

	// ErrInvalidCollection indicates a collection or field name that cannot
	// be used safely, typically because a SQL backend would interpolate it
	// into a statement.
	ErrInvalidCollection = errors.Wrap(errors.ErrInvalidInput, "invalid collection mapping")
)
