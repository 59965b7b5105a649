package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	apperrors "github.com/brightchat/fieldvault/internal/errors"
	"github.com/brightchat/fieldvault/internal/store"
)

// MySQLRepository implements store.DocumentStore on JSON document tables.
//
// Schema requirements per collection:
//   - id: VARCHAR(255) PRIMARY KEY
//   - doc: JSON NOT NULL (the document fields, the id stays outside)
//
// Updates use JSON_MERGE_PATCH (RFC 7396), so a nil field value removes the
// key from the document. RowsAffected backs the not-found check; connection
// strings should set clientFoundRows=true so an update that happens to leave
// the document unchanged is not reported as missing.
type MySQLRepository struct {
	db *sql.DB
}

// List returns one page of documents in id order.
func (m *MySQLRepository) List(
	ctx context.Context,
	collection string,
	filter map[string]any,
	limit, offset int,
) ([]*store.Document, error) {
	if err := validateCollection(collection); err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`SELECT id, doc FROM %s`, collection)
	args := []any{}

	if len(filter) > 0 {
		match, err := json.Marshal(filter)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to encode filter")
		}
		args = append(args, match)
		query += ` WHERE JSON_CONTAINS(doc, ?, '$')`
	}

	query += ` ORDER BY id`

	if limit > 0 {
		args = append(args, limit)
		query += ` LIMIT ?`
	}
	if offset > 0 {
		args = append(args, offset)
		query += ` OFFSET ?`
	}

	rows, err := m.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", store.ErrStoreUnavailable, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var docs []*store.Document
	for rows.Next() {
		var (
			id  string
			raw []byte
		)
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, fmt.Errorf("%w: %v", store.ErrStoreUnavailable, err)
		}

		doc, err := unmarshalDoc(id, raw)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", store.ErrStoreUnavailable, err)
	}

	return docs, nil
}

// Update applies a shallow field patch to one document.
func (m *MySQLRepository) Update(
	ctx context.Context,
	collection, id string,
	fields map[string]any,
) error {
	if err := validateCollection(collection); err != nil {
		return err
	}
	if len(fields) == 0 {
		return nil
	}

	patch, err := json.Marshal(fields)
	if err != nil {
		return apperrors.Wrap(err, "failed to encode document patch")
	}

	query := fmt.Sprintf(`UPDATE %s SET doc = JSON_MERGE_PATCH(doc, ?) WHERE id = ?`, collection)

	result, err := m.db.ExecContext(ctx, query, patch, id)
	if err != nil {
		return fmt.Errorf("%w: %v", store.ErrStoreUnavailable, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: %v", store.ErrStoreUnavailable, err)
	}
	if affected == 0 {
		return store.ErrDocumentNotFound
	}

	return nil
}

// NewMySQLRepository creates a new MySQL document repository.
func NewMySQLRepository(db *sql.DB) *MySQLRepository {
	return &MySQLRepository{db: db}
}
