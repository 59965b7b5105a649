package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	apperrors "github.com/brightchat/fieldvault/internal/errors"
	"github.com/brightchat/fieldvault/internal/store"
)

// PostgreSQLRepository implements store.DocumentStore on JSONB document
// tables.
//
// Schema requirements per collection:
//   - id: TEXT PRIMARY KEY
//   - doc: JSONB NOT NULL (the document fields, the id stays outside)
//
// Updates are shallow jsonb concatenations (doc || patch), so a nil field
// value lands as an explicit JSON null rather than being removed. Readers
// treat null and absent alike, which keeps the clearing semantics intact.
type PostgreSQLRepository struct {
	db *sql.DB
}

// List returns one page of documents in id order.
func (p *PostgreSQLRepository) List(
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
		query += fmt.Sprintf(` WHERE doc @> $%d::jsonb`, len(args))
	}

	query += ` ORDER BY id`

	if limit > 0 {
		args = append(args, limit)
		query += fmt.Sprintf(` LIMIT $%d`, len(args))
	}
	if offset > 0 {
		args = append(args, offset)
		query += fmt.Sprintf(` OFFSET $%d`, len(args))
	}

	rows, err := p.db.QueryContext(ctx, query, args...)
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
func (p *PostgreSQLRepository) Update(
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

	query := fmt.Sprintf(`UPDATE %s SET doc = doc || $1::jsonb WHERE id = $2`, collection)

	result, err := p.db.ExecContext(ctx, query, patch, id)
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

// NewPostgreSQLRepository creates a new PostgreSQL document repository.
func NewPostgreSQLRepository(db *sql.DB) *PostgreSQLRepository {
	return &PostgreSQLRepository{db: db}
}
