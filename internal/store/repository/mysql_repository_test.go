package repository

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brightchat/fieldvault/internal/store"
)

func newMySQLMock(t *testing.T) (*MySQLRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewMySQLRepository(db), mock
}

func TestMySQLRepository_List(t *testing.T) {
	ctx := context.Background()

	t.Run("lists a page in id order", func(t *testing.T) {
		repo, mock := newMySQLMock(t)

		rows := sqlmock.NewRows([]string{"id", "doc"}).
			AddRow("acc-1", []byte(`{"notes":"vip customer"}`)).
			AddRow("acc-2", []byte(`{"notes":"churned"}`))
		mock.ExpectQuery(regexp.QuoteMeta(
			`SELECT id, doc FROM accounts ORDER BY id LIMIT ? OFFSET ?`,
		)).WithArgs(2, 2).WillReturnRows(rows)

		docs, err := repo.List(ctx, "accounts", nil, 2, 2)
		require.NoError(t, err)
		require.Len(t, docs, 2)
		assert.Equal(t, "acc-1", docs[0].ID)
		assert.Equal(t, "vip customer", docs[0].Fields["notes"])
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("filter becomes a JSON_CONTAINS match", func(t *testing.T) {
		repo, mock := newMySQLMock(t)

		rows := sqlmock.NewRows([]string{"id", "doc"}).
			AddRow("acc-1", []byte(`{"plan":"pro"}`))
		mock.ExpectQuery(regexp.QuoteMeta(
			`SELECT id, doc FROM accounts WHERE JSON_CONTAINS(doc, ?, '$') ORDER BY id LIMIT ?`,
		)).WithArgs([]byte(`{"plan":"pro"}`), 10).WillReturnRows(rows)

		docs, err := repo.List(ctx, "accounts", map[string]any{"plan": "pro"}, 10, 0)
		require.NoError(t, err)
		require.Len(t, docs, 1)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unsafe collection name never reaches the database", func(t *testing.T) {
		repo, _ := newMySQLMock(t)

		docs, err := repo.List(ctx, "accounts WHERE 1=1", nil, 10, 0)
		assert.ErrorIs(t, err, store.ErrInvalidCollection)
		assert.Nil(t, docs)
	})

	t.Run("query failure maps to ErrStoreUnavailable", func(t *testing.T) {
		repo, mock := newMySQLMock(t)

		mock.ExpectQuery(regexp.QuoteMeta(
			`SELECT id, doc FROM accounts ORDER BY id LIMIT ?`,
		)).WillReturnError(assert.AnError)

		docs, err := repo.List(ctx, "accounts", nil, 10, 0)
		assert.ErrorIs(t, err, store.ErrStoreUnavailable)
		assert.Nil(t, docs)
	})
}

func TestMySQLRepository_Update(t *testing.T) {
	ctx := context.Background()

	t.Run("merges the patch into the document", func(t *testing.T) {
		repo, mock := newMySQLMock(t)

		mock.ExpectExec(regexp.QuoteMeta(
			`UPDATE accounts SET doc = JSON_MERGE_PATCH(doc, ?) WHERE id = ?`,
		)).WithArgs([]byte(`{"notes":null}`), "acc-1").
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.Update(ctx, "accounts", "acc-1", map[string]any{"notes": nil})
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing document", func(t *testing.T) {
		repo, mock := newMySQLMock(t)

		mock.ExpectExec(regexp.QuoteMeta(
			`UPDATE accounts SET doc = JSON_MERGE_PATCH(doc, ?) WHERE id = ?`,
		)).WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.Update(ctx, "accounts", "gone", map[string]any{"notes": "x"})
		assert.ErrorIs(t, err, store.ErrDocumentNotFound)
	})

	t.Run("empty patch is a no-op", func(t *testing.T) {
		repo, mock := newMySQLMock(t)

		err := repo.Update(ctx, "accounts", "acc-1", map[string]any{})
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
