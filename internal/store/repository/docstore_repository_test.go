package repository

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brightchat/fieldvault/internal/store"
)

func newMemRepository(t *testing.T) *DocstoreRepository {
	t.Helper()
	repo := NewDocstoreRepository("mem://{collection}/_id", "_id")
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func TestDocstoreRepository_List(t *testing.T) {
	ctx := context.Background()

	t.Run("pages are stable and id ordered", func(t *testing.T) {
		repo := newMemRepository(t)

		// Seed out of order; listing must not depend on insertion order.
		for _, id := range []string{"msg-03", "msg-01", "msg-05", "msg-02", "msg-04"} {
			err := repo.Put(ctx, "chat_messages", id, map[string]any{"body": "body of " + id})
			require.NoError(t, err)
		}

		page1, err := repo.List(ctx, "chat_messages", nil, 2, 0)
		require.NoError(t, err)
		require.Len(t, page1, 2)
		assert.Equal(t, "msg-01", page1[0].ID)
		assert.Equal(t, "msg-02", page1[1].ID)

		page2, err := repo.List(ctx, "chat_messages", nil, 2, 2)
		require.NoError(t, err)
		require.Len(t, page2, 2)
		assert.Equal(t, "msg-03", page2[0].ID)

		page3, err := repo.List(ctx, "chat_messages", nil, 2, 4)
		require.NoError(t, err)
		require.Len(t, page3, 1)
		assert.Equal(t, "msg-05", page3[0].ID)

		page4, err := repo.List(ctx, "chat_messages", nil, 2, 6)
		require.NoError(t, err)
		assert.Empty(t, page4)
	})

	t.Run("fields exclude the id and revision bookkeeping", func(t *testing.T) {
		repo := newMemRepository(t)

		err := repo.Put(ctx, "accounts", "acc-1", map[string]any{
			"notes": "prefers email",
			"meta":  map[string]any{"plan": "pro"},
		})
		require.NoError(t, err)

		docs, err := repo.List(ctx, "accounts", nil, 10, 0)
		require.NoError(t, err)
		require.Len(t, docs, 1)
		assert.Equal(t, "acc-1", docs[0].ID)
		assert.Equal(t, "prefers email", docs[0].Fields["notes"])
		assert.Equal(t, map[string]any{"plan": "pro"}, docs[0].Fields["meta"])
		assert.NotContains(t, docs[0].Fields, "_id")
		assert.NotContains(t, docs[0].Fields, "DocstoreRevision")
	})

	t.Run("filter matches field equality", func(t *testing.T) {
		repo := newMemRepository(t)

		for i := 1; i <= 4; i++ {
			status := "open"
			if i%2 == 0 {
				status = "closed"
			}
			err := repo.Put(ctx, "chat_sessions", fmt.Sprintf("sess-%d", i), map[string]any{
				"status": status,
			})
			require.NoError(t, err)
		}

		docs, err := repo.List(ctx, "chat_sessions", map[string]any{"status": "open"}, 10, 0)
		require.NoError(t, err)
		require.Len(t, docs, 2)
		assert.Equal(t, "sess-1", docs[0].ID)
		assert.Equal(t, "sess-3", docs[1].ID)
	})

	t.Run("invalid collection name", func(t *testing.T) {
		repo := newMemRepository(t)

		docs, err := repo.List(ctx, "no spaces allowed", nil, 10, 0)
		assert.ErrorIs(t, err, store.ErrInvalidCollection)
		assert.Nil(t, docs)
	})
}

func TestDocstoreRepository_Update(t *testing.T) {
	ctx := context.Background()

	t.Run("sets and clears fields in one patch", func(t *testing.T) {
		repo := newMemRepository(t)

		err := repo.Put(ctx, "chat_messages", "msg-1", map[string]any{
			"body":   "hello world",
			"sender": "visitor",
		})
		require.NoError(t, err)

		err = repo.Update(ctx, "chat_messages", "msg-1", map[string]any{
			"body_enc": map[string]any{"c": "AAECAw==", "n": "BAUGBw=="},
			"body":     nil,
		})
		require.NoError(t, err)

		docs, err := repo.List(ctx, "chat_messages", nil, 10, 0)
		require.NoError(t, err)
		require.Len(t, docs, 1)
		assert.NotContains(t, docs[0].Fields, "body")
		assert.Equal(t, "visitor", docs[0].Fields["sender"])
		assert.Equal(t, map[string]any{"c": "AAECAw==", "n": "BAUGBw=="}, docs[0].Fields["body_enc"])
	})

	t.Run("missing document", func(t *testing.T) {
		repo := newMemRepository(t)

		err := repo.Put(ctx, "accounts", "acc-1", map[string]any{"notes": "x"})
		require.NoError(t, err)

		err = repo.Update(ctx, "accounts", "acc-2", map[string]any{"notes": "y"})
		assert.ErrorIs(t, err, store.ErrDocumentNotFound)
	})

	t.Run("empty patch is a no-op", func(t *testing.T) {
		repo := newMemRepository(t)

		err := repo.Update(ctx, "accounts", "acc-1", nil)
		assert.NoError(t, err)
	})
}
