package integration

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cryptoDomain "github.com/brightchat/fieldvault/internal/crypto/domain"
	cryptoService "github.com/brightchat/fieldvault/internal/crypto/service"
	cryptoUseCase "github.com/brightchat/fieldvault/internal/crypto/usecase"
	"github.com/brightchat/fieldvault/internal/metrics"
	"github.com/brightchat/fieldvault/internal/migration"
	"github.com/brightchat/fieldvault/internal/rotation"
	"github.com/brightchat/fieldvault/internal/store"
	"github.com/brightchat/fieldvault/internal/store/repository"
	"github.com/brightchat/fieldvault/internal/testutil"
)

// sqlStoreContext bundles one SQL-backed driver run: the raw connection for
// seeding and raw-state reads, and the repository the engines go through.
type sqlStoreContext struct {
	driver    string
	db        *sql.DB
	documents store.DocumentStore
	payloads  cryptoUseCase.PayloadUseCase
	mappings  []store.CollectionField
	master    *cryptoDomain.MasterSecret
	newMaster *cryptoDomain.MasterSecret
}

func parseTestSecret(t *testing.T, version string) *cryptoDomain.MasterSecret {
	t.Helper()

	secret, err := cryptoDomain.ParseMasterSecret(randomSecretB64(t), version)
	require.NoError(t, err, "failed to parse test secret")
	return secret
}

// setupSQLStoreTest connects to the driver's test database, skipping the test
// when it is not reachable, and builds the matching repository and engines'
// dependencies.
func setupSQLStoreTest(t *testing.T, driver string) *sqlStoreContext {
	t.Helper()

	var (
		db        *sql.DB
		documents store.DocumentStore
	)
	switch driver {
	case "postgres":
		db = testutil.SetupPostgresDB(t)
		documents = repository.NewPostgreSQLRepository(db)
	case "mysql":
		db = testutil.SetupMySQLDB(t)
		documents = repository.NewMySQLRepository(db)
	default:
		t.Fatalf("unknown driver %q", driver)
	}
	t.Cleanup(func() { testutil.TeardownDB(t, db) })

	mappings, err := store.ParseCollectionFields(
		"chat_messages:body:body_enc,accounts:notes:notes_enc",
	)
	require.NoError(t, err, "failed to parse collection mappings")

	return &sqlStoreContext{
		driver:    driver,
		db:        db,
		documents: documents,
		payloads: cryptoUseCase.NewPayloadUseCase(
			cryptoService.NewPayloadCipher(),
			cryptoService.NewDataKeyManager(),
		),
		mappings:  mappings,
		master:    parseTestSecret(t, "v1"),
		newMaster: parseTestSecret(t, "v2"),
	}
}

func (tc *sqlStoreContext) newRunner() *migration.Runner {
	return migration.NewRunner(
		tc.documents,
		tc.payloads,
		tc.mappings,
		nil,
		metrics.NewNoOpBusinessMetrics(),
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	)
}

func (tc *sqlStoreContext) newEngine() *rotation.Engine {
	return rotation.NewEngine(
		tc.documents,
		tc.payloads,
		tc.mappings,
		nil,
		metrics.NewNoOpBusinessMetrics(),
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	)
}

func (tc *sqlStoreContext) encRecord(t *testing.T, collection, id, encField string) map[string]any {
	t.Helper()

	fields := testutil.GetDocument(t, tc.db, tc.driver, collection, id)
	record, ok := fields[encField].(map[string]any)
	require.True(t, ok, "document %s has no %s record", id, encField)
	return record
}

func (tc *sqlStoreContext) decrypt(t *testing.T, record map[string]any, secret *cryptoDomain.MasterSecret) string {
	t.Helper()

	payload, err := cryptoDomain.ParseFromStorage(record)
	require.NoError(t, err, "stored record does not parse")

	plaintext, err := tc.payloads.Decrypt(payload, secret)
	require.NoError(t, err, "stored record does not decrypt")
	return plaintext
}

// TestIntegration_SQLStores runs the migration and rotation engines against
// real PostgreSQL and MySQL document tables and asserts the raw stored JSON,
// including the drivers' different handling of cleared fields. Requires the
// test databases from docker-compose; skipped when they are not reachable.
func TestIntegration_SQLStores(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	for _, driver := range []string{"postgres", "mysql"} {
		t.Run(driver, func(t *testing.T) {
			tc := setupSQLStoreTest(t, driver)
			ctx := context.Background()

			texts := map[string]string{
				"msg-1":  "my tracking number is BC-4411",
				"msg-2":  "thanks, that resolved it",
				"msg-3":  "card ending 4242 stays on file",
				"acct-1": "prefers contact by email, never phone",
			}

			testutil.InsertDocument(t, tc.db, driver, "chat_messages", "msg-1",
				map[string]any{"body": texts["msg-1"], "author": "visitor"})
			testutil.InsertDocument(t, tc.db, driver, "chat_messages", "msg-2",
				map[string]any{"body": texts["msg-2"], "author": "visitor"})

			// msg-3 is already encrypted; migration must leave it alone.
			payload, err := tc.payloads.Encrypt(texts["msg-3"], tc.master)
			require.NoError(t, err)
			testutil.InsertDocument(t, tc.db, driver, "chat_messages", "msg-3",
				map[string]any{"body_enc": cryptoDomain.FormatForStorage(payload)})

			testutil.InsertDocument(t, tc.db, driver, "accounts", "acct-1",
				map[string]any{"notes": texts["acct-1"]})

			t.Run("MigratePlaintext", func(t *testing.T) {
				summary, err := tc.newRunner().Run(ctx, migration.Config{
					BatchSize: 2,
					Secret:    tc.master,
				})
				require.NoError(t, err)

				assert.Equal(t, 4, summary.Processed)
				assert.Equal(t, 3, summary.Migrated)
				assert.Equal(t, 1, summary.Skipped)
				assert.Equal(t, 0, summary.Errors)

				fields := testutil.GetDocument(t, tc.db, driver, "chat_messages", "msg-1")

				if driver == "postgres" {
					// jsonb concatenation keeps the cleared field as an
					// explicit null.
					value, present := fields["body"]
					assert.True(t, present, "cleared field should remain as null")
					assert.Nil(t, value)
				} else {
					// JSON_MERGE_PATCH removes the key entirely.
					assert.NotContains(t, fields, "body")
				}

				cleared, ok := fields["body_cleared_at"].(string)
				require.True(t, ok, "cleared-at marker missing")
				_, err = time.Parse(time.RFC3339, cleared)
				assert.NoError(t, err, "cleared-at marker is not RFC3339")

				// Untouched fields survive the patch.
				assert.Equal(t, "visitor", fields["author"])

				record, ok := fields["body_enc"].(map[string]any)
				require.True(t, ok, "encrypted field missing")
				assert.Equal(t, "v1", record[cryptoDomain.FieldKeyVersion])
				assert.Equal(t, texts["msg-1"], tc.decrypt(t, record, tc.master))
			})

			t.Run("RotateKeys", func(t *testing.T) {
				summary, err := tc.newEngine().Run(ctx, rotation.Config{
					BatchSize: 2,
					OldSecret: tc.master,
					NewSecret: tc.newMaster,
				})
				require.NoError(t, err)

				assert.Equal(t, 4, summary.Processed)
				assert.Equal(t, 4, summary.Rotated)
				assert.Equal(t, 0, summary.Skipped)
				assert.Equal(t, 0, summary.Errors)

				// The pre-encrypted record rotated along with the migrated ones.
				record := tc.encRecord(t, "chat_messages", "msg-3", "body_enc")
				assert.Equal(t, "v2", record[cryptoDomain.FieldKeyVersion])
				assert.Equal(t, texts["msg-3"], tc.decrypt(t, record, tc.newMaster))

				record = tc.encRecord(t, "accounts", "acct-1", "notes_enc")
				assert.Equal(t, texts["acct-1"], tc.decrypt(t, record, tc.newMaster))
			})

			t.Run("RotationIsIdempotent", func(t *testing.T) {
				summary, err := tc.newEngine().Run(ctx, rotation.Config{
					BatchSize: 2,
					OldSecret: tc.master,
					NewSecret: tc.newMaster,
				})
				require.NoError(t, err)

				assert.Equal(t, 4, summary.Processed)
				assert.Equal(t, 0, summary.Rotated)
				assert.Equal(t, 4, summary.Skipped)
			})
		})
	}
}
