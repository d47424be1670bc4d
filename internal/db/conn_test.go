package db

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStore(t *testing.T) {
	t.Run("creates directory and database", func(t *testing.T) {
		dbPath := filepath.Join(t.TempDir(), "subdir", "test.db")

		ctx := context.Background()
		store, err := NewStore(ctx, dbPath)
		require.NoError(t, err)
		defer store.Close()

		_, err = os.Stat(dbPath)
		assert.NoError(t, err)
		assert.Equal(t, dbPath, store.Path())

		var result int
		err = store.QueryRowContext(ctx, "SELECT 1").Scan(&result)
		assert.NoError(t, err)
		assert.Equal(t, 1, result)
	})

	t.Run("sets WAL mode", func(t *testing.T) {
		ctx := context.Background()
		store, err := NewStore(ctx, filepath.Join(t.TempDir(), "test.db"))
		require.NoError(t, err)
		defer store.Close()

		var mode string
		err = store.QueryRowContext(ctx, "PRAGMA journal_mode").Scan(&mode)
		assert.NoError(t, err)
		assert.Equal(t, "wal", mode)
	})
}

func TestStore_Migrate(t *testing.T) {
	t.Run("creates feedback table", func(t *testing.T) {
		ctx := context.Background()
		store, err := NewStore(ctx, filepath.Join(t.TempDir(), "test.db"))
		require.NoError(t, err)
		defer store.Close()

		applied, err := store.Migrate(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, applied)

		var tableName string
		err = store.QueryRowContext(ctx,
			"SELECT name FROM sqlite_master WHERE type='table' AND name='feedback'").Scan(&tableName)
		assert.NoError(t, err)
		assert.Equal(t, "feedback", tableName)
	})

	t.Run("is idempotent", func(t *testing.T) {
		ctx := context.Background()
		store, err := NewStore(ctx, filepath.Join(t.TempDir(), "test.db"))
		require.NoError(t, err)
		defer store.Close()

		_, err = store.Migrate(ctx)
		require.NoError(t, err)

		applied, err := store.Migrate(ctx)
		require.NoError(t, err)
		assert.Zero(t, applied)

		count, err := store.CountFeedback(ctx)
		assert.NoError(t, err)
		assert.Equal(t, int64(0), count)
	})
}

func TestExtractUpMigration(t *testing.T) {
	t.Run("extracts up portion", func(t *testing.T) {
		content := `-- +migrate Up
CREATE TABLE test (id INTEGER);

-- +migrate Down
DROP TABLE test;
`
		assert.Equal(t, "CREATE TABLE test (id INTEGER);", extractUpMigration(content))
	})

	t.Run("handles no down marker", func(t *testing.T) {
		content := "CREATE TABLE test (id INTEGER);"
		assert.Equal(t, "CREATE TABLE test (id INTEGER);", extractUpMigration(content))
	})

	t.Run("handles up marker without down", func(t *testing.T) {
		content := "-- +migrate Up\nCREATE TABLE test (id INTEGER);\n"
		assert.Equal(t, "CREATE TABLE test (id INTEGER);", extractUpMigration(content))
	})
}

func TestQueries_Feedback(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	first, err := store.InsertFeedback(ctx, InsertFeedbackParams{
		RecordedAt:       "20250101_120000",
		SourceText:       "Mężczyzna wchodzi do autobusu.",
		SystemPrompt:     "system",
		Style:            "photographic",
		TextTemperature:  0.6,
		ImageTemperature: 0.4,
		Reasoning:        "KROK1",
		FinalPrompt:      "A man boarding a bus.",
		ImageFilename:    "etr_image_20250101_120000.png",
		Rating:           "Dobrze",
	})
	require.NoError(t, err)
	assert.NotZero(t, first.ID)
	assert.Equal(t, "Mężczyzna wchodzi do autobusu.", first.SourceText)
	assert.Equal(t, "", first.Comments)

	_, err = store.InsertFeedback(ctx, InsertFeedbackParams{
		RecordedAt:    "20250101_120005",
		SourceText:    "Kot śpi.",
		FinalPrompt:   "A cat sleeping.",
		ImageFilename: "etr_image_20250101_120005.png",
		Rating:        "Źle",
		Comments:      "za dużo szczegółów",
	})
	require.NoError(t, err)

	t.Run("duplicate image filename rejected", func(t *testing.T) {
		_, err := store.InsertFeedback(ctx, InsertFeedbackParams{
			RecordedAt:    "20250101_120005",
			ImageFilename: "etr_image_20250101_120005.png",
			Rating:        "Źle",
		})
		assert.Error(t, err)
	})

	t.Run("list in insertion order", func(t *testing.T) {
		items, err := store.ListFeedback(ctx)
		require.NoError(t, err)
		require.Len(t, items, 2)
		assert.Equal(t, "Kot śpi.", items[1].SourceText)
		assert.Equal(t, "za dużo szczegółów", items[1].Comments)
	})

	t.Run("count by rating", func(t *testing.T) {
		counts, err := store.CountFeedbackByRating(ctx)
		require.NoError(t, err)
		assert.ElementsMatch(t, []RatingCount{
			{Rating: "Dobrze", Count: 1},
			{Rating: "Źle", Count: 1},
		}, counts)
	})
}

func newTestStore(t *testing.T) *Store {
	t.Helper()

	ctx := context.Background()
	store, err := NewStore(ctx, filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)

	_, err = store.Migrate(ctx)
	require.NoError(t, err)

	t.Cleanup(func() {
		store.Close()
	})

	return store
}
