package database

import (
	"database/sql"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := Open(Config{Path: ":memory:"})
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, Migrate(db))
	return db
}

func TestMigrateIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, Migrate(db))
	require.NoError(t, Migrate(db))
}

func TestMapErrorDuplicateKey(t *testing.T) {
	db := newTestDB(t)

	_, err := db.Exec(`INSERT INTO users (id, email) VALUES ('u1', 'a@example.com')`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO users (id, email) VALUES ('u2', 'a@example.com')`)
	require.ErrorIs(t, MapError(err), ErrDuplicateKey)
}

func TestMapErrorForeignKey(t *testing.T) {
	db := newTestDB(t)

	_, err := db.Exec(`INSERT INTO episodes (anime_slug, url) VALUES ('ghost', 'https://example.com/e1/')`)
	require.ErrorIs(t, MapError(err), ErrForeignKey)
}

func TestMapErrorPassesThrough(t *testing.T) {
	require.NoError(t, MapError(nil))

	db := newTestDB(t)
	_, err := db.Exec(`SELECT * FROM no_such_table`)
	require.Error(t, err)
	require.Equal(t, err, MapError(err))
}
