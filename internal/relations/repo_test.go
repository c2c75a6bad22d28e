package relations

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/require"

	"animehub/pkg/database"
	"animehub/pkg/models"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open(database.Config{Path: ":memory:"})
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.Migrate(db))
	return db
}

func insertUser(t *testing.T, db *sql.DB, id string) {
	t.Helper()
	_, err := db.Exec(`INSERT INTO users (id, email) VALUES (?, ?)`, id, id+"@example.com")
	require.NoError(t, err)
}

func TestRecordHistoryGhostUserIsForeignKeyError(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepo(db)

	err := repo.RecordHistory(context.Background(), "ghost", models.UserHistory{
		EpisodeSlug: "one-piece-episode-1", AnimeSlug: "one-piece",
	})
	require.ErrorIs(t, err, database.ErrForeignKey)
}

func TestRecordHistoryUpsert(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepo(db)
	ctx := context.Background()
	insertUser(t, db, "u1")

	h := models.UserHistory{
		EpisodeSlug:  "one-piece-episode-1",
		AnimeSlug:    "one-piece",
		EpisodeTitle: "Episode 1",
		AnimeTitle:   "One Piece",
	}
	require.NoError(t, repo.RecordHistory(ctx, "u1", h))

	// re-watch refreshes the snapshot instead of adding a row
	h.Thumbnail = "https://example.com/poster.jpg"
	require.NoError(t, repo.RecordHistory(ctx, "u1", h))

	got, err := repo.ListHistory(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "https://example.com/poster.jpg", got[0].Thumbnail)
	require.False(t, got[0].WatchedAt.IsZero())
}

func TestAddFavoriteIdempotentKeepsFirstSnapshot(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepo(db)
	ctx := context.Background()
	insertUser(t, db, "u1")

	require.NoError(t, repo.AddFavorite(ctx, "u1", models.UserFavorite{
		AnimeSlug:  "one-piece",
		AnimeTitle: "One Piece",
	}))
	require.NoError(t, repo.AddFavorite(ctx, "u1", models.UserFavorite{
		AnimeSlug:  "one-piece",
		AnimeTitle: "One Piece (retitled)",
	}))

	got, err := repo.ListFavorites(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "One Piece", got[0].AnimeTitle, "re-favorite must not rewrite the snapshot")
}

func TestRefreshFavoriteSnapshot(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepo(db)
	ctx := context.Background()
	insertUser(t, db, "u1")

	require.NoError(t, repo.AddFavorite(ctx, "u1", models.UserFavorite{
		AnimeSlug:  "one-piece",
		AnimeTitle: "Old Title",
	}))

	updated, err := repo.RefreshFavoriteSnapshot(ctx, "u1", "one-piece", "New Title", "https://img")
	require.NoError(t, err)
	require.True(t, updated)

	got, err := repo.ListFavorites(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, "New Title", got[0].AnimeTitle)

	updated, err = repo.RefreshFavoriteSnapshot(ctx, "u1", "absent", "x", "y")
	require.NoError(t, err)
	require.False(t, updated)
}

func TestSubscriptionsAreScopedPerUser(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepo(db)
	ctx := context.Background()
	insertUser(t, db, "u1")
	insertUser(t, db, "u2")

	require.NoError(t, repo.Subscribe(ctx, "u1", models.UserSubscription{AnimeSlug: "one-piece"}))
	require.NoError(t, repo.Subscribe(ctx, "u2", models.UserSubscription{AnimeSlug: "bleach"}))

	got, err := repo.ListSubscriptions(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "one-piece", got[0].AnimeSlug)
}

func TestRemoveMissingRelationReportsFalse(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepo(db)
	ctx := context.Background()
	insertUser(t, db, "u1")

	removed, err := repo.RemoveFavorite(ctx, "u1", "absent")
	require.NoError(t, err)
	require.False(t, removed)

	require.NoError(t, repo.Subscribe(ctx, "u1", models.UserSubscription{AnimeSlug: "one-piece"}))
	removed, err = repo.Unsubscribe(ctx, "u1", "one-piece")
	require.NoError(t, err)
	require.True(t, removed)
}

func TestUserDeleteCascadesRelations(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepo(db)
	ctx := context.Background()
	insertUser(t, db, "u1")

	require.NoError(t, repo.RecordHistory(ctx, "u1", models.UserHistory{
		EpisodeSlug: "one-piece-episode-1", AnimeSlug: "one-piece",
	}))
	require.NoError(t, repo.AddFavorite(ctx, "u1", models.UserFavorite{AnimeSlug: "one-piece"}))
	require.NoError(t, repo.Subscribe(ctx, "u1", models.UserSubscription{AnimeSlug: "one-piece"}))

	_, err := db.Exec(`DELETE FROM users WHERE id = ?`, "u1")
	require.NoError(t, err)

	for _, table := range []string{"user_history", "user_favorites", "user_subscriptions"} {
		var n int
		require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM "+table).Scan(&n))
		require.Zero(t, n, table)
	}
}
