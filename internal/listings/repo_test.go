package listings

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

func TestSaveUpdatesIdempotent(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepo(db)
	ctx := context.Background()

	batch := []models.AnimeUpdate{
		{EpisodeURL: "https://example.com/one-piece-episode-1/", Title: "One Piece", EpisodeNumber: "1"},
		{EpisodeURL: "https://example.com/bleach-episode-9/", Title: "Bleach", EpisodeNumber: "9"},
	}
	require.NoError(t, repo.SaveUpdates(ctx, db, batch))

	// second crawl sees the same feed plus a corrected title
	batch[0].Title = "One Piece TV"
	require.NoError(t, repo.SaveUpdates(ctx, db, batch))

	got, err := repo.GetUpdates(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)

	byURL := map[string]models.AnimeUpdate{}
	for _, u := range got {
		byURL[u.EpisodeURL] = u
	}
	require.Equal(t, "One Piece TV", byURL["https://example.com/one-piece-episode-1/"].Title)
	require.Equal(t, "one-piece-episode-1", byURL["https://example.com/one-piece-episode-1/"].Slug)
}

func TestSaveCompletedGenresRoundtrip(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepo(db)
	ctx := context.Background()

	require.NoError(t, repo.SaveCompleted(ctx, db, []models.CompletedAnime{
		{
			URL:    "https://example.com/anime/frieren/",
			Title:  "Frieren",
			Genres: []string{"Adventure", "Fantasy"},
			Rating: "9.1",
		},
	}))

	got, err := repo.GetCompleted(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, []string{"Adventure", "Fantasy"}, got[0].Genres)
	require.Equal(t, "frieren", got[0].Slug)
}

func TestSaveCrawledUpsertAndBookkeeping(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepo(db)
	ctx := context.Background()

	entry := models.CrawledAnime{
		Slug:  "one-piece",
		Title: "One Piece",
		URL:   "https://example.com/anime/one-piece/",
	}
	require.NoError(t, repo.SaveCrawled(ctx, db, []models.CrawledAnime{entry}))

	entry.EpisodeStatus = "Episode 1100"
	require.NoError(t, repo.SaveCrawled(ctx, db, []models.CrawledAnime{entry}))

	got, err := repo.GetCrawled(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "Episode 1100", got[0].EpisodeStatus)
	require.NotEmpty(t, got[0].CreatedAt)
	require.NotEmpty(t, got[0].UpdatedAt)
}
