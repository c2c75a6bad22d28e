package maintenance

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"animehub/pkg/database"
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

func TestSweepOrphanSourcesRemovesOnlyOrphans(t *testing.T) {
	db := newTestDB(t)
	gc := NewGC(db, zerolog.Nop())
	ctx := context.Background()

	_, err := db.Exec(`INSERT INTO anime_details (slug, title) VALUES ('one-piece', 'One Piece')`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO episodes (anime_slug, url) VALUES ('one-piece', 'https://example.com/one-piece-episode-1/')`)
	require.NoError(t, err)

	_, err = db.Exec(`INSERT INTO video_sources (episode_url, server, url) VALUES
		('https://example.com/one-piece-episode-1/', 'Streamtape', 'https://s1.example/a'),
		('https://example.com/deleted-episode/', 'Streamtape', 'https://s1.example/b')`)
	require.NoError(t, err)

	removed, err := gc.SweepOrphanSources(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 1, removed)

	var live int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM video_sources WHERE episode_url = 'https://example.com/one-piece-episode-1/'`).Scan(&live))
	require.Equal(t, 1, live, "sources with a live episode must survive")
}

func TestSweepExpiredTokens(t *testing.T) {
	db := newTestDB(t)
	gc := NewGC(db, zerolog.Nop())
	ctx := context.Background()

	_, err := db.Exec(`INSERT INTO users (id, email) VALUES ('u1', 'a@example.com')`)
	require.NoError(t, err)

	now := time.Now().UTC()
	_, err = db.Exec(`INSERT INTO verification_tokens (token, user_id, kind, expires_at) VALUES
		('expired', 'u1', 'password_reset', ?),
		('live', 'u1', 'email_verification', ?)`,
		now.Add(-time.Hour), now.Add(time.Hour))
	require.NoError(t, err)

	removed, err := gc.SweepExpiredTokens(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 1, removed)

	var left string
	require.NoError(t, db.QueryRow(`SELECT token FROM verification_tokens`).Scan(&left))
	require.Equal(t, "live", left)
}

func TestScheduleRejectsBadSpec(t *testing.T) {
	gc := NewGC(newTestDB(t), zerolog.Nop())

	_, err := gc.Schedule("not a cron spec")
	require.Error(t, err)

	c, err := gc.Schedule("0 3 * * *")
	require.NoError(t, err)
	require.NotNil(t, c)
}
