package cache

import (
	"context"
	"database/sql"
	"errors"
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
	// one connection, or each pool conn gets its own in-memory db
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.Migrate(db))
	return db
}

func countRows(t *testing.T, db *sql.DB, table string) int {
	t.Helper()
	var n int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM "+table).Scan(&n))
	return n
}

func insertCrawledMerge(slug string) Merge {
	return func(ctx context.Context, tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO crawled_anime (slug, title, url)
			VALUES (?, ?, ?)
			ON CONFLICT(slug) DO UPDATE SET updated_at = CURRENT_TIMESTAMP
		`, slug, "Title", "https://example.com/anime/"+slug+"/")
		return err
	}
}

func TestEnsureFreshFirstCallRefreshes(t *testing.T) {
	db := newTestDB(t)
	coord := NewCoordinator(db, NewLedger(db), zerolog.Nop())

	calls := 0
	outcome, err := coord.EnsureFresh(context.Background(), AnimeDetailKey("naruto"), time.Hour,
		func(ctx context.Context) (Merge, error) {
			calls++
			return insertCrawledMerge("naruto"), nil
		})
	require.NoError(t, err)
	require.Equal(t, OutcomeRefreshed, outcome)
	require.Equal(t, 1, calls)
	require.Equal(t, 1, countRows(t, db, "crawled_anime"))

	last, ok, err := NewLedger(db).LastFetched(context.Background(), AnimeDetailKey("naruto"))
	require.NoError(t, err)
	require.True(t, ok)
	require.WithinDuration(t, time.Now().UTC(), last, time.Minute)
}

func TestEnsureFreshHitSkipsCrawl(t *testing.T) {
	db := newTestDB(t)
	ledger := NewLedger(db)
	coord := NewCoordinator(db, ledger, zerolog.Nop())
	key := AnimeDetailKey("naruto")

	require.NoError(t, ledger.Touch(context.Background(), key, time.Now().UTC()))

	outcome, err := coord.EnsureFresh(context.Background(), key, time.Hour,
		func(ctx context.Context) (Merge, error) {
			t.Fatal("refresh must not run on a hit")
			return nil, nil
		})
	require.NoError(t, err)
	require.Equal(t, OutcomeHit, outcome)
}

func TestEnsureFreshStaleEntryRefreshes(t *testing.T) {
	db := newTestDB(t)
	ledger := NewLedger(db)
	coord := NewCoordinator(db, ledger, zerolog.Nop())
	key := AnimeDetailKey("naruto")

	stale := time.Now().UTC().Add(-2 * time.Hour)
	require.NoError(t, ledger.Touch(context.Background(), key, stale))

	outcome, err := coord.EnsureFresh(context.Background(), key, time.Hour,
		func(ctx context.Context) (Merge, error) {
			return insertCrawledMerge("naruto"), nil
		})
	require.NoError(t, err)
	require.Equal(t, OutcomeRefreshed, outcome)

	last, ok, err := ledger.LastFetched(context.Background(), key)
	require.NoError(t, err)
	require.True(t, ok)
	require.True(t, last.After(stale))
}

func TestEnsureFreshFailedFetchLeavesLedgerUntouched(t *testing.T) {
	db := newTestDB(t)
	ledger := NewLedger(db)
	coord := NewCoordinator(db, ledger, zerolog.Nop())
	key := UpdatesKey()

	boom := errors.New("upstream down")
	_, err := coord.EnsureFresh(context.Background(), key, time.Hour,
		func(ctx context.Context) (Merge, error) {
			return nil, boom
		})
	require.ErrorIs(t, err, boom)

	_, ok, err := ledger.LastFetched(context.Background(), key)
	require.NoError(t, err)
	require.False(t, ok, "failed fetch must look like no fetch happened")
}

func TestEnsureFreshFailedMergeRollsBack(t *testing.T) {
	db := newTestDB(t)
	ledger := NewLedger(db)
	coord := NewCoordinator(db, ledger, zerolog.Nop())
	key := UpdatesKey()

	boom := errors.New("merge broke")
	_, err := coord.EnsureFresh(context.Background(), key, time.Hour,
		func(ctx context.Context) (Merge, error) {
			return func(ctx context.Context, tx *sql.Tx) error {
				if err := insertCrawledMerge("naruto")(ctx, tx); err != nil {
					return err
				}
				return boom
			}, nil
		})
	require.ErrorIs(t, err, boom)

	require.Equal(t, 0, countRows(t, db, "crawled_anime"), "partial merge must roll back")
	_, ok, err := ledger.LastFetched(context.Background(), key)
	require.NoError(t, err)
	require.False(t, ok)
}

type recordingNotifier struct {
	keys []string
}

func (n *recordingNotifier) RefreshCompleted(key string, _ time.Time) {
	n.keys = append(n.keys, key)
}

func TestEnsureFreshNotifiesOnRefreshOnly(t *testing.T) {
	db := newTestDB(t)
	ledger := NewLedger(db)
	coord := NewCoordinator(db, ledger, zerolog.Nop())
	notifier := &recordingNotifier{}
	coord.SetNotifier(notifier)

	refresh := func(ctx context.Context) (Merge, error) {
		return insertCrawledMerge("naruto"), nil
	}

	_, err := coord.EnsureFresh(context.Background(), AnimeDetailKey("naruto"), time.Hour, refresh)
	require.NoError(t, err)
	_, err = coord.EnsureFresh(context.Background(), AnimeDetailKey("naruto"), time.Hour, refresh)
	require.NoError(t, err)

	require.Equal(t, []string{"anime:naruto"}, notifier.keys, "hit must not notify")
}
