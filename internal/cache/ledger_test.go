package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyStringForms(t *testing.T) {
	assert.Equal(t, "updates", UpdatesKey().String())
	assert.Equal(t, "completed", CompletedKey().String())
	assert.Equal(t, "anime:one-piece", AnimeDetailKey("one-piece").String())
	assert.Equal(t, "sources:one-piece-episode-3", EpisodeSourcesKey("one-piece-episode-3").String())
	assert.Equal(t, "crawl:page:7", CrawlPageKey(7).String())
}

func TestLedgerRoundtrip(t *testing.T) {
	db := newTestDB(t)
	ledger := NewLedger(db)
	ctx := context.Background()
	key := AnimeDetailKey("one-piece")

	_, ok, err := ledger.LastFetched(ctx, key)
	require.NoError(t, err)
	require.False(t, ok)

	at := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	require.NoError(t, ledger.Touch(ctx, key, at))

	got, ok, err := ledger.LastFetched(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)
	require.True(t, got.Equal(at))

	// second touch overwrites
	later := at.Add(time.Hour)
	require.NoError(t, ledger.Touch(ctx, key, later))
	got, _, err = ledger.LastFetched(ctx, key)
	require.NoError(t, err)
	require.True(t, got.Equal(later))

	existed, err := ledger.Delete(ctx, key)
	require.NoError(t, err)
	require.True(t, existed)

	existed, err = ledger.Delete(ctx, key)
	require.NoError(t, err)
	require.False(t, existed)
}

func TestLedgerKeysAreIndependent(t *testing.T) {
	db := newTestDB(t)
	ledger := NewLedger(db)
	ctx := context.Background()

	require.NoError(t, ledger.Touch(ctx, UpdatesKey(), time.Now().UTC()))

	_, ok, err := ledger.LastFetched(ctx, CompletedKey())
	require.NoError(t, err)
	require.False(t, ok)
}
