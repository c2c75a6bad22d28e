package cache

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Ledger is the freshness bookkeeping over cache_metadata: one row per
// cache key holding the last successful refresh time. It is the sole
// authority for staleness decisions.
type Ledger struct {
	DB *sql.DB
}

func NewLedger(db *sql.DB) *Ledger {
	return &Ledger{DB: db}
}

// LastFetched returns the recorded refresh time for key, or ok=false if
// the key has never been refreshed.
func (l *Ledger) LastFetched(ctx context.Context, key Key) (time.Time, bool, error) {
	row := l.DB.QueryRowContext(ctx, `
		SELECT last_fetched
		FROM cache_metadata
		WHERE cache_key = ?
	`, key.String())

	var t time.Time
	if err := row.Scan(&t); err != nil {
		if err == sql.ErrNoRows {
			return time.Time{}, false, nil
		}
		return time.Time{}, false, fmt.Errorf("get last_fetched: %w", err)
	}
	return t, true, nil
}

// TouchTx writes the refresh timestamp inside the caller's transaction.
// The coordinator calls this last, after all record upserts, so a crash
// mid-merge leaves the ledger pointing at the previous refresh.
func (l *Ledger) TouchTx(ctx context.Context, tx *sql.Tx, key Key, at time.Time) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO cache_metadata (cache_key, last_fetched)
		VALUES (?, ?)
		ON CONFLICT(cache_key) DO UPDATE SET
			last_fetched = excluded.last_fetched
	`, key.String(), at.UTC())
	if err != nil {
		return fmt.Errorf("touch cache key %q: %w", key.String(), err)
	}
	return nil
}

// Touch records a refresh outside any transaction. Mostly useful for
// tests and manual backfills; EnsureFresh goes through TouchTx.
func (l *Ledger) Touch(ctx context.Context, key Key, at time.Time) error {
	_, err := l.DB.ExecContext(ctx, `
		INSERT INTO cache_metadata (cache_key, last_fetched)
		VALUES (?, ?)
		ON CONFLICT(cache_key) DO UPDATE SET
			last_fetched = excluded.last_fetched
	`, key.String(), at.UTC())
	if err != nil {
		return fmt.Errorf("touch cache key %q: %w", key.String(), err)
	}
	return nil
}

// Delete drops the ledger row for key, forcing the next EnsureFresh to
// miss. Returns whether a row existed.
func (l *Ledger) Delete(ctx context.Context, key Key) (bool, error) {
	res, err := l.DB.ExecContext(ctx, `
		DELETE FROM cache_metadata WHERE cache_key = ?
	`, key.String())
	if err != nil {
		return false, fmt.Errorf("delete cache key %q: %w", key.String(), err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}
