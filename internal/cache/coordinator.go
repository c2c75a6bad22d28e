package cache

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Outcome reports what EnsureFresh did for a key.
type Outcome string

const (
	// OutcomeHit means the ledger entry was within maxAge and the crawl
	// was skipped entirely.
	OutcomeHit Outcome = "hit"
	// OutcomeRefreshed means fresh data was crawled and merged.
	OutcomeRefreshed Outcome = "refreshed"
)

// Merge applies already-fetched records inside the coordinator's
// transaction, using the stores' upsert operations.
type Merge func(ctx context.Context, tx *sql.Tx) error

// Refresh invokes the external crawler and returns the merge step.
// Network I/O happens here, outside the transaction; a returned error
// leaves the ledger untouched.
type Refresh func(ctx context.Context) (Merge, error)

// Notifier is told about completed refreshes. The websocket hub
// implements it; a nil notifier is fine.
type Notifier interface {
	RefreshCompleted(key string, at time.Time)
}

// Coordinator decides cache-hit vs refresh-needed per key and performs
// the atomic merge-plus-ledger-touch on a miss. It owns no policy:
// maxAge comes from the caller per key namespace.
type Coordinator struct {
	db       *sql.DB
	ledger   *Ledger
	notifier Notifier
	logger   zerolog.Logger
}

func NewCoordinator(db *sql.DB, ledger *Ledger, logger zerolog.Logger) *Coordinator {
	return &Coordinator{db: db, ledger: ledger, logger: logger}
}

// SetNotifier attaches a refresh-event sink.
func (c *Coordinator) SetNotifier(n Notifier) {
	c.notifier = n
}

// Ledger exposes the underlying ledger (for maintenance tooling).
func (c *Coordinator) Ledger() *Ledger {
	return c.ledger
}

// EnsureFresh checks the ledger for key. If the entry exists and is no
// older than maxAge it reports a hit without crawling. Otherwise it runs
// refresh, applies the returned merge and the ledger touch in one
// transaction (ledger last), and reports refreshed.
//
// Two concurrent calls for the same key may both miss and both crawl;
// the merges are idempotent upserts, so the double work is tolerated
// instead of serialized.
func (c *Coordinator) EnsureFresh(ctx context.Context, key Key, maxAge time.Duration, refresh Refresh) (Outcome, error) {
	last, ok, err := c.ledger.LastFetched(ctx, key)
	if err != nil {
		return "", err
	}

	now := time.Now().UTC()
	if ok && now.Sub(last) <= maxAge {
		c.logger.Debug().Str("key", key.String()).Time("last_fetched", last).Msg("cache hit")
		return OutcomeHit, nil
	}

	c.logger.Info().Str("key", key.String()).Bool("known", ok).Msg("cache miss, refreshing")

	merge, err := refresh(ctx)
	if err != nil {
		// Ledger untouched: a failed crawl must look like no crawl
		// was attempted, so the next call retries.
		return "", fmt.Errorf("refresh %q: %w", key.String(), err)
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin merge tx: %w", err)
	}
	defer tx.Rollback()

	if err := merge(ctx, tx); err != nil {
		return "", fmt.Errorf("merge %q: %w", key.String(), err)
	}
	if err := c.ledger.TouchTx(ctx, tx, key, now); err != nil {
		return "", err
	}
	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit merge tx: %w", err)
	}

	if c.notifier != nil {
		c.notifier.RefreshCompleted(key.String(), now)
	}
	c.logger.Info().Str("key", key.String()).Msg("refreshed")
	return OutcomeRefreshed, nil
}
