package maintenance

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// GC reclaims rows that survive deletes on purpose: video sources whose
// episode is gone (episode_url carries no foreign key) and verification
// tokens past expiry.
type GC struct {
	DB     *sql.DB
	Logger zerolog.Logger
}

func NewGC(db *sql.DB, logger zerolog.Logger) *GC {
	return &GC{DB: db, Logger: logger}
}

// SweepOrphanSources deletes video sources whose episode_url no longer
// matches any episode. Returns how many rows were removed.
func (g *GC) SweepOrphanSources(ctx context.Context) (int64, error) {
	res, err := g.DB.ExecContext(ctx, `
		DELETE FROM video_sources
		WHERE episode_url NOT IN (SELECT url FROM episodes)
	`)
	if err != nil {
		return 0, fmt.Errorf("sweep orphan sources: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// SweepExpiredTokens deletes verification tokens past their expiry.
func (g *GC) SweepExpiredTokens(ctx context.Context) (int64, error) {
	res, err := g.DB.ExecContext(ctx, `
		DELETE FROM verification_tokens WHERE expires_at < ?
	`, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("sweep expired tokens: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// Run executes a full sweep once.
func (g *GC) Run(ctx context.Context) {
	sources, err := g.SweepOrphanSources(ctx)
	if err != nil {
		g.Logger.Error().Err(err).Msg("orphan source sweep failed")
	}
	tokens, err := g.SweepExpiredTokens(ctx)
	if err != nil {
		g.Logger.Error().Err(err).Msg("expired token sweep failed")
	}
	g.Logger.Info().Int64("video_sources", sources).Int64("tokens", tokens).Msg("maintenance sweep done")
}

// Schedule registers the sweep on a cron scheduler. The returned cron is
// not started; the caller owns its lifecycle.
func (g *GC) Schedule(spec string) (*cron.Cron, error) {
	c := cron.New()
	if _, err := c.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		g.Run(ctx)
	}); err != nil {
		return nil, fmt.Errorf("schedule sweep %q: %w", spec, err)
	}
	return c, nil
}
