// Command crawl walks the upstream's paginated browse listing and
// fills the crawled_anime staging table, one cache key per page so an
// interrupted run resumes where it stopped.
package main

import (
	"context"
	"database/sql"
	"flag"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"animehub/internal/cache"
	"animehub/internal/config"
	"animehub/internal/crawler"
	"animehub/internal/listings"
	"animehub/pkg/database"
)

func main() {
	var (
		fromPage = flag.Int("from", 1, "first listing page")
		toPage   = flag.Int("to", 50, "last listing page")
		force    = flag.Bool("force", false, "re-crawl pages even if fresh")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(level)
	}
	logger := log.With().Str("component", "crawl").Logger()

	dbCfg := database.DefaultConfig()
	if cfg.DBPath != "" {
		dbCfg.Path = cfg.DBPath
	}
	db := database.MustOpen(dbCfg)
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		logger.Fatal().Err(err).Msg("db migrate failed")
	}

	repo := listings.NewRepo(db)
	ledger := cache.NewLedger(db)
	coord := cache.NewCoordinator(db, ledger, logger)
	client := crawler.NewClient(cfg.SourceBaseURL, cfg.CrawlTimeout, logger)

	ctx := context.Background()
	var crawled, skipped, failed int

	for page := *fromPage; page <= *toPage; page++ {
		key := cache.CrawlPageKey(page)
		if *force {
			if _, err := ledger.Delete(ctx, key); err != nil {
				logger.Warn().Int("page", page).Err(err).Msg("ledger reset failed")
			}
		}

		outcome, err := coord.EnsureFresh(ctx, key, cfg.MaxAgeCrawlPage,
			func(ctx context.Context) (cache.Merge, error) {
				entries, err := client.FetchListingPage(ctx, page)
				if err != nil {
					return nil, err
				}
				if len(entries) == 0 {
					logger.Info().Int("page", page).Msg("empty page, likely past the end")
				}
				return func(ctx context.Context, tx *sql.Tx) error {
					return repo.SaveCrawled(ctx, tx, entries)
				}, nil
			})
		switch {
		case err != nil:
			failed++
			logger.Error().Int("page", page).Err(err).Msg("page crawl failed")
		case outcome == cache.OutcomeHit:
			skipped++
		default:
			crawled++
		}
	}

	logger.Info().Int("crawled", crawled).Int("skipped", skipped).Int("failed", failed).Msg("bulk crawl done")
	if failed > 0 {
		os.Exit(1)
	}
}
