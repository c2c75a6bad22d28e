package crawler

import (
	"context"
	"errors"

	"animehub/pkg/models"
)

// Crawl failures collapse into three cases the persistence layer cares
// about: the upstream was too slow, the page does not exist, or the
// upstream answered with something unusable. Callers fall back to
// stored rows on timeout and fetch failure; a missing page means the
// content is gone, not that the site is down.
var (
	ErrTimeout  = errors.New("crawler: upstream timed out")
	ErrNotFound = errors.New("crawler: page not found upstream")
	ErrFetch    = errors.New("crawler: upstream fetch failed")
)

// Crawler is the boundary to the upstream site. The freshness
// coordinator calls it outside any database transaction; implementations
// must honor the context deadline.
type Crawler interface {
	// FetchUpdates scrapes the home-page update feed.
	FetchUpdates(ctx context.Context) ([]models.AnimeUpdate, error)
	// FetchCompleted scrapes the completed-series listing.
	FetchCompleted(ctx context.Context) ([]models.CompletedAnime, error)
	// FetchAnimeDetail scrapes one series page including its episode list.
	FetchAnimeDetail(ctx context.Context, slug string) (*models.AnimeDetail, error)
	// FetchEpisodeSources scrapes the video sources of one episode page.
	FetchEpisodeSources(ctx context.Context, episodeSlug string) ([]models.VideoSource, error)
	// FetchListingPage scrapes one page of the paginated browse listing.
	FetchListingPage(ctx context.Context, page int) ([]models.CrawledAnime, error)
}
