package models

// AnimeUpdate is one entry of the home-page update feed, keyed by the
// episode URL the update points at.
type AnimeUpdate struct {
	Slug          string `json:"slug"`
	Title         string `json:"title"`
	EpisodeURL    string `json:"episodeUrl"`
	Thumbnail     string `json:"thumbnail,omitempty"`
	EpisodeNumber string `json:"episodeNumber,omitempty"`
	Type          string `json:"type,omitempty"`
	SeriesTitle   string `json:"seriesTitle,omitempty"`
	SeriesURL     string `json:"seriesUrl,omitempty"`
	Status        string `json:"status,omitempty"`
	ReleaseInfo   string `json:"releaseInfo,omitempty"`
}

// CompletedAnime is one entry of the completed-series listing, keyed by
// the series URL.
type CompletedAnime struct {
	Slug         string   `json:"slug"`
	Title        string   `json:"title"`
	URL          string   `json:"url"`
	Thumbnail    string   `json:"thumbnail,omitempty"`
	Type         string   `json:"type,omitempty"`
	EpisodeCount string   `json:"episodeCount,omitempty"`
	Status       string   `json:"status,omitempty"`
	PostedBy     string   `json:"postedBy,omitempty"`
	PostedAt     string   `json:"postedAt,omitempty"`
	SeriesTitle  string   `json:"seriesTitle,omitempty"`
	SeriesURL    string   `json:"seriesUrl,omitempty"`
	Genres       []string `json:"genres"`
	Rating       string   `json:"rating,omitempty"`
}

// CrawledAnime is one entry of the paginated browse listing as the
// crawler last saw it, keyed by slug. It is staging data, independent of
// the canonical AnimeDetail lifecycle.
type CrawledAnime struct {
	Slug          string `json:"slug"`
	Title         string `json:"title"`
	URL           string `json:"url"`
	Thumbnail     string `json:"thumbnail,omitempty"`
	Status        string `json:"status,omitempty"`
	Type          string `json:"type,omitempty"`
	EpisodeStatus string `json:"episodeStatus,omitempty"`
}

// CrawledAnimeRecord is the persisted form of CrawledAnime with
// bookkeeping timestamps.
type CrawledAnimeRecord struct {
	ID            int64  `json:"id"`
	Slug          string `json:"slug"`
	Title         string `json:"title"`
	URL           string `json:"url"`
	Thumbnail     string `json:"thumbnail,omitempty"`
	Status        string `json:"status,omitempty"`
	Type          string `json:"type,omitempty"`
	EpisodeStatus string `json:"episodeStatus,omitempty"`
	CreatedAt     string `json:"createdAt"`
	UpdatedAt     string `json:"updatedAt"`
}
