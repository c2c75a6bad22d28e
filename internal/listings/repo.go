package listings

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"animehub/pkg/database"
	"animehub/pkg/models"
)

// Repo is the listings store: the home-page update feed, the
// completed-series listing and the crawler's paginated browse staging
// table. All three are upsert-only snapshots of what the crawler last
// saw; nothing here cascades into the canonical catalogue.
type Repo struct {
	DB *sql.DB
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{DB: db}
}

// SaveUpdates upserts a batch of update-feed entries, conflicting on the
// episode URL. Runs on the caller's transaction so the coordinator can
// merge a feed atomically with its ledger touch.
func (r *Repo) SaveUpdates(ctx context.Context, q database.DBTX, updates []models.AnimeUpdate) error {
	for _, u := range updates {
		if _, err := q.ExecContext(ctx, `
			INSERT INTO anime_updates (
				episode_url, title, thumbnail, episode_number, type,
				series_title, series_url, status, release_info, updated_at
			)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
			ON CONFLICT(episode_url) DO UPDATE SET
				title = excluded.title,
				thumbnail = excluded.thumbnail,
				episode_number = excluded.episode_number,
				type = excluded.type,
				series_title = excluded.series_title,
				series_url = excluded.series_url,
				status = excluded.status,
				release_info = excluded.release_info,
				updated_at = CURRENT_TIMESTAMP
		`, u.EpisodeURL, u.Title, u.Thumbnail, u.EpisodeNumber, u.Type,
			u.SeriesTitle, u.SeriesURL, u.Status, u.ReleaseInfo); err != nil {
			return fmt.Errorf("upsert update %s: %w", u.EpisodeURL, database.MapError(err))
		}
	}
	return nil
}

// SaveCompleted upserts a batch of completed-series entries, conflicting
// on the series URL.
func (r *Repo) SaveCompleted(ctx context.Context, q database.DBTX, entries []models.CompletedAnime) error {
	for _, c := range entries {
		genresJSON, err := json.Marshal(c.Genres)
		if err != nil {
			return fmt.Errorf("marshal genres for %s: %w", c.URL, err)
		}
		if _, err := q.ExecContext(ctx, `
			INSERT INTO completed_anime (
				url, title, thumbnail, type, episode_count, status,
				posted_by, posted_at, series_title, series_url, genres,
				rating, updated_at
			)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
			ON CONFLICT(url) DO UPDATE SET
				title = excluded.title,
				thumbnail = excluded.thumbnail,
				type = excluded.type,
				episode_count = excluded.episode_count,
				status = excluded.status,
				posted_by = excluded.posted_by,
				posted_at = excluded.posted_at,
				series_title = excluded.series_title,
				series_url = excluded.series_url,
				genres = excluded.genres,
				rating = excluded.rating,
				updated_at = CURRENT_TIMESTAMP
		`, c.URL, c.Title, c.Thumbnail, c.Type, c.EpisodeCount, c.Status,
			c.PostedBy, c.PostedAt, c.SeriesTitle, c.SeriesURL, string(genresJSON),
			c.Rating); err != nil {
			return fmt.Errorf("upsert completed %s: %w", c.URL, database.MapError(err))
		}
	}
	return nil
}

// SaveCrawled upserts a batch of browse-page entries, conflicting on the
// slug.
func (r *Repo) SaveCrawled(ctx context.Context, q database.DBTX, entries []models.CrawledAnime) error {
	for _, a := range entries {
		if _, err := q.ExecContext(ctx, `
			INSERT INTO crawled_anime (
				slug, title, url, thumbnail, status, type, episode_status, updated_at
			)
			VALUES (?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
			ON CONFLICT(slug) DO UPDATE SET
				title = excluded.title,
				url = excluded.url,
				thumbnail = excluded.thumbnail,
				status = excluded.status,
				type = excluded.type,
				episode_status = excluded.episode_status,
				updated_at = CURRENT_TIMESTAMP
		`, a.Slug, a.Title, a.URL, a.Thumbnail, a.Status, a.Type,
			a.EpisodeStatus); err != nil {
			return fmt.Errorf("upsert crawled %s: %w", a.Slug, database.MapError(err))
		}
	}
	return nil
}

// GetUpdates returns the stored update feed, most recently refreshed
// entries first.
func (r *Repo) GetUpdates(ctx context.Context) ([]models.AnimeUpdate, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT episode_url, title, thumbnail, episode_number, type,
		       series_title, series_url, status, release_info
		FROM anime_updates
		ORDER BY updated_at DESC, id DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list updates: %w", err)
	}
	defer rows.Close()

	out := make([]models.AnimeUpdate, 0)
	for rows.Next() {
		var (
			u                                           models.AnimeUpdate
			thumbnail, epNumber, typ                    sql.NullString
			seriesTitle, seriesURL, status, releaseInfo sql.NullString
		)
		if err := rows.Scan(&u.EpisodeURL, &u.Title, &thumbnail, &epNumber, &typ,
			&seriesTitle, &seriesURL, &status, &releaseInfo); err != nil {
			return nil, fmt.Errorf("scan update: %w", err)
		}
		u.Thumbnail = thumbnail.String
		u.EpisodeNumber = epNumber.String
		u.Type = typ.String
		u.SeriesTitle = seriesTitle.String
		u.SeriesURL = seriesURL.String
		u.Status = status.String
		u.ReleaseInfo = releaseInfo.String
		u.Slug = models.SlugFromURL(u.EpisodeURL)
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows updates: %w", err)
	}
	return out, nil
}

// GetCompleted returns the stored completed-series listing, most
// recently refreshed first.
func (r *Repo) GetCompleted(ctx context.Context) ([]models.CompletedAnime, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT url, title, thumbnail, type, episode_count, status,
		       posted_by, posted_at, series_title, series_url, genres, rating
		FROM completed_anime
		ORDER BY updated_at DESC, id DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list completed: %w", err)
	}
	defer rows.Close()

	out := make([]models.CompletedAnime, 0)
	for rows.Next() {
		var (
			c                               models.CompletedAnime
			thumbnail, typ, epCount, status sql.NullString
			postedBy, postedAt              sql.NullString
			seriesTitle, seriesURL, rating  sql.NullString
			genresJSON                      string
		)
		if err := rows.Scan(&c.URL, &c.Title, &thumbnail, &typ, &epCount, &status,
			&postedBy, &postedAt, &seriesTitle, &seriesURL, &genresJSON, &rating); err != nil {
			return nil, fmt.Errorf("scan completed: %w", err)
		}
		c.Thumbnail = thumbnail.String
		c.Type = typ.String
		c.EpisodeCount = epCount.String
		c.Status = status.String
		c.PostedBy = postedBy.String
		c.PostedAt = postedAt.String
		c.SeriesTitle = seriesTitle.String
		c.SeriesURL = seriesURL.String
		c.Rating = rating.String
		_ = json.Unmarshal([]byte(genresJSON), &c.Genres)
		c.Slug = models.SlugFromURL(c.URL)
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows completed: %w", err)
	}
	return out, nil
}

// GetCrawled returns the browse staging table, most recently refreshed
// first, with persistence bookkeeping included.
func (r *Repo) GetCrawled(ctx context.Context) ([]models.CrawledAnimeRecord, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT id, slug, title, url, thumbnail, status, type, episode_status,
		       created_at, updated_at
		FROM crawled_anime
		ORDER BY updated_at DESC, id DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list crawled: %w", err)
	}
	defer rows.Close()

	out := make([]models.CrawledAnimeRecord, 0)
	for rows.Next() {
		var (
			rec                            models.CrawledAnimeRecord
			thumbnail, status, typ, epStat sql.NullString
			createdAt, updatedAt           time.Time
		)
		if err := rows.Scan(&rec.ID, &rec.Slug, &rec.Title, &rec.URL, &thumbnail,
			&status, &typ, &epStat, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan crawled: %w", err)
		}
		rec.Thumbnail = thumbnail.String
		rec.Status = status.String
		rec.Type = typ.String
		rec.EpisodeStatus = epStat.String
		rec.CreatedAt = createdAt.UTC().Format(time.RFC3339)
		rec.UpdatedAt = updatedAt.UTC().Format(time.RFC3339)
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows crawled: %w", err)
	}
	return out, nil
}
