package catalogue

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"animehub/pkg/database"
	"animehub/pkg/models"
)

// Repo is the catalogue store over anime_details, episodes and
// video_sources. Write operations take a database.DBTX so the freshness
// coordinator can run a whole merge in one transaction.
type Repo struct {
	DB *sql.DB
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{DB: db}
}

// UpsertAnime inserts or refreshes the detail row keyed by slug. The
// identity fields (slug, url) are never rewritten by the conflict
// branch; everything else is overwritten and updated_at bumped.
func (r *Repo) UpsertAnime(ctx context.Context, q database.DBTX, d *models.AnimeDetail) error {
	castsJSON, err := json.Marshal(d.Casts)
	if err != nil {
		return fmt.Errorf("marshal casts for %s: %w", d.Slug, err)
	}
	genresJSON, err := json.Marshal(d.Genres)
	if err != nil {
		return fmt.Errorf("marshal genres for %s: %w", d.Slug, err)
	}

	var url any
	if d.URL != "" {
		url = d.URL
	}

	_, err = q.ExecContext(ctx, `
		INSERT INTO anime_details (
			slug, url, title, alternate_titles, poster, rating, trailer_url,
			status, studio, release_date, duration, season, type,
			total_episodes, director, casts, genres, synopsis, updated_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(slug) DO UPDATE SET
			title = excluded.title,
			alternate_titles = excluded.alternate_titles,
			poster = excluded.poster,
			rating = excluded.rating,
			trailer_url = excluded.trailer_url,
			status = excluded.status,
			studio = excluded.studio,
			release_date = excluded.release_date,
			duration = excluded.duration,
			season = excluded.season,
			type = excluded.type,
			total_episodes = excluded.total_episodes,
			director = excluded.director,
			casts = excluded.casts,
			genres = excluded.genres,
			synopsis = excluded.synopsis,
			updated_at = CURRENT_TIMESTAMP
	`,
		d.Slug, url, d.Title, d.AlternateTitles, d.Poster, d.Rating, d.TrailerURL,
		d.Status, d.Studio, d.ReleaseDate, d.Duration, d.Season, d.Type,
		d.TotalEpisodes, d.Director, string(castsJSON), string(genresJSON), d.Synopsis,
	)
	if err != nil {
		return fmt.Errorf("upsert anime %s: %w", d.Slug, database.MapError(err))
	}
	return nil
}

// SaveEpisodes upserts the episode list of one anime, conflicting on the
// episode URL. An episode URL already owned by a different anime is a
// crawler inconsistency and is surfaced as ErrDuplicateKey rather than
// silently re-parented. A slug with no anime_details row surfaces as
// ErrForeignKey.
func (r *Repo) SaveEpisodes(ctx context.Context, q database.DBTX, animeSlug string, episodes []models.Episode) error {
	for _, ep := range episodes {
		var owner string
		err := q.QueryRowContext(ctx, `
			SELECT anime_slug FROM episodes WHERE url = ?
		`, ep.URL).Scan(&owner)
		switch {
		case err == sql.ErrNoRows:
			// new episode
		case err != nil:
			return fmt.Errorf("check episode owner %s: %w", ep.URL, err)
		case owner != animeSlug:
			return fmt.Errorf("episode %s already belongs to %s: %w",
				ep.URL, owner, database.ErrDuplicateKey)
		}

		if _, err := q.ExecContext(ctx, `
			INSERT INTO episodes (anime_slug, number, title, url, release_date, updated_at)
			VALUES (?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
			ON CONFLICT(url) DO UPDATE SET
				number = excluded.number,
				title = excluded.title,
				release_date = excluded.release_date,
				updated_at = CURRENT_TIMESTAMP
		`, animeSlug, ep.Number, ep.Title, ep.URL, ep.ReleaseDate); err != nil {
			return fmt.Errorf("upsert episode %s: %w", ep.URL, database.MapError(err))
		}
	}
	return nil
}

// SaveAnimeWithEpisodes merges a full detail record in its own
// transaction, for callers outside the coordinator.
func (r *Repo) SaveAnimeWithEpisodes(ctx context.Context, d *models.AnimeDetail) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := r.UpsertAnime(ctx, tx, d); err != nil {
		return err
	}
	if err := r.SaveEpisodes(ctx, tx, d.Slug, d.Episodes); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// ReplaceVideoSources swaps the full source set of one episode:
// delete-then-insert keyed by episode_url. No uniqueness is declared on
// sources, so replacement is the only way to stay idempotent.
func (r *Repo) ReplaceVideoSources(ctx context.Context, q database.DBTX, episodeURL string, sources []models.VideoSource) error {
	if _, err := q.ExecContext(ctx, `
		DELETE FROM video_sources WHERE episode_url = ?
	`, episodeURL); err != nil {
		return fmt.Errorf("clear video sources %s: %w", episodeURL, err)
	}

	for _, s := range sources {
		if _, err := q.ExecContext(ctx, `
			INSERT INTO video_sources (episode_url, server, quality, url, updated_at)
			VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
		`, episodeURL, s.Server, s.Quality, s.URL); err != nil {
			return fmt.Errorf("insert video source %s: %w", episodeURL, err)
		}
	}
	return nil
}

// GetAnimeBySlug returns the detail record with its episodes, or
// (nil, nil) on a lookup miss.
func (r *Repo) GetAnimeBySlug(ctx context.Context, slug string) (*models.AnimeDetail, error) {
	row := r.DB.QueryRowContext(ctx, `
		SELECT slug, url, title, alternate_titles, poster, rating, trailer_url,
		       status, studio, release_date, duration, season, type,
		       total_episodes, director, casts, genres, synopsis
		FROM anime_details
		WHERE slug = ?
	`, slug)

	var (
		d          models.AnimeDetail
		url        sql.NullString
		altTitles  sql.NullString
		poster     sql.NullString
		rating     sql.NullString
		trailerURL sql.NullString
		status     sql.NullString
		studio     sql.NullString
		release    sql.NullString
		duration   sql.NullString
		season     sql.NullString
		animeType  sql.NullString
		totalEps   sql.NullString
		director   sql.NullString
		castsJSON  string
		genresJSON string
		synopsis   sql.NullString
	)

	if err := row.Scan(
		&d.Slug, &url, &d.Title, &altTitles, &poster, &rating, &trailerURL,
		&status, &studio, &release, &duration, &season, &animeType,
		&totalEps, &director, &castsJSON, &genresJSON, &synopsis,
	); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scan anime %s: %w", slug, err)
	}

	d.URL = url.String
	d.AlternateTitles = altTitles.String
	d.Poster = poster.String
	d.Rating = rating.String
	d.TrailerURL = trailerURL.String
	d.Status = status.String
	d.Studio = studio.String
	d.ReleaseDate = release.String
	d.Duration = duration.String
	d.Season = season.String
	d.Type = animeType.String
	d.TotalEpisodes = totalEps.String
	d.Director = director.String
	d.Synopsis = synopsis.String
	_ = json.Unmarshal([]byte(castsJSON), &d.Casts)
	_ = json.Unmarshal([]byte(genresJSON), &d.Genres)

	episodes, err := r.GetEpisodesForAnime(ctx, slug)
	if err != nil {
		return nil, err
	}
	d.Episodes = episodes

	return &d, nil
}

// GetEpisodesForAnime lists an anime's episodes in insertion order.
func (r *Repo) GetEpisodesForAnime(ctx context.Context, animeSlug string) ([]models.Episode, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT anime_slug, number, title, url, release_date
		FROM episodes
		WHERE anime_slug = ?
		ORDER BY id ASC
	`, animeSlug)
	if err != nil {
		return nil, fmt.Errorf("list episodes %s: %w", animeSlug, err)
	}
	defer rows.Close()

	out := make([]models.Episode, 0)
	for rows.Next() {
		var (
			ep      models.Episode
			number  sql.NullString
			title   sql.NullString
			release sql.NullString
		)
		if err := rows.Scan(&ep.AnimeSlug, &number, &title, &ep.URL, &release); err != nil {
			return nil, fmt.Errorf("scan episode: %w", err)
		}
		ep.Number = number.String
		ep.Title = title.String
		ep.ReleaseDate = release.String
		ep.Slug = models.SlugFromURL(ep.URL)
		out = append(out, ep)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows episodes: %w", err)
	}
	return out, nil
}

// GetVideoSourcesForEpisode lists the stored sources for one episode URL.
func (r *Repo) GetVideoSourcesForEpisode(ctx context.Context, episodeURL string) ([]models.VideoSource, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT episode_url, server, quality, url
		FROM video_sources
		WHERE episode_url = ?
		ORDER BY id ASC
	`, episodeURL)
	if err != nil {
		return nil, fmt.Errorf("list video sources %s: %w", episodeURL, err)
	}
	defer rows.Close()

	out := make([]models.VideoSource, 0)
	for rows.Next() {
		var (
			s       models.VideoSource
			server  sql.NullString
			quality sql.NullString
			url     sql.NullString
		)
		if err := rows.Scan(&s.EpisodeURL, &server, &quality, &url); err != nil {
			return nil, fmt.Errorf("scan video source: %w", err)
		}
		s.Server = server.String
		s.Quality = quality.String
		s.URL = url.String
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows video sources: %w", err)
	}
	return out, nil
}

// DeleteAnime removes the detail row; episodes go with it via ON DELETE
// CASCADE. Video sources are left behind on purpose and reclaimed by the
// maintenance sweep. Returns whether the anime existed.
func (r *Repo) DeleteAnime(ctx context.Context, slug string) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `
		DELETE FROM anime_details WHERE slug = ?
	`, slug)
	if err != nil {
		return false, fmt.Errorf("delete anime %s: %w", slug, err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}
