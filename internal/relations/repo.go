package relations

import (
	"context"
	"database/sql"
	"fmt"

	"animehub/pkg/database"
	"animehub/pkg/models"
)

// Repo is the user relation store: watch history, favorites and
// subscriptions. Every row carries denormalized title/thumbnail
// snapshots taken at write time so relation lists never join the
// catalogue tables. All rows hang off users(id) with ON DELETE CASCADE.
type Repo struct {
	DB *sql.DB
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{DB: db}
}

// RecordHistory upserts a watch event. Re-watching the same episode
// refreshes watched_at and the snapshots instead of adding a row.
func (r *Repo) RecordHistory(ctx context.Context, userID string, h models.UserHistory) error {
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO user_history (
			user_id, episode_slug, anime_slug, episode_title, anime_title,
			thumbnail, watched_at
		)
		VALUES (?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(user_id, episode_slug) DO UPDATE SET
			anime_slug = excluded.anime_slug,
			episode_title = excluded.episode_title,
			anime_title = excluded.anime_title,
			thumbnail = excluded.thumbnail,
			watched_at = CURRENT_TIMESTAMP
	`, userID, h.EpisodeSlug, h.AnimeSlug, h.EpisodeTitle, h.AnimeTitle, h.Thumbnail)
	if err != nil {
		return fmt.Errorf("record history %s/%s: %w", userID, h.EpisodeSlug, database.MapError(err))
	}
	return nil
}

// AddFavorite inserts a favorite. Re-favoriting an already favorited
// anime is a no-op that keeps the original created_at and snapshots.
func (r *Repo) AddFavorite(ctx context.Context, userID string, f models.UserFavorite) error {
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO user_favorites (user_id, anime_slug, anime_title, thumbnail)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id, anime_slug) DO NOTHING
	`, userID, f.AnimeSlug, f.AnimeTitle, f.Thumbnail)
	if err != nil {
		return fmt.Errorf("add favorite %s/%s: %w", userID, f.AnimeSlug, database.MapError(err))
	}
	return nil
}

// Subscribe inserts a subscription, idempotently like AddFavorite.
func (r *Repo) Subscribe(ctx context.Context, userID string, s models.UserSubscription) error {
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO user_subscriptions (user_id, anime_slug, anime_title, thumbnail)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id, anime_slug) DO NOTHING
	`, userID, s.AnimeSlug, s.AnimeTitle, s.Thumbnail)
	if err != nil {
		return fmt.Errorf("subscribe %s/%s: %w", userID, s.AnimeSlug, database.MapError(err))
	}
	return nil
}

// RefreshFavoriteSnapshot rewrites the denormalized fields of one
// favorite from a current catalogue record. This is the only path that
// resyncs a snapshot. Returns whether the favorite existed.
func (r *Repo) RefreshFavoriteSnapshot(ctx context.Context, userID, animeSlug, title, thumbnail string) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `
		UPDATE user_favorites
		SET anime_title = ?, thumbnail = ?
		WHERE user_id = ? AND anime_slug = ?
	`, title, thumbnail, userID, animeSlug)
	if err != nil {
		return false, fmt.Errorf("refresh favorite snapshot %s/%s: %w", userID, animeSlug, err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (r *Repo) RemoveHistory(ctx context.Context, userID, episodeSlug string) (bool, error) {
	return r.remove(ctx, `DELETE FROM user_history WHERE user_id = ? AND episode_slug = ?`,
		userID, episodeSlug)
}

func (r *Repo) RemoveFavorite(ctx context.Context, userID, animeSlug string) (bool, error) {
	return r.remove(ctx, `DELETE FROM user_favorites WHERE user_id = ? AND anime_slug = ?`,
		userID, animeSlug)
}

func (r *Repo) Unsubscribe(ctx context.Context, userID, animeSlug string) (bool, error) {
	return r.remove(ctx, `DELETE FROM user_subscriptions WHERE user_id = ? AND anime_slug = ?`,
		userID, animeSlug)
}

func (r *Repo) remove(ctx context.Context, query, userID, key string) (bool, error) {
	res, err := r.DB.ExecContext(ctx, query, userID, key)
	if err != nil {
		return false, fmt.Errorf("remove relation %s/%s: %w", userID, key, err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// ListHistory returns a user's watch history, most recent first.
func (r *Repo) ListHistory(ctx context.Context, userID string) ([]models.UserHistory, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT episode_slug, anime_slug, episode_title, anime_title, thumbnail, watched_at
		FROM user_history
		WHERE user_id = ?
		ORDER BY watched_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list history %s: %w", userID, err)
	}
	defer rows.Close()

	out := make([]models.UserHistory, 0)
	for rows.Next() {
		var (
			h                                   models.UserHistory
			episodeTitle, animeTitle, thumbnail sql.NullString
		)
		if err := rows.Scan(&h.EpisodeSlug, &h.AnimeSlug, &episodeTitle, &animeTitle,
			&thumbnail, &h.WatchedAt); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		h.EpisodeTitle = episodeTitle.String
		h.AnimeTitle = animeTitle.String
		h.Thumbnail = thumbnail.String
		out = append(out, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows history: %w", err)
	}
	return out, nil
}

// ListFavorites returns a user's favorites, newest first.
func (r *Repo) ListFavorites(ctx context.Context, userID string) ([]models.UserFavorite, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT anime_slug, anime_title, thumbnail, created_at
		FROM user_favorites
		WHERE user_id = ?
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list favorites %s: %w", userID, err)
	}
	defer rows.Close()

	out := make([]models.UserFavorite, 0)
	for rows.Next() {
		var (
			f                     models.UserFavorite
			animeTitle, thumbnail sql.NullString
		)
		if err := rows.Scan(&f.AnimeSlug, &animeTitle, &thumbnail, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan favorite: %w", err)
		}
		f.AnimeTitle = animeTitle.String
		f.Thumbnail = thumbnail.String
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows favorites: %w", err)
	}
	return out, nil
}

// ListSubscriptions returns a user's subscriptions, newest first.
func (r *Repo) ListSubscriptions(ctx context.Context, userID string) ([]models.UserSubscription, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT anime_slug, anime_title, thumbnail, created_at
		FROM user_subscriptions
		WHERE user_id = ?
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list subscriptions %s: %w", userID, err)
	}
	defer rows.Close()

	out := make([]models.UserSubscription, 0)
	for rows.Next() {
		var (
			s                     models.UserSubscription
			animeTitle, thumbnail sql.NullString
		)
		if err := rows.Scan(&s.AnimeSlug, &animeTitle, &thumbnail, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan subscription: %w", err)
		}
		s.AnimeTitle = animeTitle.String
		s.Thumbnail = thumbnail.String
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows subscriptions: %w", err)
	}
	return out, nil
}
