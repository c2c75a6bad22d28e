package models

import "time"

// User relation rows carry denormalized title/thumbnail snapshots taken
// at write time. They are intentionally not resynced when the catalogue
// changes, so relation lists render without joining catalogue tables.

type UserFavorite struct {
	AnimeSlug  string    `json:"animeSlug"`
	AnimeTitle string    `json:"animeTitle"`
	Thumbnail  string    `json:"thumbnail,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

type UserSubscription struct {
	AnimeSlug  string    `json:"animeSlug"`
	AnimeTitle string    `json:"animeTitle"`
	Thumbnail  string    `json:"thumbnail,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

type UserHistory struct {
	EpisodeSlug  string    `json:"episodeSlug"`
	AnimeSlug    string    `json:"animeSlug"`
	EpisodeTitle string    `json:"episodeTitle,omitempty"`
	AnimeTitle   string    `json:"animeTitle,omitempty"`
	Thumbnail    string    `json:"thumbnail,omitempty"`
	WatchedAt    time.Time `json:"watchedAt"`
}
