package models

// AnimeDetail is the canonical detail record for one series. The crawler
// produces it and the catalogue store persists it; slug and url are the
// immutable identity, everything else is overwritten on refresh.
type AnimeDetail struct {
	Slug            string    `json:"slug"`
	URL             string    `json:"url,omitempty"`
	Title           string    `json:"title"`
	AlternateTitles string    `json:"alternateTitles,omitempty"`
	Poster          string    `json:"poster,omitempty"`
	Rating          string    `json:"rating,omitempty"`
	TrailerURL      string    `json:"trailerUrl,omitempty"`
	Status          string    `json:"status,omitempty"`
	Studio          string    `json:"studio,omitempty"`
	ReleaseDate     string    `json:"releaseDate,omitempty"`
	Duration        string    `json:"duration,omitempty"`
	Season          string    `json:"season,omitempty"`
	Type            string    `json:"type,omitempty"`
	TotalEpisodes   string    `json:"totalEpisodes,omitempty"`
	Director        string    `json:"director,omitempty"`
	Casts           []string  `json:"casts"`
	Genres          []string  `json:"genres"`
	Synopsis        string    `json:"synopsis,omitempty"`
	Episodes        []Episode `json:"episodes"`
}

// Episode belongs to exactly one anime via AnimeSlug. URL is the global
// unique key; Slug is derived from it for display and history keys.
type Episode struct {
	Slug        string `json:"slug"`
	AnimeSlug   string `json:"animeSlug"`
	Number      string `json:"number,omitempty"`
	Title       string `json:"title,omitempty"`
	URL         string `json:"url"`
	ReleaseDate string `json:"releaseDate,omitempty"`
}

// VideoSource references its episode by value (EpisodeURL), not by
// foreign key. One episode typically has several server/quality combos.
type VideoSource struct {
	EpisodeURL string `json:"episodeUrl,omitempty"`
	Server     string `json:"server"`
	Quality    string `json:"quality"`
	URL        string `json:"url"`
}
