package cache

import "strconv"

// Key identifies one unit of crawlable content in the freshness ledger.
// Keys are constructed through the typed helpers below so unrelated
// cache domains cannot collide on a raw string.
type Key struct {
	kind string
	id   string
}

// UpdatesKey covers the home-page update feed.
func UpdatesKey() Key {
	return Key{kind: "updates"}
}

// CompletedKey covers the completed-series listing.
func CompletedKey() Key {
	return Key{kind: "completed"}
}

// AnimeDetailKey covers one anime's detail record and its episode list.
func AnimeDetailKey(slug string) Key {
	return Key{kind: "anime", id: slug}
}

// EpisodeSourcesKey covers the video-source set of one episode.
func EpisodeSourcesKey(episodeSlug string) Key {
	return Key{kind: "sources", id: episodeSlug}
}

// CrawlPageKey covers one page of the paginated browse listing.
func CrawlPageKey(page int) Key {
	return Key{kind: "crawl:page", id: strconv.Itoa(page)}
}

// String renders the ledger row key. The "updates", "completed" and
// "anime:<slug>" forms are stable and match pre-existing ledger rows.
func (k Key) String() string {
	if k.id == "" {
		return k.kind
	}
	return k.kind + ":" + k.id
}
