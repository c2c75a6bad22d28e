package crawler

import (
	"fmt"
	"strings"
)

// URL builders for the upstream site's page types. The base URL comes
// from config so staging mirrors work.

func homeURL(base string) string {
	return strings.TrimRight(base, "/") + "/"
}

func completedURL(base string) string {
	return strings.TrimRight(base, "/") + "/completed/"
}

func listingPageURL(base string, page int) string {
	if page <= 1 {
		return strings.TrimRight(base, "/") + "/anime/"
	}
	return fmt.Sprintf("%s/anime/?page=%d", strings.TrimRight(base, "/"), page)
}

func animeDetailURL(base, slug string) string {
	return fmt.Sprintf("%s/anime/%s/", strings.TrimRight(base, "/"), slug)
}

// EpisodePageURL is exported because episode pages are addressed by
// slug at the API layer but stored by full URL.
func EpisodePageURL(base, episodeSlug string) string {
	return fmt.Sprintf("%s/%s/", strings.TrimRight(base, "/"), episodeSlug)
}
