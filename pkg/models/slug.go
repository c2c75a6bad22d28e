package models

import "strings"

// SlugFromURL extracts the trailing path segment of a page URL, e.g.
// "https://example.com/anime/one-piece/" -> "one-piece".
func SlugFromURL(url string) string {
	trimmed := strings.TrimRight(url, "/")
	if i := strings.LastIndexByte(trimmed, '/'); i >= 0 {
		return trimmed[i+1:]
	}
	return trimmed
}
