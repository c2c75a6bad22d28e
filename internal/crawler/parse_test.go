package crawler

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func doc(t *testing.T, html string) *goquery.Document {
	t.Helper()
	d, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return d
}

const updatesHTML = `
<div class="listupd">
  <article class="bs">
    <a href="https://example.com/one-piece-episode-1100/" title="One Piece">
      <div class="typez">TV</div>
      <span class="epx">Ep 1100</span>
      <img class="ts-post-image" src="https://example.com/op.jpg">
      <h2 itemprop="headline">One Piece</h2>
      <span class="sb">Sub</span>
    </a>
  </article>
  <article class="bs">
    <a href="https://example.com/bleach-episode-9/">
      <img class="ts-post-image" data-src="https://example.com/bleach.jpg" src="placeholder.gif">
      <h2 itemprop="headline">Bleach</h2>
    </a>
  </article>
</div>`

func TestParseUpdates(t *testing.T) {
	got := parseUpdates(doc(t, updatesHTML))
	require.Len(t, got, 2)

	assert.Equal(t, "One Piece", got[0].Title)
	assert.Equal(t, "one-piece-episode-1100", got[0].Slug)
	assert.Equal(t, "Ep 1100", got[0].EpisodeNumber)
	assert.Equal(t, "TV", got[0].Type)
	assert.Equal(t, "https://example.com/op.jpg", got[0].Thumbnail)

	// lazy-loaded images keep the real source in data-src
	assert.Equal(t, "https://example.com/bleach.jpg", got[1].Thumbnail)
}

const detailHTML = `
<h1 class="entry-title">Frieren: Beyond Journey's End</h1>
<span class="alter">Sousou no Frieren</span>
<div class="thumb"><img class="ts-post-image" src="https://example.com/frieren.jpg"></div>
<div class="rating"><strong>Rating 9.10</strong></div>
<div class="trailer"><iframe src="https://youtube.com/embed/abc"></iframe></div>
<div class="info-content"><div class="spe">
  <span><b>Status:</b> Completed</span>
  <span><b>Studio:</b> Madhouse</span>
  <span><b>Released:</b> Sep 29, 2023</span>
  <span><b>Duration:</b> 24 min</span>
  <span><b>Type:</b> TV</span>
  <span><b>Episodes:</b> 28</span>
</div></div>
<div class="genxed"><a>Adventure</a><a>Fantasy</a></div>
<div class="entry-content" itemprop="description">An elf mage outlives her party.</div>
<div class="eplister"><ul>
  <li><a href="https://example.com/frieren-episode-2/">
    <div class="epl-num">2</div><div class="epl-title">Episode 2</div><div class="epl-date">Oct 6, 2023</div>
  </a></li>
  <li><a href="https://example.com/frieren-episode-1/">
    <div class="epl-num">1</div><div class="epl-title">Episode 1</div><div class="epl-date">Sep 29, 2023</div>
  </a></li>
</ul></div>`

func TestParseAnimeDetail(t *testing.T) {
	got := parseAnimeDetail(doc(t, detailHTML), "frieren")

	assert.Equal(t, "frieren", got.Slug)
	assert.Equal(t, "Frieren: Beyond Journey's End", got.Title)
	assert.Equal(t, "Sousou no Frieren", got.AlternateTitles)
	assert.Equal(t, "9.10", got.Rating)
	assert.Equal(t, "Completed", got.Status)
	assert.Equal(t, "Madhouse", got.Studio)
	assert.Equal(t, "Sep 29, 2023", got.ReleaseDate)
	assert.Equal(t, "TV", got.Type)
	assert.Equal(t, "28", got.TotalEpisodes)
	assert.Equal(t, "https://youtube.com/embed/abc", got.TrailerURL)
	assert.Equal(t, []string{"Adventure", "Fantasy"}, got.Genres)
	assert.Equal(t, "An elf mage outlives her party.", got.Synopsis)

	require.Len(t, got.Episodes, 2)
	assert.Equal(t, "frieren-episode-2", got.Episodes[0].Slug)
	assert.Equal(t, "frieren", got.Episodes[0].AnimeSlug)
	assert.Equal(t, "Episode 1", got.Episodes[1].Title)
}

const sourcesHTML = `
<select class="mirror">
  <option value="">Select server</option>
  <option value="https://streamtape.example/e/1">Streamtape 720p</option>
  <option value="https://mp4upload.example/e/2">Mp4upload</option>
</select>`

func TestParseVideoSources(t *testing.T) {
	got := parseVideoSources(doc(t, sourcesHTML), "https://example.com/frieren-episode-1/")
	require.Len(t, got, 2)

	assert.Equal(t, "Streamtape", got[0].Server)
	assert.Equal(t, "720p", got[0].Quality)
	assert.Equal(t, "https://streamtape.example/e/1", got[0].URL)
	assert.Equal(t, "https://example.com/frieren-episode-1/", got[0].EpisodeURL)

	assert.Equal(t, "Mp4upload", got[1].Server)
	assert.Empty(t, got[1].Quality)
}

func TestParseVideoSourcesIframeFallback(t *testing.T) {
	html := `<div class="player-embed"><iframe src="https://embed.example/xyz"></iframe></div>`
	got := parseVideoSources(doc(t, html), "https://example.com/ep/")
	require.Len(t, got, 1)
	assert.Equal(t, "default", got[0].Server)
	assert.Equal(t, "https://embed.example/xyz", got[0].URL)
}

func TestURLBuilders(t *testing.T) {
	base := "https://example.com/"
	assert.Equal(t, "https://example.com/", homeURL(base))
	assert.Equal(t, "https://example.com/completed/", completedURL(base))
	assert.Equal(t, "https://example.com/anime/", listingPageURL(base, 1))
	assert.Equal(t, "https://example.com/anime/?page=3", listingPageURL(base, 3))
	assert.Equal(t, "https://example.com/anime/one-piece/", animeDetailURL(base, "one-piece"))
	assert.Equal(t, "https://example.com/one-piece-episode-1/", EpisodePageURL(base, "one-piece-episode-1"))
}
