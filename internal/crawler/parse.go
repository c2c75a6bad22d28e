package crawler

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"animehub/pkg/models"
)

// The upstream runs a stock WordPress anime theme; every listing is a
// grid of article.bs cards with the same inner structure, so the parsers
// share selectors: h2[itemprop=headline] for the title, img.ts-post-image
// for the thumbnail, div.typez for the media type and span.epx for the
// episode badge.

func parseUpdates(doc *goquery.Document) []models.AnimeUpdate {
	out := make([]models.AnimeUpdate, 0)
	doc.Find("div.listupd article.bs").Each(func(_ int, s *goquery.Selection) {
		link := s.Find("a").First()
		href, ok := link.Attr("href")
		if !ok || href == "" {
			return
		}
		u := models.AnimeUpdate{
			EpisodeURL:    href,
			Slug:          models.SlugFromURL(href),
			Title:         cleanText(s.Find("h2[itemprop=headline]").Text()),
			Thumbnail:     imageSrc(s.Find("img.ts-post-image")),
			EpisodeNumber: cleanText(s.Find("span.epx").Text()),
			Type:          cleanText(s.Find("div.typez").Text()),
			Status:        cleanText(s.Find("div.status").Text()),
			ReleaseInfo:   cleanText(s.Find("span.sb").Text()),
		}
		if u.Title == "" {
			u.Title = cleanText(link.AttrOr("title", ""))
		}
		out = append(out, u)
	})
	return out
}

func parseCompleted(doc *goquery.Document) []models.CompletedAnime {
	out := make([]models.CompletedAnime, 0)
	doc.Find("div.listupd article.bs").Each(func(_ int, s *goquery.Selection) {
		link := s.Find("a").First()
		href, ok := link.Attr("href")
		if !ok || href == "" {
			return
		}
		c := models.CompletedAnime{
			URL:          href,
			Slug:         models.SlugFromURL(href),
			Title:        cleanText(s.Find("h2[itemprop=headline]").Text()),
			Thumbnail:    imageSrc(s.Find("img.ts-post-image")),
			Type:         cleanText(s.Find("div.typez").Text()),
			EpisodeCount: cleanText(s.Find("span.epx").Text()),
			Status:       "Completed",
			Genres:       []string{},
		}
		if c.Title == "" {
			c.Title = cleanText(link.AttrOr("title", ""))
		}
		out = append(out, c)
	})
	return out
}

func parseListingPage(doc *goquery.Document) []models.CrawledAnime {
	out := make([]models.CrawledAnime, 0)
	doc.Find("div.listupd article.bs").Each(func(_ int, s *goquery.Selection) {
		link := s.Find("a").First()
		href, ok := link.Attr("href")
		if !ok || href == "" {
			return
		}
		out = append(out, models.CrawledAnime{
			URL:           href,
			Slug:          models.SlugFromURL(href),
			Title:         cleanText(s.Find("h2[itemprop=headline]").Text()),
			Thumbnail:     imageSrc(s.Find("img.ts-post-image")),
			Status:        cleanText(s.Find("div.status").Text()),
			Type:          cleanText(s.Find("div.typez").Text()),
			EpisodeStatus: cleanText(s.Find("span.epx").Text()),
		})
	})
	return out
}

func parseAnimeDetail(doc *goquery.Document, slug string) *models.AnimeDetail {
	d := &models.AnimeDetail{
		Slug:     slug,
		Title:    cleanText(doc.Find("h1.entry-title").Text()),
		Poster:   imageSrc(doc.Find("div.thumb img.ts-post-image")),
		Rating:   cleanText(doc.Find("div.rating strong").Text()),
		Synopsis: cleanText(doc.Find("div.entry-content[itemprop=description]").Text()),
		Casts:    []string{},
		Genres:   []string{},
	}
	d.Rating = strings.TrimPrefix(d.Rating, "Rating ")

	if src, ok := doc.Find("div.trailer iframe").Attr("src"); ok {
		d.TrailerURL = src
	}

	// The info box is a list of "Label: value" spans.
	doc.Find("div.info-content div.spe span").Each(func(_ int, s *goquery.Selection) {
		label, value := splitInfoSpan(s)
		switch label {
		case "Status":
			d.Status = value
		case "Studio":
			d.Studio = value
		case "Released":
			d.ReleaseDate = value
		case "Duration":
			d.Duration = value
		case "Season":
			d.Season = value
		case "Type":
			d.Type = value
		case "Episodes":
			d.TotalEpisodes = value
		case "Director":
			d.Director = value
		case "Casts":
			for _, name := range strings.Split(value, ",") {
				if name = strings.TrimSpace(name); name != "" {
					d.Casts = append(d.Casts, name)
				}
			}
		}
	})

	d.AlternateTitles = cleanText(doc.Find("span.alter").Text())

	doc.Find("div.genxed a").Each(func(_ int, s *goquery.Selection) {
		if g := cleanText(s.Text()); g != "" {
			d.Genres = append(d.Genres, g)
		}
	})

	doc.Find("div.eplister ul li").Each(func(_ int, s *goquery.Selection) {
		href, ok := s.Find("a").Attr("href")
		if !ok || href == "" {
			return
		}
		ep := models.Episode{
			AnimeSlug:   slug,
			URL:         href,
			Slug:        models.SlugFromURL(href),
			Number:      cleanText(s.Find("div.epl-num").Text()),
			Title:       cleanText(s.Find("div.epl-title").Text()),
			ReleaseDate: cleanText(s.Find("div.epl-date").Text()),
		}
		d.Episodes = append(d.Episodes, ep)
	})

	return d
}

func parseVideoSources(doc *goquery.Document, epURL string) []models.VideoSource {
	out := make([]models.VideoSource, 0)

	// Mirror dropdown: one option per server/quality combo, the embed URL
	// in the value attribute. The default player iframe is the fallback
	// when the dropdown is absent.
	doc.Find("select.mirror option").Each(func(_ int, s *goquery.Selection) {
		value, ok := s.Attr("value")
		if !ok || value == "" {
			return
		}
		label := cleanText(s.Text())
		server, quality := splitServerLabel(label)
		out = append(out, models.VideoSource{
			EpisodeURL: epURL,
			Server:     server,
			Quality:    quality,
			URL:        value,
		})
	})

	if len(out) == 0 {
		if src, ok := doc.Find("div.player-embed iframe").Attr("src"); ok && src != "" {
			out = append(out, models.VideoSource{
				EpisodeURL: epURL,
				Server:     "default",
				URL:        src,
			})
		}
	}
	return out
}

// splitInfoSpan turns "<b>Status:</b> Ongoing" into ("Status", "Ongoing").
func splitInfoSpan(s *goquery.Selection) (label, value string) {
	label = cleanText(strings.TrimSuffix(cleanText(s.Find("b").Text()), ":"))
	full := cleanText(s.Text())
	value = cleanText(strings.TrimPrefix(full, cleanText(s.Find("b").Text())))
	return label, value
}

// splitServerLabel turns "Streamtape 720p" into ("Streamtape", "720p").
// Labels without a resolution suffix keep an empty quality.
func splitServerLabel(label string) (server, quality string) {
	fields := strings.Fields(label)
	if len(fields) == 0 {
		return "", ""
	}
	last := fields[len(fields)-1]
	if strings.HasSuffix(last, "p") && len(fields) > 1 {
		return strings.Join(fields[:len(fields)-1], " "), last
	}
	return label, ""
}

func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func imageSrc(s *goquery.Selection) string {
	if src, ok := s.Attr("data-src"); ok && src != "" {
		return src
	}
	return s.AttrOr("src", "")
}
