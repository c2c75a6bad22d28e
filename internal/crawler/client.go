package crawler

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"animehub/pkg/models"
)

const userAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"

// Client is the HTTP Crawler. Transient failures (5xx, connection
// resets) are retried with exponential backoff inside the caller's
// context deadline; 4xx responses are not retried.
type Client struct {
	base   string
	http   *http.Client
	logger zerolog.Logger
}

func NewClient(baseURL string, timeout time.Duration, logger zerolog.Logger) *Client {
	return &Client{
		base:   baseURL,
		http:   &http.Client{Timeout: timeout},
		logger: logger,
	}
}

// fetchDocument GETs url and parses the body, retrying transient
// failures. Errors come back as ErrTimeout or ErrFetch.
func (c *Client) fetchDocument(ctx context.Context, url string) (*goquery.Document, error) {
	var doc *goquery.Document

	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("User-Agent", userAgent)

		resp, err := c.http.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode >= 500:
			return fmt.Errorf("status %d", resp.StatusCode)
		case resp.StatusCode == http.StatusNotFound:
			return backoff.Permanent(ErrNotFound)
		case resp.StatusCode != http.StatusOK:
			return backoff.Permanent(fmt.Errorf("status %d", resp.StatusCode))
		}

		doc, err = goquery.NewDocumentFromReader(resp.Body)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("parse html: %w", err))
		}
		return nil
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		c.logger.Warn().Str("url", url).Err(err).Msg("fetch failed")
		return nil, c.classify(err, url)
	}
	return doc, nil
}

func (c *Client) classify(err error, url string) error {
	if errors.Is(err, ErrNotFound) {
		return fmt.Errorf("%s: %w", url, ErrNotFound)
	}
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return fmt.Errorf("%s: %w", url, ErrTimeout)
	}
	return fmt.Errorf("%s: %v: %w", url, err, ErrFetch)
}

func (c *Client) FetchUpdates(ctx context.Context) ([]models.AnimeUpdate, error) {
	doc, err := c.fetchDocument(ctx, homeURL(c.base))
	if err != nil {
		return nil, err
	}
	return parseUpdates(doc), nil
}

func (c *Client) FetchCompleted(ctx context.Context) ([]models.CompletedAnime, error) {
	doc, err := c.fetchDocument(ctx, completedURL(c.base))
	if err != nil {
		return nil, err
	}
	return parseCompleted(doc), nil
}

func (c *Client) FetchAnimeDetail(ctx context.Context, slug string) (*models.AnimeDetail, error) {
	url := animeDetailURL(c.base, slug)
	doc, err := c.fetchDocument(ctx, url)
	if err != nil {
		return nil, err
	}
	detail := parseAnimeDetail(doc, slug)
	detail.URL = url
	return detail, nil
}

func (c *Client) FetchEpisodeSources(ctx context.Context, episodeSlug string) ([]models.VideoSource, error) {
	url := EpisodePageURL(c.base, episodeSlug)
	doc, err := c.fetchDocument(ctx, url)
	if err != nil {
		return nil, err
	}
	return parseVideoSources(doc, url), nil
}

func (c *Client) FetchListingPage(ctx context.Context, page int) ([]models.CrawledAnime, error) {
	doc, err := c.fetchDocument(ctx, listingPageURL(c.base, page))
	if err != nil {
		return nil, err
	}
	return parseListingPage(doc), nil
}
