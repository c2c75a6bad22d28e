package catalogue

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"animehub/internal/cache"
	"animehub/internal/crawler"
	"animehub/pkg/database"
	"animehub/pkg/models"
)

// Handler serves anime detail and episode source routes. Reads go
// through the freshness coordinator; when the upstream is down the
// stored rows are served as-is instead of failing the request.
type Handler struct {
	Repo          *Repo
	Coord         *cache.Coordinator
	Crawler       crawler.Crawler
	SourceBaseURL string
	MaxAgeDetail  time.Duration
	MaxAgeSources time.Duration
	Logger        zerolog.Logger
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authed gin.HandlerFunc) {
	rg.GET("/anime/:slug", h.getAnime)
	rg.GET("/episode/:slug/sources", h.getEpisodeSources)
	rg.DELETE("/anime/:slug", authed, h.deleteAnime)
	rg.DELETE("/anime/:slug/cache", authed, h.invalidateAnime)
}

func (h *Handler) getAnime(c *gin.Context) {
	slug := c.Param("slug")
	ctx := c.Request.Context()

	_, refreshErr := h.Coord.EnsureFresh(ctx, cache.AnimeDetailKey(slug), h.MaxAgeDetail,
		func(ctx context.Context) (cache.Merge, error) {
			detail, err := h.Crawler.FetchAnimeDetail(ctx, slug)
			if err != nil {
				return nil, err
			}
			return func(ctx context.Context, tx *sql.Tx) error {
				if err := h.Repo.UpsertAnime(ctx, tx, detail); err != nil {
					return err
				}
				return h.Repo.SaveEpisodes(ctx, tx, detail.Slug, detail.Episodes)
			}, nil
		})
	if refreshErr != nil {
		h.Logger.Warn().Str("slug", slug).Err(refreshErr).Msg("refresh failed, serving stored")
	}

	detail, err := h.Repo.GetAnimeBySlug(ctx, slug)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.NewAPIError("lookup failed"))
		return
	}
	if detail == nil {
		if refreshErr != nil && !errors.Is(refreshErr, crawler.ErrNotFound) {
			c.JSON(http.StatusBadGateway, models.NewAPIError("upstream unavailable"))
			return
		}
		c.JSON(http.StatusNotFound, models.NewAPIError("anime not found"))
		return
	}
	c.JSON(http.StatusOK, models.NewAPIResponse(detail))
}

func (h *Handler) getEpisodeSources(c *gin.Context) {
	episodeSlug := c.Param("slug")
	episodeURL := crawler.EpisodePageURL(h.SourceBaseURL, episodeSlug)
	ctx := c.Request.Context()

	_, refreshErr := h.Coord.EnsureFresh(ctx, cache.EpisodeSourcesKey(episodeSlug), h.MaxAgeSources,
		func(ctx context.Context) (cache.Merge, error) {
			sources, err := h.Crawler.FetchEpisodeSources(ctx, episodeSlug)
			if err != nil {
				return nil, err
			}
			return func(ctx context.Context, tx *sql.Tx) error {
				return h.Repo.ReplaceVideoSources(ctx, tx, episodeURL, sources)
			}, nil
		})
	if refreshErr != nil {
		h.Logger.Warn().Str("episode", episodeSlug).Err(refreshErr).Msg("refresh failed, serving stored")
	}

	sources, err := h.Repo.GetVideoSourcesForEpisode(ctx, episodeURL)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.NewAPIError("lookup failed"))
		return
	}
	if len(sources) == 0 && refreshErr != nil {
		if errors.Is(refreshErr, crawler.ErrNotFound) {
			c.JSON(http.StatusNotFound, models.NewAPIError("episode not found"))
			return
		}
		c.JSON(http.StatusBadGateway, models.NewAPIError("upstream unavailable"))
		return
	}
	c.JSON(http.StatusOK, models.NewAPIResponse(sources))
}

func (h *Handler) deleteAnime(c *gin.Context) {
	slug := c.Param("slug")
	deleted, err := h.Repo.DeleteAnime(c.Request.Context(), slug)
	if err != nil {
		if errors.Is(err, database.ErrForeignKey) {
			c.JSON(http.StatusConflict, models.NewAPIError("anime still referenced"))
			return
		}
		c.JSON(http.StatusInternalServerError, models.NewAPIError("delete failed"))
		return
	}
	if !deleted {
		c.JSON(http.StatusNotFound, models.NewAPIError("anime not found"))
		return
	}
	// the ledger entry goes too, so a later read re-crawls
	if _, err := h.Coord.Ledger().Delete(c.Request.Context(), cache.AnimeDetailKey(slug)); err != nil {
		h.Logger.Warn().Str("slug", slug).Err(err).Msg("ledger cleanup failed")
	}
	c.JSON(http.StatusOK, models.NewAPIResponse(gin.H{"status": "deleted"}))
}

// invalidateAnime drops only the ledger entry, forcing the next read to
// refresh without touching stored rows.
func (h *Handler) invalidateAnime(c *gin.Context) {
	slug := c.Param("slug")
	existed, err := h.Coord.Ledger().Delete(c.Request.Context(), cache.AnimeDetailKey(slug))
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.NewAPIError("invalidate failed"))
		return
	}
	if !existed {
		c.JSON(http.StatusNotFound, models.NewAPIError("no cache entry"))
		return
	}
	c.JSON(http.StatusOK, models.NewAPIResponse(gin.H{"status": "invalidated"}))
}
