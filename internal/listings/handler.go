package listings

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"animehub/internal/cache"
	"animehub/internal/crawler"
	"animehub/pkg/models"
)

// Handler serves the listing feeds. Same pattern as the catalogue
// routes: coordinator first, stored rows as the fallback when the
// upstream is unreachable.
type Handler struct {
	Repo            *Repo
	Coord           *cache.Coordinator
	Crawler         crawler.Crawler
	MaxAgeUpdates   time.Duration
	MaxAgeCompleted time.Duration
	Logger          zerolog.Logger
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/updates", h.getUpdates)
	rg.GET("/completed", h.getCompleted)
	rg.GET("/crawled", h.getCrawled)
}

func (h *Handler) getUpdates(c *gin.Context) {
	ctx := c.Request.Context()

	_, refreshErr := h.Coord.EnsureFresh(ctx, cache.UpdatesKey(), h.MaxAgeUpdates,
		func(ctx context.Context) (cache.Merge, error) {
			updates, err := h.Crawler.FetchUpdates(ctx)
			if err != nil {
				return nil, err
			}
			return func(ctx context.Context, tx *sql.Tx) error {
				return h.Repo.SaveUpdates(ctx, tx, updates)
			}, nil
		})
	if refreshErr != nil {
		h.Logger.Warn().Err(refreshErr).Msg("updates refresh failed, serving stored")
	}

	updates, err := h.Repo.GetUpdates(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.NewAPIError("lookup failed"))
		return
	}
	if len(updates) == 0 && refreshErr != nil {
		c.JSON(http.StatusBadGateway, models.NewAPIError("upstream unavailable"))
		return
	}
	c.JSON(http.StatusOK, models.NewAPIResponse(updates))
}

func (h *Handler) getCompleted(c *gin.Context) {
	ctx := c.Request.Context()

	_, refreshErr := h.Coord.EnsureFresh(ctx, cache.CompletedKey(), h.MaxAgeCompleted,
		func(ctx context.Context) (cache.Merge, error) {
			entries, err := h.Crawler.FetchCompleted(ctx)
			if err != nil {
				return nil, err
			}
			return func(ctx context.Context, tx *sql.Tx) error {
				return h.Repo.SaveCompleted(ctx, tx, entries)
			}, nil
		})
	if refreshErr != nil {
		h.Logger.Warn().Err(refreshErr).Msg("completed refresh failed, serving stored")
	}

	entries, err := h.Repo.GetCompleted(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.NewAPIError("lookup failed"))
		return
	}
	if len(entries) == 0 && refreshErr != nil {
		c.JSON(http.StatusBadGateway, models.NewAPIError("upstream unavailable"))
		return
	}
	c.JSON(http.StatusOK, models.NewAPIResponse(entries))
}

// getCrawled serves the browse staging table as-is; it is filled by the
// bulk crawl command, not refreshed per request.
func (h *Handler) getCrawled(c *gin.Context) {
	entries, err := h.Repo.GetCrawled(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.NewAPIError("lookup failed"))
		return
	}
	c.JSON(http.StatusOK, models.NewAPIResponse(entries))
}
