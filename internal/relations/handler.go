package relations

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"animehub/internal/auth"
	"animehub/internal/catalogue"
	"animehub/pkg/database"
	"animehub/pkg/models"
)

// Handler serves the per-user relation routes. Every route runs behind
// the auth middleware; the user comes from the JWT claims, never from
// the request body.
type Handler struct {
	Repo      *Repo
	Catalogue *catalogue.Repo
}

func NewHandler(repo *Repo, cat *catalogue.Repo) *Handler {
	return &Handler{Repo: repo, Catalogue: cat}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authed gin.HandlerFunc) {
	user := rg.Group("/user", authed)
	user.GET("/history", h.listHistory)
	user.POST("/history", h.recordHistory)
	user.DELETE("/history/:episodeSlug", h.removeHistory)

	user.GET("/favorites", h.listFavorites)
	user.POST("/favorites", h.addFavorite)
	user.DELETE("/favorites/:animeSlug", h.removeFavorite)
	user.POST("/favorites/:animeSlug/refresh", h.refreshFavorite)

	user.GET("/subscriptions", h.listSubscriptions)
	user.POST("/subscriptions", h.subscribe)
	user.DELETE("/subscriptions/:animeSlug", h.unsubscribe)
}

func userID(c *gin.Context) (string, bool) {
	claims := auth.MustGetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, models.NewAPIError("invalid token"))
		return "", false
	}
	return claims.UserID, true
}

func (h *Handler) listHistory(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}
	history, err := h.Repo.ListHistory(c.Request.Context(), uid)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.NewAPIError("lookup failed"))
		return
	}
	c.JSON(http.StatusOK, models.NewAPIResponse(history))
}

func (h *Handler) recordHistory(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}
	var req models.UserHistory
	if err := c.ShouldBindJSON(&req); err != nil || req.EpisodeSlug == "" || req.AnimeSlug == "" {
		c.JSON(http.StatusBadRequest, models.NewAPIError("episodeSlug and animeSlug required"))
		return
	}
	if err := h.Repo.RecordHistory(c.Request.Context(), uid, req); err != nil {
		h.respondWriteError(c, err, "record failed")
		return
	}
	c.JSON(http.StatusOK, models.NewAPIResponse(gin.H{"status": "recorded"}))
}

func (h *Handler) removeHistory(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}
	removed, err := h.Repo.RemoveHistory(c.Request.Context(), uid, c.Param("episodeSlug"))
	h.respondRemoval(c, removed, err)
}

func (h *Handler) listFavorites(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}
	favorites, err := h.Repo.ListFavorites(c.Request.Context(), uid)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.NewAPIError("lookup failed"))
		return
	}
	c.JSON(http.StatusOK, models.NewAPIResponse(favorites))
}

func (h *Handler) addFavorite(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}
	var req models.UserFavorite
	if err := c.ShouldBindJSON(&req); err != nil || req.AnimeSlug == "" {
		c.JSON(http.StatusBadRequest, models.NewAPIError("animeSlug required"))
		return
	}
	if err := h.Repo.AddFavorite(c.Request.Context(), uid, req); err != nil {
		h.respondWriteError(c, err, "add failed")
		return
	}
	c.JSON(http.StatusOK, models.NewAPIResponse(gin.H{"status": "favorited"}))
}

func (h *Handler) removeFavorite(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}
	removed, err := h.Repo.RemoveFavorite(c.Request.Context(), uid, c.Param("animeSlug"))
	h.respondRemoval(c, removed, err)
}

// refreshFavorite resyncs one favorite's snapshot from the current
// catalogue record. The only path that ever rewrites a snapshot.
func (h *Handler) refreshFavorite(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}
	slug := c.Param("animeSlug")

	detail, err := h.Catalogue.GetAnimeBySlug(c.Request.Context(), slug)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.NewAPIError("lookup failed"))
		return
	}
	if detail == nil {
		c.JSON(http.StatusNotFound, models.NewAPIError("anime not found"))
		return
	}

	updated, err := h.Repo.RefreshFavoriteSnapshot(c.Request.Context(), uid, slug,
		detail.Title, detail.Poster)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.NewAPIError("refresh failed"))
		return
	}
	if !updated {
		c.JSON(http.StatusNotFound, models.NewAPIError("favorite not found"))
		return
	}
	c.JSON(http.StatusOK, models.NewAPIResponse(gin.H{"status": "refreshed"}))
}

func (h *Handler) listSubscriptions(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}
	subscriptions, err := h.Repo.ListSubscriptions(c.Request.Context(), uid)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.NewAPIError("lookup failed"))
		return
	}
	c.JSON(http.StatusOK, models.NewAPIResponse(subscriptions))
}

func (h *Handler) subscribe(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}
	var req models.UserSubscription
	if err := c.ShouldBindJSON(&req); err != nil || req.AnimeSlug == "" {
		c.JSON(http.StatusBadRequest, models.NewAPIError("animeSlug required"))
		return
	}
	if err := h.Repo.Subscribe(c.Request.Context(), uid, req); err != nil {
		h.respondWriteError(c, err, "subscribe failed")
		return
	}
	c.JSON(http.StatusOK, models.NewAPIResponse(gin.H{"status": "subscribed"}))
}

func (h *Handler) unsubscribe(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}
	removed, err := h.Repo.Unsubscribe(c.Request.Context(), uid, c.Param("animeSlug"))
	h.respondRemoval(c, removed, err)
}

// respondWriteError maps relation-write failures. A foreign key
// violation here means the JWT outlived its user row, so the caller is
// told to re-authenticate rather than getting a generic 500.
func (h *Handler) respondWriteError(c *gin.Context, err error, msg string) {
	if errors.Is(err, database.ErrForeignKey) {
		c.JSON(http.StatusUnauthorized, models.NewAPIError("account no longer exists"))
		return
	}
	c.JSON(http.StatusInternalServerError, models.NewAPIError(msg))
}

func (h *Handler) respondRemoval(c *gin.Context, removed bool, err error) {
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.NewAPIError("remove failed"))
		return
	}
	if !removed {
		c.JSON(http.StatusNotFound, models.NewAPIError("not found"))
		return
	}
	c.JSON(http.StatusOK, models.NewAPIResponse(gin.H{"status": "removed"}))
}
