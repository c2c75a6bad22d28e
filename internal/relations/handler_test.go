package relations

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"animehub/internal/auth"
	"animehub/internal/catalogue"
	"animehub/pkg/models"
)

func TestRecordHistoryDeletedUserIs401(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := newTestDB(t)

	svc := auth.TokenService{Secret: []byte("test-secret"), Issuer: "animehub", Duration: time.Hour}
	h := NewHandler(NewRepo(db), catalogue.NewRepo(db))

	router := gin.New()
	h.RegisterRoutes(router.Group("/api"), auth.AuthMiddleware(svc))

	// valid token for a user whose row no longer exists
	token, _, err := svc.Sign(&models.User{ID: "deleted-user", Email: "a@example.com"})
	require.NoError(t, err)

	body, err := json.Marshal(models.UserHistory{
		EpisodeSlug: "one-piece-episode-1",
		AnimeSlug:   "one-piece",
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/user/history", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Contains(t, w.Body.String(), "account no longer exists")
}
