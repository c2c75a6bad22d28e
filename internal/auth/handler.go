package auth

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"animehub/pkg/database"
	"animehub/pkg/models"
)

const (
	verificationTokenTTL = 24 * time.Hour
	passwordResetTTL     = time.Hour
)

type Handler struct {
	Repo   *Repo
	Tokens TokenService
	Google GoogleVerifier
	Sender Sender
	Logger zerolog.Logger
}

func NewHandler(repo *Repo, tokens TokenService, google GoogleVerifier, sender Sender, logger zerolog.Logger) *Handler {
	return &Handler{Repo: repo, Tokens: tokens, Google: google, Sender: sender, Logger: logger}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/register", h.register)
	rg.POST("/login", h.login)
	rg.POST("/google", h.googleLogin)
	rg.POST("/verify-email", h.verifyEmail)
	rg.POST("/resend-verification", h.resendVerification)
	rg.POST("/forgot-password", h.forgotPassword)
	rg.POST("/reset-password", h.resetPassword)
	rg.GET("/me", AuthMiddleware(h.Tokens), h.me)
	rg.DELETE("/me", AuthMiddleware(h.Tokens), h.deleteAccount)
}

type registerReq struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

func (h *Handler) register(c *gin.Context) {
	var req registerReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.NewAPIError("invalid json"))
		return
	}

	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	req.Name = strings.TrimSpace(req.Name)

	if !strings.Contains(req.Email, "@") || len(req.Email) > 255 {
		c.JSON(http.StatusBadRequest, models.NewAPIError("invalid email"))
		return
	}
	if len(req.Password) < 8 || len(req.Password) > 72 {
		c.JSON(http.StatusBadRequest, models.NewAPIError("password must be 8-72 chars"))
		return
	}

	if u, _ := h.Repo.GetByEmail(c.Request.Context(), req.Email); u != nil {
		c.JSON(http.StatusConflict, models.NewAPIError("email already exists"))
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.NewAPIError("hash failed"))
		return
	}

	u := models.User{
		ID:           uuid.NewString(),
		Email:        req.Email,
		Name:         req.Name,
		PasswordHash: string(hash),
	}
	if err := h.Repo.CreateUser(c.Request.Context(), u); err != nil {
		if errors.Is(err, database.ErrDuplicateKey) {
			c.JSON(http.StatusConflict, models.NewAPIError("email already exists"))
			return
		}
		c.JSON(http.StatusInternalServerError, models.NewAPIError("create user failed"))
		return
	}

	if err := h.issueVerification(c, u); err != nil {
		// account exists; verification can be re-requested via
		// /resend-verification
		h.Logger.Warn().Err(err).Str("user", u.ID).Msg("send verification failed")
	}

	h.respondWithToken(c, http.StatusCreated, &u)
}

func (h *Handler) issueVerification(c *gin.Context, u models.User) error {
	t := models.VerificationToken{
		Token:     uuid.NewString(),
		UserID:    u.ID,
		Kind:      models.TokenKindEmailVerification,
		ExpiresAt: time.Now().UTC().Add(verificationTokenTTL),
	}
	if err := h.Repo.CreateToken(c.Request.Context(), t); err != nil {
		return err
	}
	return h.Sender.SendVerificationEmail(c.Request.Context(), u.Email, t.Token)
}

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) login(c *gin.Context) {
	var req loginReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.NewAPIError("invalid json"))
		return
	}

	email := strings.TrimSpace(strings.ToLower(req.Email))
	if email == "" || req.Password == "" {
		c.JSON(http.StatusBadRequest, models.NewAPIError("email and password required"))
		return
	}

	u, err := h.Repo.GetByEmail(c.Request.Context(), email)
	if err != nil || u == nil || u.PasswordHash == "" {
		// don't reveal which part failed
		c.JSON(http.StatusUnauthorized, models.NewAPIError("invalid credentials"))
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)); err != nil {
		c.JSON(http.StatusUnauthorized, models.NewAPIError("invalid credentials"))
		return
	}

	h.respondWithToken(c, http.StatusOK, u)
}

type googleLoginReq struct {
	IDToken string `json:"idToken"`
}

// googleLogin verifies a Google ID token and signs the user in,
// creating the account on first login or linking the google identity to
// an existing email account. Repeat logins are idempotent.
func (h *Handler) googleLogin(c *gin.Context) {
	var req googleLoginReq
	if err := c.ShouldBindJSON(&req); err != nil || req.IDToken == "" {
		c.JSON(http.StatusBadRequest, models.NewAPIError("idToken required"))
		return
	}

	gu, err := h.Google.Verify(c.Request.Context(), req.IDToken)
	if err != nil {
		c.JSON(http.StatusUnauthorized, models.NewAPIError("invalid google token"))
		return
	}

	ctx := c.Request.Context()
	u, err := h.Repo.GetByGoogleID(ctx, gu.Sub)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.NewAPIError("lookup failed"))
		return
	}

	if u == nil {
		email := strings.TrimSpace(strings.ToLower(gu.Email))
		u, err = h.Repo.GetByEmail(ctx, email)
		if err != nil {
			c.JSON(http.StatusInternalServerError, models.NewAPIError("lookup failed"))
			return
		}
		if u != nil {
			if err := h.Repo.LinkGoogleID(ctx, u.ID, gu.Sub); err != nil {
				c.JSON(http.StatusInternalServerError, models.NewAPIError("link failed"))
				return
			}
			u.GoogleID = gu.Sub
		} else {
			created := models.User{
				ID:            uuid.NewString(),
				Email:         email,
				GoogleID:      gu.Sub,
				Name:          gu.Name,
				Avatar:        gu.Picture,
				EmailVerified: gu.EmailVerified == "true",
			}
			if err := h.Repo.CreateUser(ctx, created); err != nil {
				c.JSON(http.StatusInternalServerError, models.NewAPIError("create user failed"))
				return
			}
			u = &created
		}
	}

	h.respondWithToken(c, http.StatusOK, u)
}

type tokenReq struct {
	Token string `json:"token"`
}

func (h *Handler) verifyEmail(c *gin.Context) {
	var req tokenReq
	if err := c.ShouldBindJSON(&req); err != nil || req.Token == "" {
		c.JSON(http.StatusBadRequest, models.NewAPIError("token required"))
		return
	}

	t, err := h.Repo.ConsumeToken(c.Request.Context(), req.Token,
		models.TokenKindEmailVerification, time.Now().UTC())
	if err != nil {
		c.JSON(tokenErrStatus(err), models.NewAPIError(tokenErrMessage(err)))
		return
	}

	if err := h.Repo.MarkEmailVerified(c.Request.Context(), t.UserID); err != nil {
		c.JSON(http.StatusInternalServerError, models.NewAPIError("verify failed"))
		return
	}
	c.JSON(http.StatusOK, models.NewAPIResponse(gin.H{"status": "email verified"}))
}

type resendVerificationReq struct {
	Email string `json:"email"`
}

// resendVerification issues a fresh email-verification token, for
// accounts whose original verification email never arrived. Answers the
// same whether the account exists, is already verified, or is unknown.
func (h *Handler) resendVerification(c *gin.Context) {
	var req resendVerificationReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.NewAPIError("invalid json"))
		return
	}

	email := strings.TrimSpace(strings.ToLower(req.Email))
	u, err := h.Repo.GetByEmail(c.Request.Context(), email)
	if err == nil && u != nil && !u.EmailVerified {
		if err := h.issueVerification(c, *u); err != nil {
			h.Logger.Warn().Err(err).Str("user", u.ID).Msg("resend verification failed")
		}
	}

	c.JSON(http.StatusOK, models.NewAPIResponse(gin.H{"status": "verification email sent if account exists"}))
}

type forgotPasswordReq struct {
	Email string `json:"email"`
}

func (h *Handler) forgotPassword(c *gin.Context) {
	var req forgotPasswordReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.NewAPIError("invalid json"))
		return
	}

	email := strings.TrimSpace(strings.ToLower(req.Email))
	u, err := h.Repo.GetByEmail(c.Request.Context(), email)
	if err == nil && u != nil {
		t := models.VerificationToken{
			Token:     uuid.NewString(),
			UserID:    u.ID,
			Kind:      models.TokenKindPasswordReset,
			ExpiresAt: time.Now().UTC().Add(passwordResetTTL),
		}
		if err := h.Repo.CreateToken(c.Request.Context(), t); err == nil {
			if err := h.Sender.SendPasswordResetEmail(c.Request.Context(), u.Email, t.Token); err != nil {
				h.Logger.Warn().Err(err).Str("user", u.ID).Msg("send reset failed")
			}
		}
	}

	// same answer whether the account exists or not
	c.JSON(http.StatusOK, models.NewAPIResponse(gin.H{"status": "reset email sent if account exists"}))
}

type resetPasswordReq struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

func (h *Handler) resetPassword(c *gin.Context) {
	var req resetPasswordReq
	if err := c.ShouldBindJSON(&req); err != nil || req.Token == "" {
		c.JSON(http.StatusBadRequest, models.NewAPIError("token required"))
		return
	}
	if len(req.Password) < 8 || len(req.Password) > 72 {
		c.JSON(http.StatusBadRequest, models.NewAPIError("password must be 8-72 chars"))
		return
	}

	t, err := h.Repo.ConsumeToken(c.Request.Context(), req.Token,
		models.TokenKindPasswordReset, time.Now().UTC())
	if err != nil {
		c.JSON(tokenErrStatus(err), models.NewAPIError(tokenErrMessage(err)))
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.NewAPIError("hash failed"))
		return
	}
	if err := h.Repo.UpdatePassword(c.Request.Context(), t.UserID, string(hash)); err != nil {
		c.JSON(http.StatusInternalServerError, models.NewAPIError("reset failed"))
		return
	}
	c.JSON(http.StatusOK, models.NewAPIResponse(gin.H{"status": "password updated"}))
}

func (h *Handler) me(c *gin.Context) {
	claims := MustGetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, models.NewAPIError("invalid token"))
		return
	}
	u, err := h.Repo.GetByID(c.Request.Context(), claims.UserID)
	if err != nil || u == nil {
		c.JSON(http.StatusUnauthorized, models.NewAPIError("invalid token"))
		return
	}
	c.JSON(http.StatusOK, models.NewAPIResponse(u))
}

func (h *Handler) deleteAccount(c *gin.Context) {
	claims := MustGetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, models.NewAPIError("invalid token"))
		return
	}
	deleted, err := h.Repo.DeleteUser(c.Request.Context(), claims.UserID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.NewAPIError("delete failed"))
		return
	}
	if !deleted {
		c.JSON(http.StatusNotFound, models.NewAPIError("user not found"))
		return
	}
	c.JSON(http.StatusOK, models.NewAPIResponse(gin.H{"status": "account deleted"}))
}

func (h *Handler) respondWithToken(c *gin.Context, status int, u *models.User) {
	token, exp, err := h.Tokens.Sign(u)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.NewAPIError("token failed"))
		return
	}
	c.JSON(status, models.NewAPIResponse(gin.H{
		"user":      u,
		"token":     token,
		"expiresAt": exp.UTC().Format(time.RFC3339),
	}))
}

func tokenErrStatus(err error) int {
	switch {
	case errors.Is(err, database.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrTokenExpired), errors.Is(err, ErrTokenUsed):
		return http.StatusGone
	default:
		return http.StatusInternalServerError
	}
}

func tokenErrMessage(err error) string {
	switch {
	case errors.Is(err, database.ErrNotFound):
		return "token not found"
	case errors.Is(err, ErrTokenExpired):
		return "token expired"
	case errors.Is(err, ErrTokenUsed):
		return "token already used"
	default:
		return "token check failed"
	}
}
