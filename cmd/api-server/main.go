package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"animehub/internal/auth"
	"animehub/internal/cache"
	"animehub/internal/catalogue"
	"animehub/internal/config"
	"animehub/internal/crawler"
	"animehub/internal/listings"
	"animehub/internal/maintenance"
	"animehub/internal/notify"
	"animehub/internal/relations"
	"animehub/pkg/database"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(level)
	}
	logger := log.With().Str("component", "api-server").Logger()

	dbCfg := database.DefaultConfig()
	if cfg.DBPath != "" {
		dbCfg.Path = cfg.DBPath
	}
	db := database.MustOpen(dbCfg)
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		logger.Fatal().Err(err).Msg("db migrate failed")
	}

	router := gin.Default()
	_ = router.SetTrustedProxies([]string{"127.0.0.1"})

	hub := notify.NewHub(logger.With().Str("component", "notify").Logger())
	router.GET("/ws", notify.WSHandler(hub))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "db": dbCfg.Path})
	})

	router.GET("/ready", func(c *gin.Context) {
		stats := hub.Stats()
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := db.PingContext(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":     "not_ready",
				"db_error":   err.Error(),
				"ws_clients": stats.WSClients,
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":     "ready",
			"db":         "ok",
			"ws_clients": stats.WSClients,
		})
	})

	ledger := cache.NewLedger(db)
	coord := cache.NewCoordinator(db, ledger, logger.With().Str("component", "cache").Logger())
	coord.SetNotifier(hub)

	client := crawler.NewClient(cfg.SourceBaseURL, cfg.CrawlTimeout,
		logger.With().Str("component", "crawler").Logger())

	tokenSvc := auth.TokenService{
		Secret:   []byte(cfg.JWTSecret),
		Issuer:   cfg.JWTIssuer,
		Duration: cfg.JWTTTL,
	}
	authed := auth.AuthMiddleware(tokenSvc)

	authRepo := auth.NewRepo(db)
	authHandler := auth.NewHandler(authRepo, tokenSvc,
		auth.NewTokeninfoVerifier(cfg.GoogleClientID),
		auth.LogSender{Logger: logger.With().Str("component", "email").Logger()},
		logger.With().Str("component", "auth").Logger())
	authHandler.RegisterRoutes(router.Group("/auth"))

	api := router.Group("/api")

	listingsHandler := &listings.Handler{
		Repo:            listings.NewRepo(db),
		Coord:           coord,
		Crawler:         client,
		MaxAgeUpdates:   cfg.MaxAgeUpdates,
		MaxAgeCompleted: cfg.MaxAgeCompleted,
		Logger:          logger.With().Str("component", "listings").Logger(),
	}
	listingsHandler.RegisterRoutes(api)

	catalogueRepo := catalogue.NewRepo(db)
	catalogueHandler := &catalogue.Handler{
		Repo:          catalogueRepo,
		Coord:         coord,
		Crawler:       client,
		SourceBaseURL: cfg.SourceBaseURL,
		MaxAgeDetail:  cfg.MaxAgeAnimeDetail,
		MaxAgeSources: cfg.MaxAgeEpisodeSources,
		Logger:        logger.With().Str("component", "catalogue").Logger(),
	}
	catalogueHandler.RegisterRoutes(api, authed)

	relationsHandler := relations.NewHandler(relations.NewRepo(db), catalogueRepo)
	relationsHandler.RegisterRoutes(api, authed)

	gc := maintenance.NewGC(db, logger.With().Str("component", "maintenance").Logger())
	scheduler, err := gc.Schedule(cfg.GCCronSpec)
	if err != nil {
		logger.Fatal().Err(err).Msg("schedule maintenance")
	}
	scheduler.Start()

	httpSrv := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", cfg.ListenAddr).Msg("listening")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info().Str("signal", sig.String()).Msg("shutdown signal received")
	case err := <-errCh:
		logger.Error().Err(err).Msg("server error")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown error")
	}
	<-scheduler.Stop().Done()
	logger.Info().Msg("server stopped")
}
