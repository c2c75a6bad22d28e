package config

import (
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	// Server
	ListenAddr string

	// Database
	DBPath string

	// Upstream site
	SourceBaseURL string
	CrawlTimeout  time.Duration

	// Auth
	JWTSecret      string
	JWTIssuer      string
	JWTTTL         time.Duration
	GoogleClientID string

	// Maintenance
	GCCronSpec string

	// Staleness policy, per cache namespace. The stores have no opinion
	// on freshness; these are handed to the coordinator per request.
	MaxAgeUpdates        time.Duration
	MaxAgeCompleted      time.Duration
	MaxAgeAnimeDetail    time.Duration
	MaxAgeEpisodeSources time.Duration
	MaxAgeCrawlPage      time.Duration

	// Logging
	LogLevel string
}

// Load reads configuration from environment variables and an optional
// .env file, with working defaults for everything but the JWT secret.
func Load() (*Config, error) {
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	viper.AutomaticEnv()

	// Load .env file if it exists (ignore if not found)
	_ = viper.ReadInConfig()

	viper.SetDefault("LISTEN_ADDR", ":8080")
	viper.SetDefault("DB_PATH", "")
	viper.SetDefault("SOURCE_BASE_URL", "https://animesail.in")
	viper.SetDefault("CRAWL_TIMEOUT", "30s")
	viper.SetDefault("JWT_SECRET", "dev-secret-change-me")
	viper.SetDefault("JWT_ISSUER", "animehub")
	viper.SetDefault("JWT_TTL", "168h")
	viper.SetDefault("GOOGLE_CLIENT_ID", "")
	viper.SetDefault("GC_CRON_SPEC", "0 3 * * *")
	viper.SetDefault("MAX_AGE_UPDATES", "30m")
	viper.SetDefault("MAX_AGE_COMPLETED", "6h")
	viper.SetDefault("MAX_AGE_ANIME_DETAIL", "12h")
	viper.SetDefault("MAX_AGE_EPISODE_SOURCES", "24h")
	viper.SetDefault("MAX_AGE_CRAWL_PAGE", "24h")
	viper.SetDefault("LOG_LEVEL", "info")

	cfg := &Config{
		ListenAddr:           viper.GetString("LISTEN_ADDR"),
		DBPath:               viper.GetString("DB_PATH"),
		SourceBaseURL:        viper.GetString("SOURCE_BASE_URL"),
		CrawlTimeout:         viper.GetDuration("CRAWL_TIMEOUT"),
		JWTSecret:            viper.GetString("JWT_SECRET"),
		JWTIssuer:            viper.GetString("JWT_ISSUER"),
		JWTTTL:               viper.GetDuration("JWT_TTL"),
		GoogleClientID:       viper.GetString("GOOGLE_CLIENT_ID"),
		GCCronSpec:           viper.GetString("GC_CRON_SPEC"),
		MaxAgeUpdates:        viper.GetDuration("MAX_AGE_UPDATES"),
		MaxAgeCompleted:      viper.GetDuration("MAX_AGE_COMPLETED"),
		MaxAgeAnimeDetail:    viper.GetDuration("MAX_AGE_ANIME_DETAIL"),
		MaxAgeEpisodeSources: viper.GetDuration("MAX_AGE_EPISODE_SOURCES"),
		MaxAgeCrawlPage:      viper.GetDuration("MAX_AGE_CRAWL_PAGE"),
		LogLevel:             viper.GetString("LOG_LEVEL"),
	}
	return cfg, nil
}
