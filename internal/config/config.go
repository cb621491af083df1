package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Environment
	Environment string
	LogLevel    string

	// Database
	DatabaseURL    string
	MigrateOnStart bool

	// Redis (empty disables archive, pub/sub and rate limiting)
	RedisURL string

	// Server
	Port        string
	FrontendURL string

	// Round settings
	RoundSeconds          int
	ResultGraceSeconds    int
	MatchGraceSeconds     int
	ReaperIntervalSeconds int

	// Rate limiting
	RateLimitRequests      int
	RateLimitWindowSeconds int

	// Security
	JWTSecret        string
	SessionTTLHours  int
	LoginMaxAttempts int
	LoginLockMinutes int
}

func Load() *Config {
	// Load .env file if it exists
	godotenv.Load()

	return &Config{
		Environment: getEnv("APP_ENV", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),

		DatabaseURL:    getEnv("DATABASE_URL", "postgres://localhost:5432/burzaco_royale?sslmode=disable"),
		MigrateOnStart: getEnv("MIGRATE_ON_START", "false") == "true",

		RedisURL: getEnv("REDIS_URL", "redis://localhost:6379/0"),

		Port:        getEnv("APP_PORT", "3000"),
		FrontendURL: getEnv("FRONTEND_URL", "http://localhost:5173"),

		RoundSeconds:          getEnvInt("ROUND_SECONDS", 5),
		ResultGraceSeconds:    getEnvInt("RESULT_GRACE_SECONDS", 10),
		MatchGraceSeconds:     getEnvInt("MATCH_GRACE_SECONDS", 30),
		ReaperIntervalSeconds: getEnvInt("REAPER_INTERVAL_SECONDS", 2),

		RateLimitRequests:      getEnvInt("RATE_LIMIT_REQUESTS", 100),
		RateLimitWindowSeconds: getEnvInt("RATE_LIMIT_WINDOW_SECONDS", 15*60),

		JWTSecret:        getEnv("JWT_SECRET", "change-me-in-production"),
		SessionTTLHours:  getEnvInt("SESSION_TTL_HOURS", 24*30),
		LoginMaxAttempts: getEnvInt("LOGIN_MAX_ATTEMPTS", 5),
		LoginLockMinutes: getEnvInt("LOGIN_LOCK_MINUTES", 15),
	}
}

// RoundDuration is the client-side countdown announced in startGame.
func (c *Config) RoundDuration() time.Duration {
	return time.Duration(c.RoundSeconds) * time.Second
}

// ResultDeadline is how long after pairing the server waits for both results
// before force-settling the match.
func (c *Config) ResultDeadline() time.Duration {
	return time.Duration(c.RoundSeconds+c.ResultGraceSeconds) * time.Second
}

func (c *Config) MatchGrace() time.Duration {
	return time.Duration(c.MatchGraceSeconds) * time.Second
}

func (c *Config) ReaperInterval() time.Duration {
	return time.Duration(c.ReaperIntervalSeconds) * time.Second
}

func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.SessionTTLHours) * time.Hour
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}
