package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	Port           string
	AllowedOrigins []string
	LogLevel       string
	LogFile        string

	WSReadTimeout  time.Duration
	WSWriteTimeout time.Duration
	PingPeriod     time.Duration
	PongWait       time.Duration
	WriteWait      time.Duration
	MaxMessageSize int64

	// Call store
	DBDriver string
	DBDSN    string
	SeedFile string

	// Transcript analysis (Amazon Connect Contact Lens)
	AWSRegion          string
	ConnectInstanceID  string
	ContactLensURL     string
	TranscriptTimeout  time.Duration
	SentimentRateLimit string

	// Alerts and scheduled jobs
	SlackWebhookURL       string
	StatsSnapshotSchedule string

	// Auth
	SkipAuth        bool
	VerifySignature bool
	OIDCIssuer      string
	Env             string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	config := &Config{
		Port:                  getEnv("PORT", "8080"),
		AllowedOrigins:        strings.Split(getEnv("ALLOWED_ORIGINS", "http://localhost:5173"), ","),
		LogLevel:              getEnv("LOG_LEVEL", "info"),
		LogFile:               os.Getenv("LOG_FILE"),
		DBDriver:              getEnv("DB_DRIVER", "sqlite"),
		DBDSN:                 getEnv("DB_DSN", "calldesk.db"),
		SeedFile:              os.Getenv("SEED_FILE"),
		AWSRegion:             getEnv("AWS_REGION", "us-east-1"),
		ConnectInstanceID:     os.Getenv("CONNECT_INSTANCE_ID"),
		ContactLensURL:        os.Getenv("CONTACT_LENS_ENDPOINT"),
		SentimentRateLimit:    getEnv("SENTIMENT_RATE_LIMIT", "30-M"),
		SlackWebhookURL:       os.Getenv("SLACK_WEBHOOK_URL"),
		StatsSnapshotSchedule: getEnv("STATS_SNAPSHOT_SCHEDULE", "55 23 * * *"),
		SkipAuth:              os.Getenv("SKIP_AUTH") == "true",
		VerifySignature:       os.Getenv("VERIFY_JWT_SIGNATURE") == "true",
		OIDCIssuer:            os.Getenv("OIDC_ISSUER"),
		Env:                   os.Getenv("ENV"),
	}

	switch config.DBDriver {
	case "sqlite", "mysql", "postgres":
	default:
		return nil, fmt.Errorf("invalid DB_DRIVER %q: want sqlite, mysql or postgres", config.DBDriver)
	}

	// Parse WebSocket timeouts
	wsReadTimeout, err := strconv.Atoi(getEnv("WS_READ_TIMEOUT", "60"))
	if err != nil {
		return nil, fmt.Errorf("invalid WS_READ_TIMEOUT: %w", err)
	}
	config.WSReadTimeout = time.Duration(wsReadTimeout) * time.Second

	wsWriteTimeout, err := strconv.Atoi(getEnv("WS_WRITE_TIMEOUT", "10"))
	if err != nil {
		return nil, fmt.Errorf("invalid WS_WRITE_TIMEOUT: %w", err)
	}
	config.WSWriteTimeout = time.Duration(wsWriteTimeout) * time.Second

	transcriptTimeout, err := strconv.Atoi(getEnv("TRANSCRIPT_TIMEOUT", "10"))
	if err != nil {
		return nil, fmt.Errorf("invalid TRANSCRIPT_TIMEOUT: %w", err)
	}
	if transcriptTimeout <= 0 {
		return nil, fmt.Errorf("invalid TRANSCRIPT_TIMEOUT: must be positive, got %d", transcriptTimeout)
	}
	config.TranscriptTimeout = time.Duration(transcriptTimeout) * time.Second

	// Calculate WebSocket constants
	config.PongWait = config.WSReadTimeout
	config.PingPeriod = (config.PongWait * 9) / 10 // Must be less than pongWait
	config.WriteWait = config.WSWriteTimeout
	config.MaxMessageSize = 512

	// Trim spaces from allowed origins
	for i, origin := range config.AllowedOrigins {
		config.AllowedOrigins[i] = strings.TrimSpace(origin)
	}

	// Outside development, JWT signatures are always verified
	if config.Env != "development" && config.Env != "" {
		config.VerifySignature = true
	}

	return config, nil
}

// OriginAllowed reports whether a websocket Origin header is acceptable
func (c *Config) OriginAllowed(origin string) bool {
	if origin == "" {
		return true
	}
	for _, allowed := range c.AllowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}

// getEnv gets an environment variable with a fallback default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
