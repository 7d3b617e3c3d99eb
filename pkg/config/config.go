package config

import (
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/wadjakorntonsri/go-snippet-bin/pkg/core/domain"
)

type Config struct {
	Port    string
	AppEnv  string
	BaseURL string

	// Storage
	DatabaseURL    string
	ContentBackend string // "fs" or "badger"
	ContentDir     string

	// Lifecycle
	Retention     time.Duration
	SweepInterval time.Duration

	MaxContentSize    int64
	MetadataCacheSize int
	MetadataCacheTTL  time.Duration

	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration

	LogLevel  slog.Level
	LogFormat string
}

func Load() *Config {
	_ = godotenv.Load() // Ignore error if .env not found (e.g. prod)

	return &Config{
		Port:    getEnv("PORT", "8080"),
		AppEnv:  getEnv("APP_ENV", "local"),
		BaseURL: getEnv("BASE_URL", "http://localhost:8080"),

		DatabaseURL:    getEnv("DATABASE_URL", "file:data/pastebin.db"),
		ContentBackend: strings.ToLower(getEnv("CONTENT_BACKEND", "fs")),
		ContentDir:     getEnv("CONTENT_DIR", "data"),

		Retention:     getEnvDuration("RETENTION", domain.DefaultRetention),
		SweepInterval: getEnvDuration("SWEEP_INTERVAL", time.Hour),

		MaxContentSize:    getEnvInt64("MAX_CONTENT_SIZE", 1<<20),
		MetadataCacheSize: int(getEnvInt64("METADATA_CACHE_SIZE", 1024)),
		MetadataCacheTTL:  getEnvDuration("METADATA_CACHE_TTL", 5*time.Minute),

		RequestTimeout:  getEnvDuration("REQUEST_TIMEOUT", 10*time.Second),
		ShutdownTimeout: getEnvDuration("SHUTDOWN_TIMEOUT", 10*time.Second),

		LogLevel:  parseLevel(getEnv("LOG_LEVEL", "info")),
		LogFormat: strings.ToLower(getEnv("LOG_FORMAT", "json")),
	}
}

// NewLogger builds the process logger described by the config.
func NewLogger(cfg *Config, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.LogLevel}
	if cfg.LogFormat == "text" {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n >= 0 {
			return n
		}
	}
	return fallback
}

func parseLevel(v string) slog.Level {
	switch strings.ToLower(v) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
