package config

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{
		"PORT", "DATABASE_URL", "CONTENT_BACKEND", "CONTENT_DIR", "RETENTION",
		"SWEEP_INTERVAL", "MAX_CONTENT_SIZE", "METADATA_CACHE_SIZE", "LOG_LEVEL", "LOG_FORMAT",
	} {
		t.Setenv(key, "")
	}

	cfg := Load()

	assert.Equal(t, 14*24*time.Hour, cfg.Retention)
	assert.Equal(t, time.Hour, cfg.SweepInterval)
	assert.Equal(t, int64(1<<20), cfg.MaxContentSize)
	assert.Equal(t, 1024, cfg.MetadataCacheSize)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("DATABASE_URL", "postgres://u:p@localhost:5432/snippets")
	t.Setenv("CONTENT_BACKEND", "Badger")
	t.Setenv("RETENTION", "48h")
	t.Setenv("SWEEP_INTERVAL", "5m")
	t.Setenv("MAX_CONTENT_SIZE", "2048")
	t.Setenv("METADATA_CACHE_SIZE", "0")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "TEXT")

	cfg := Load()

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "postgres://u:p@localhost:5432/snippets", cfg.DatabaseURL)
	assert.Equal(t, "badger", cfg.ContentBackend)
	assert.Equal(t, 48*time.Hour, cfg.Retention)
	assert.Equal(t, 5*time.Minute, cfg.SweepInterval)
	assert.Equal(t, int64(2048), cfg.MaxContentSize)
	assert.Equal(t, 0, cfg.MetadataCacheSize)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
}

func TestLoad_IgnoresMalformedValues(t *testing.T) {
	t.Setenv("RETENTION", "two weeks")
	t.Setenv("MAX_CONTENT_SIZE", "-5")

	cfg := Load()

	assert.Equal(t, 14*24*time.Hour, cfg.Retention)
	assert.Equal(t, int64(1<<20), cfg.MaxContentSize)
}

func TestNewLogger_Format(t *testing.T) {
	var buf bytes.Buffer

	NewLogger(&Config{LogFormat: "json", LogLevel: slog.LevelInfo}, &buf).Info("hello", "k", "v")
	assert.True(t, strings.HasPrefix(buf.String(), "{"), "json handler should emit an object: %s", buf.String())

	buf.Reset()
	NewLogger(&Config{LogFormat: "text", LogLevel: slog.LevelInfo}, &buf).Info("hello", "k", "v")
	assert.Contains(t, buf.String(), "msg=hello")

	buf.Reset()
	NewLogger(&Config{LogFormat: "text", LogLevel: slog.LevelWarn}, &buf).Info("dropped")
	assert.Empty(t, buf.String())
}
