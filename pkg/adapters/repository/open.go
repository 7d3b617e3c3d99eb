// Package repository selects the metadata store backend from a database URL.
package repository

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/wadjakorntonsri/go-snippet-bin/pkg/adapters/repository/cached"
	"github.com/wadjakorntonsri/go-snippet-bin/pkg/adapters/repository/memory"
	"github.com/wadjakorntonsri/go-snippet-bin/pkg/adapters/repository/postgres"
	"github.com/wadjakorntonsri/go-snippet-bin/pkg/adapters/repository/sqlite"
	"github.com/wadjakorntonsri/go-snippet-bin/pkg/ports"
)

// Open returns the metadata store for dbURL:
//
//	postgres://, postgresql://  PostgreSQL via pgx
//	memory://                   in-process map, lost on exit
//	anything else               SQLite (local file, or Turso for libsql:// and wss://)
func Open(ctx context.Context, dbURL string, logger *slog.Logger) (ports.MetadataStore, error) {
	switch {
	case strings.HasPrefix(dbURL, "postgres://"), strings.HasPrefix(dbURL, "postgresql://"):
		return postgres.Open(ctx, dbURL, logger)
	case strings.HasPrefix(dbURL, "memory://"):
		logger.Warn("using in-memory metadata store; snippets are lost on restart")
		return memory.NewRepository(), nil
	default:
		return sqlite.NewSQLiteRepository(ctx, dbURL, logger)
	}
}

// WithCache wraps store in an LRU cache unless size is zero.
func WithCache(store ports.MetadataStore, size int, ttl time.Duration) ports.MetadataStore {
	if size <= 0 {
		return store
	}
	return cached.New(store, size, ttl)
}
