package repository_test

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wadjakorntonsri/go-snippet-bin/pkg/adapters/repository"
	"github.com/wadjakorntonsri/go-snippet-bin/pkg/adapters/repository/cached"
	"github.com/wadjakorntonsri/go-snippet-bin/pkg/adapters/repository/memory"
	"github.com/wadjakorntonsri/go-snippet-bin/pkg/adapters/repository/sqlite"
)

func TestOpen_SelectsBackend(t *testing.T) {
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	mem, err := repository.Open(ctx, "memory://", logger)
	require.NoError(t, err)
	assert.IsType(t, &memory.Repository{}, mem)

	lite, err := repository.Open(ctx, "file:"+filepath.Join(t.TempDir(), "x.db"), logger)
	require.NoError(t, err)
	defer lite.Close()
	assert.IsType(t, &sqlite.SQLiteRepository{}, lite)
}

func TestWithCache(t *testing.T) {
	store := memory.NewRepository()

	assert.Same(t, store, repository.WithCache(store, 0, time.Minute))
	assert.IsType(t, &cached.Repository{}, repository.WithCache(store, 8, time.Minute))
}
