package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wadjakorntonsri/go-snippet-bin/pkg/app"
	"github.com/wadjakorntonsri/go-snippet-bin/pkg/config"
	"github.com/wadjakorntonsri/go-snippet-bin/pkg/core/domain"
)

func TestIntegration(t *testing.T) {
	dir := t.TempDir()
	cfg := &config.Config{
		BaseURL:           "http://paste.test",
		DatabaseURL:       "file:" + filepath.Join(dir, "meta.db"),
		ContentBackend:    "fs",
		ContentDir:        filepath.Join(dir, "content"),
		Retention:         domain.DefaultRetention,
		SweepInterval:     time.Hour,
		MaxContentSize:    1 << 20,
		MetadataCacheSize: 32,
		MetadataCacheTTL:  time.Minute,
		RequestTimeout:    5 * time.Second,
	}

	ctx := context.Background()
	a, err := app.New(ctx, cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	defer a.Close()

	server := httptest.NewServer(a.Router())
	defer server.Close()
	client := server.Client()

	// Create
	body, _ := json.Marshal(map[string]string{
		"content":  "package main\n",
		"language": "go",
		"title":    "hello",
	})
	resp, err := client.Post(server.URL+"/api/snippets", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created struct {
		Success bool   `json:"success"`
		ID      string `json:"id"`
		URL     string `json:"url"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	assert.True(t, created.Success)
	assert.Len(t, created.ID, domain.IDLength)
	assert.Equal(t, "http://paste.test/api/snippets/"+created.ID, created.URL)

	// Read twice, views count each read
	for want := int64(1); want <= 2; want++ {
		resp, err := client.Get(server.URL + "/api/snippets/" + created.ID)
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var got struct {
			Snippet struct {
				Content  string `json:"content"`
				Language string `json:"language"`
				Title    string `json:"title"`
				FileSize int64  `json:"file_size"`
				Views    int64  `json:"views"`
			} `json:"snippet"`
		}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
		resp.Body.Close()

		assert.Equal(t, "package main\n", got.Snippet.Content)
		assert.Equal(t, "go", got.Snippet.Language)
		assert.Equal(t, "hello", got.Snippet.Title)
		assert.Equal(t, int64(13), got.Snippet.FileSize)
		assert.Equal(t, want, got.Snippet.Views)
	}

	// Unknown id
	resp, err = client.Get(server.URL + "/api/snippets/doesnotexist")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	// Stats
	resp, err = client.Get(server.URL + "/api/stats")
	require.NoError(t, err)
	var stats struct {
		Stats domain.Stats `json:"stats"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&stats))
	resp.Body.Close()
	assert.Equal(t, domain.Stats{Total: 1, Active: 1, Expired: 0}, stats.Stats)

	// Health
	resp, err = client.Get(server.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// Persisted row reflects both reads
	rows, err := a.Meta.Dump(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(2), rows[0].Views)

	// Once swept past expiry the snippet is gone
	deleted, err := a.Sweeper.Sweep(ctx, rows[0].ExpiresAt.Add(time.Second))
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)

	resp, err = client.Get(server.URL + "/api/snippets/" + created.ID)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
