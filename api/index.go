package handler

import (
	"context"
	"log/slog"
	"net/http"
	"os"

	"github.com/wadjakorntonsri/go-snippet-bin/pkg/app"
	"github.com/wadjakorntonsri/go-snippet-bin/pkg/config"
)

var mux http.Handler

func init() {
	cfg := config.Load()
	logger := config.NewLogger(cfg, os.Stdout)
	slog.SetDefault(logger)

	// Note: on Vercel the local filesystem is ephemeral; point DATABASE_URL at
	// Turso or Postgres and expect payloads in CONTENT_DIR to be lost on cold start.
	a, err := app.New(context.Background(), cfg, logger)
	if err != nil {
		panic(err)
	}

	// No background sweeper here: functions are frozen between requests.
	// Run `snippetctl sweep` from a scheduled job instead.
	mux = a.Router()
}

// Handler is the entrypoint for Vercel
func Handler(w http.ResponseWriter, r *http.Request) {
	mux.ServeHTTP(w, r)
}
