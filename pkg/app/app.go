// Package app wires stores, services and the HTTP router from a Config.
// cmd/server, cmd/cli and the serverless entrypoint all build on it.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/wadjakorntonsri/go-snippet-bin/pkg/adapters/content"
	"github.com/wadjakorntonsri/go-snippet-bin/pkg/adapters/handler"
	"github.com/wadjakorntonsri/go-snippet-bin/pkg/adapters/repository"
	"github.com/wadjakorntonsri/go-snippet-bin/pkg/config"
	"github.com/wadjakorntonsri/go-snippet-bin/pkg/core/domain"
	"github.com/wadjakorntonsri/go-snippet-bin/pkg/core/services"
	"github.com/wadjakorntonsri/go-snippet-bin/pkg/ports"
)

type App struct {
	Meta     ports.MetadataStore
	Content  ports.ContentStore
	Snippets *services.SnippetService
	Sweeper  *services.Sweeper
	Clock    domain.Clock

	cfg    *config.Config
	logger *slog.Logger
}

// New opens both stores and builds the services on top of them.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	meta, err := repository.Open(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		return nil, fmt.Errorf("open metadata store: %w", err)
	}
	meta = repository.WithCache(meta, cfg.MetadataCacheSize, cfg.MetadataCacheTTL)

	blobs, err := content.Open(cfg.ContentBackend, cfg.ContentDir, logger)
	if err != nil {
		meta.Close()
		return nil, fmt.Errorf("open content store: %w", err)
	}

	clock := domain.RealClock{}
	issuer := services.NewIDIssuer(services.NanoIDGenerator{}, meta)

	return &App{
		Meta:     meta,
		Content:  blobs,
		Snippets: services.NewSnippetService(meta, blobs, issuer, clock, cfg.Retention, logger),
		Sweeper:  services.NewSweeper(meta, blobs, clock, cfg.SweepInterval, logger),
		Clock:    clock,
		cfg:      cfg,
		logger:   logger,
	}, nil
}

// Router builds the HTTP handler for the app.
func (a *App) Router() http.Handler {
	h := handler.NewHTTPHandler(a.Snippets, a.Sweeper, a.Meta, a.Clock, handler.Options{
		BaseURL:        a.cfg.BaseURL,
		MaxContentSize: a.cfg.MaxContentSize,
	}, a.logger)
	return handler.NewRouter(h, a.cfg.RequestTimeout, a.logger)
}

// Close releases both stores.
func (a *App) Close() error {
	return errors.Join(a.Content.Close(), a.Meta.Close())
}
