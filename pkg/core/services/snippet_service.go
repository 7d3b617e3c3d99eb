package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/wadjakorntonsri/go-snippet-bin/pkg/core/domain"
	"github.com/wadjakorntonsri/go-snippet-bin/pkg/ports"
)

var (
	snippetsCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "snippetbin_snippets_created_total",
		Help: "Snippets successfully created.",
	})
	snippetBytesWrittenTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "snippetbin_snippet_bytes_written_total",
		Help: "Payload bytes accepted by create.",
	})
	snippetReadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "snippetbin_snippet_reads_total",
		Help: "Snippet reads by outcome.",
	}, []string{"result"})
)

type SnippetService struct {
	meta      ports.MetadataStore
	content   ports.ContentStore
	issuer    *IDIssuer
	clock     domain.Clock
	retention time.Duration
	logger    *slog.Logger
}

func NewSnippetService(
	meta ports.MetadataStore,
	content ports.ContentStore,
	issuer *IDIssuer,
	clock domain.Clock,
	retention time.Duration,
	logger *slog.Logger,
) *SnippetService {
	if retention <= 0 {
		retention = domain.DefaultRetention
	}
	return &SnippetService{
		meta:      meta,
		content:   content,
		issuer:    issuer,
		clock:     clock,
		retention: retention,
		logger:    logger.With(slog.String("component", "snippets")),
	}
}

// Create stores content and its metadata row. The payload is written first;
// if the process dies before the row is inserted the payload is orphaned.
func (s *SnippetService) Create(ctx context.Context, content []byte, language, title string) (*domain.CreateResult, error) {
	id, err := s.issuer.Issue(ctx)
	if err != nil {
		return nil, err
	}

	key := domain.ContentKey(id)
	if err := s.content.Put(ctx, key, content); err != nil {
		if errors.Is(err, domain.ErrContentExists) {
			// Another create claimed the id after the issuer checked it
			return nil, fmt.Errorf("%s: %w", id, domain.ErrDuplicateID)
		}
		return nil, err
	}

	now := s.clock.Now().UTC().Truncate(time.Millisecond)
	snippet := &domain.Snippet{
		ID:         id,
		Language:   language,
		Title:      title,
		CreatedAt:  now,
		ExpiresAt:  now.Add(s.retention),
		FileSize:   int64(len(content)),
		ContentKey: key,
	}
	if err := s.meta.Insert(ctx, snippet); err != nil {
		// Put succeeded, so the payload under key is ours whatever Insert said
		if delErr := s.content.Delete(context.WithoutCancel(ctx), key); delErr != nil {
			s.logger.Warn("failed to remove payload after insert error",
				slog.String("id", id), slog.String("error", delErr.Error()))
		}
		return nil, err
	}

	snippetsCreatedTotal.Inc()
	snippetBytesWrittenTotal.Add(float64(len(content)))
	s.logger.Debug("snippet created",
		slog.String("id", id),
		slog.String("language", language),
		slog.Int64("file_size", snippet.FileSize),
	)

	return &domain.CreateResult{ID: id, ExpiresAt: snippet.ExpiresAt}, nil
}

// Read returns the snippet with its payload and counts the read.
// Missing and expired snippets both yield domain.ErrNotFoundOrExpired.
func (s *SnippetService) Read(ctx context.Context, id string) (*domain.SnippetView, error) {
	view, err := s.read(ctx, id)
	switch {
	case err == nil:
		snippetReadsTotal.WithLabelValues("ok").Inc()
	case errors.Is(err, domain.ErrNotFoundOrExpired):
		snippetReadsTotal.WithLabelValues("not_found").Inc()
	default:
		snippetReadsTotal.WithLabelValues("error").Inc()
	}
	return view, err
}

func (s *SnippetService) read(ctx context.Context, id string) (*domain.SnippetView, error) {
	snippet, err := s.meta.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFoundOrExpired
		}
		return nil, err
	}
	if snippet.IsExpired(s.clock.Now()) {
		return nil, domain.ErrNotFoundOrExpired
	}

	data, err := s.content.Get(ctx, snippet.ContentKey)
	if err != nil {
		if !errors.Is(err, domain.ErrContentNotFound) {
			return nil, err
		}
		return nil, s.missingContent(ctx, snippet)
	}

	// Counted only once the payload is in hand
	views, err := s.meta.IncrementViews(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFoundOrExpired
		}
		return nil, err
	}

	return &domain.SnippetView{
		ID:        snippet.ID,
		Content:   data,
		Language:  snippet.Language,
		Title:     snippet.Title,
		CreatedAt: snippet.CreatedAt,
		FileSize:  snippet.FileSize,
		Views:     views,
	}, nil
}

// missingContent decides whether an absent payload is a sweep in progress
// or a live row that lost its content.
func (s *SnippetService) missingContent(ctx context.Context, snippet *domain.Snippet) error {
	exists, err := s.meta.Exists(ctx, snippet.ID)
	if err != nil {
		return err
	}
	if !exists || snippet.IsExpired(s.clock.Now()) {
		return domain.ErrNotFoundOrExpired
	}
	s.logger.Error("payload missing for live snippet",
		slog.String("id", snippet.ID),
		slog.String("content_key", snippet.ContentKey),
	)
	return fmt.Errorf("%s: %w", snippet.ID, domain.ErrContentMissing)
}

// Ensure interface compliance
var _ ports.SnippetService = (*SnippetService)(nil)
