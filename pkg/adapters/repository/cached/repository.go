// Package cached wraps a MetadataStore with an expiring LRU of rows.
// Only GetByID is served from the cache. The fields a reader depends on
// (expiry, language, title, size) never change after insert; views always
// come from the wrapped store's IncrementViews result.
package cached

import (
	"context"
	"errors"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/wadjakorntonsri/go-snippet-bin/pkg/core/domain"
	"github.com/wadjakorntonsri/go-snippet-bin/pkg/ports"
)

var (
	cacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "snippetbin_metadata_cache_hits_total",
		Help: "Metadata lookups served from the LRU cache.",
	})
	cacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "snippetbin_metadata_cache_misses_total",
		Help: "Metadata lookups that went to the underlying store.",
	})
)

// Repository is a read-through cache in front of another MetadataStore.
type Repository struct {
	ports.MetadataStore
	cache *expirable.LRU[string, *domain.Snippet]
}

// New wraps store with an LRU of at most size rows, each kept for ttl.
func New(store ports.MetadataStore, size int, ttl time.Duration) *Repository {
	return &Repository{
		MetadataStore: store,
		cache:         expirable.NewLRU[string, *domain.Snippet](size, nil, ttl),
	}
}

func (r *Repository) Insert(ctx context.Context, snippet *domain.Snippet) error {
	if err := r.MetadataStore.Insert(ctx, snippet); err != nil {
		return err
	}
	r.cache.Add(snippet.ID, snippet.Clone())
	return nil
}

func (r *Repository) GetByID(ctx context.Context, id string) (*domain.Snippet, error) {
	if s, ok := r.cache.Get(id); ok {
		cacheHitsTotal.Inc()
		return s.Clone(), nil
	}
	cacheMissesTotal.Inc()

	s, err := r.MetadataStore.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	r.cache.Add(id, s.Clone())
	return s, nil
}

// IncrementViews drops the cached row when the store no longer has it, which
// happens when another process swept it.
func (r *Repository) IncrementViews(ctx context.Context, id string) (int64, error) {
	views, err := r.MetadataStore.IncrementViews(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		r.cache.Remove(id)
	}
	return views, err
}

func (r *Repository) Delete(ctx context.Context, id string) error {
	r.cache.Remove(id)
	return r.MetadataStore.Delete(ctx, id)
}

// Len reports how many rows are cached.
func (r *Repository) Len() int {
	return r.cache.Len()
}

// Ensure interface compliance
var _ ports.MetadataStore = (*Repository)(nil)
