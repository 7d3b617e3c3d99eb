// Package memory provides a map-backed metadata store for tests and
// throwaway deployments (DATABASE_URL=memory://).
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/wadjakorntonsri/go-snippet-bin/pkg/core/domain"
	"github.com/wadjakorntonsri/go-snippet-bin/pkg/ports"
)

// Repository provides thread-safe in-memory storage.
type Repository struct {
	mu   sync.RWMutex
	data map[string]*domain.Snippet
}

// NewRepository creates an empty in-memory repository.
func NewRepository() *Repository {
	return &Repository{
		data: make(map[string]*domain.Snippet),
	}
}

// Insert saves the row only if the id is not already taken.
func (r *Repository) Insert(ctx context.Context, snippet *domain.Snippet) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.data[snippet.ID]; exists {
		return fmt.Errorf("%s: %w", snippet.ID, domain.ErrDuplicateID)
	}
	r.data[snippet.ID] = snippet.Clone()
	return nil
}

func (r *Repository) GetByID(ctx context.Context, id string) (*domain.Snippet, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	s, exists := r.data[id]
	if !exists {
		return nil, fmt.Errorf("%s: %w", id, domain.ErrNotFound)
	}
	return s.Clone(), nil
}

func (r *Repository) Exists(ctx context.Context, id string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	_, exists := r.data[id]
	return exists, nil
}

// IncrementViews atomically increments the view counter.
func (r *Repository) IncrementViews(ctx context.Context, id string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	s, exists := r.data[id]
	if !exists {
		return 0, fmt.Errorf("%s: %w", id, domain.ErrNotFound)
	}
	s.Views++
	return s.Views, nil
}

func (r *Repository) FindExpiredBefore(ctx context.Context, before time.Time) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := []string{}
	for id, s := range r.data {
		if s.ExpiresAt.Before(before) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (r *Repository) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.data, id)
	return nil
}

func (r *Repository) Count(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	return int64(len(r.data)), nil
}

func (r *Repository) CountExpiredBefore(ctx context.Context, before time.Time) (int64, error) {
	ids, err := r.FindExpiredBefore(ctx, before)
	if err != nil {
		return 0, err
	}
	return int64(len(ids)), nil
}

func (r *Repository) Dump(ctx context.Context) ([]domain.Snippet, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.Snippet, 0, len(r.data))
	for _, s := range r.data {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (r *Repository) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (r *Repository) Close() error {
	return nil
}

// Ensure interface compliance
var _ ports.MetadataStore = (*Repository)(nil)
