package ports

import (
	"context"
	"time"

	"github.com/wadjakorntonsri/go-snippet-bin/pkg/core/domain"
)

// MetadataStore defines storage operations for snippet metadata rows.
// Implementations must be safe for concurrent use.
type MetadataStore interface {
	// Insert stores a new row. Returns domain.ErrDuplicateID if the id is taken.
	Insert(ctx context.Context, snippet *domain.Snippet) error
	// GetByID returns domain.ErrNotFound if no row exists.
	GetByID(ctx context.Context, id string) (*domain.Snippet, error)
	Exists(ctx context.Context, id string) (bool, error)
	// IncrementViews atomically adds one view and returns the new count.
	// Returns domain.ErrNotFound if no row exists.
	IncrementViews(ctx context.Context, id string) (int64, error)
	// FindExpiredBefore returns ids of rows with expires_at < before.
	FindExpiredBefore(ctx context.Context, before time.Time) ([]string, error)
	// Delete removes a row; deleting a missing id is not an error.
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (int64, error)
	CountExpiredBefore(ctx context.Context, before time.Time) (int64, error)
	Dump(ctx context.Context) ([]domain.Snippet, error) // For export
	Ping(ctx context.Context) error
	Close() error
}

// ContentStore defines storage operations for snippet payloads.
// Implementations must be safe for concurrent use.
type ContentStore interface {
	// Put stores a new payload. Returns domain.ErrContentExists if key is
	// already taken; an existing payload is never replaced.
	Put(ctx context.Context, key string, data []byte) error
	// Get returns domain.ErrContentNotFound if the key is absent.
	Get(ctx context.Context, key string) ([]byte, error)
	// Delete removes a payload; deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	Close() error
}

// Compactor is implemented by content stores that reclaim space after deletes.
type Compactor interface {
	Compact(ctx context.Context) error
}

// IDGenerator produces candidate snippet identifiers.
type IDGenerator interface {
	Generate() (string, error)
}

// SnippetService defines the create/read operations exposed to transports
type SnippetService interface {
	Create(ctx context.Context, content []byte, language, title string) (*domain.CreateResult, error)
	Read(ctx context.Context, id string) (*domain.SnippetView, error)
}

// SweepService defines expiry cleanup and statistics
type SweepService interface {
	Sweep(ctx context.Context, now time.Time) (int, error)
	Stats(ctx context.Context, now time.Time) (domain.Stats, error)
}
