package services_test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/wadjakorntonsri/go-snippet-bin/pkg/adapters/content/filestore"
	"github.com/wadjakorntonsri/go-snippet-bin/pkg/adapters/repository/memory"
	"github.com/wadjakorntonsri/go-snippet-bin/pkg/core/domain"
	"github.com/wadjakorntonsri/go-snippet-bin/pkg/core/services"
	"github.com/wadjakorntonsri/go-snippet-bin/pkg/ports"
)

var baseTime = time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// MockIDGenerator implements ports.IDGenerator for testing
type MockIDGenerator struct {
	mock.Mock
}

func (m *MockIDGenerator) Generate() (string, error) {
	args := m.Called()
	return args.String(0), args.Error(1)
}

// MockMetadataStore implements ports.MetadataStore for testing
type MockMetadataStore struct {
	mock.Mock
}

func (m *MockMetadataStore) Insert(ctx context.Context, snippet *domain.Snippet) error {
	return m.Called(ctx, snippet).Error(0)
}

func (m *MockMetadataStore) GetByID(ctx context.Context, id string) (*domain.Snippet, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Snippet), args.Error(1)
}

func (m *MockMetadataStore) Exists(ctx context.Context, id string) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockMetadataStore) IncrementViews(ctx context.Context, id string) (int64, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockMetadataStore) FindExpiredBefore(ctx context.Context, before time.Time) ([]string, error) {
	args := m.Called(ctx, before)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockMetadataStore) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockMetadataStore) Count(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockMetadataStore) CountExpiredBefore(ctx context.Context, before time.Time) (int64, error) {
	args := m.Called(ctx, before)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockMetadataStore) Dump(ctx context.Context) ([]domain.Snippet, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Snippet), args.Error(1)
}

func (m *MockMetadataStore) Ping(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockMetadataStore) Close() error {
	return m.Called().Error(0)
}

// hookedContent wraps a real content store and lets a test intercept calls.
type hookedContent struct {
	ports.ContentStore

	mu          sync.Mutex
	onGet       func(key string)
	failDelete  map[string]error
	compactions atomic.Int32
}

func (h *hookedContent) Get(ctx context.Context, key string) ([]byte, error) {
	h.mu.Lock()
	hook := h.onGet
	h.mu.Unlock()
	if hook != nil {
		hook(key)
	}
	return h.ContentStore.Get(ctx, key)
}

func (h *hookedContent) Delete(ctx context.Context, key string) error {
	h.mu.Lock()
	err := h.failDelete[key]
	h.mu.Unlock()
	if err != nil {
		return err
	}
	return h.ContentStore.Delete(ctx, key)
}

func (h *hookedContent) Compact(ctx context.Context) error {
	h.compactions.Add(1)
	return nil
}

func (h *hookedContent) setOnGet(fn func(key string)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onGet = fn
}

func (h *hookedContent) setFailDelete(key string, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.failDelete == nil {
		h.failDelete = map[string]error{}
	}
	if err == nil {
		delete(h.failDelete, key)
		return
	}
	h.failDelete[key] = err
}

// fixture wires the services over real in-memory metadata and fs content.
type fixture struct {
	meta    *memory.Repository
	content *hookedContent
	clock   *domain.MockClock
	svc     *services.SnippetService
	sweeper *services.Sweeper
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	fs, err := filestore.New(t.TempDir())
	require.NoError(t, err)

	meta := memory.NewRepository()
	content := &hookedContent{ContentStore: fs}
	clock := domain.NewMockClock(baseTime)
	issuer := services.NewIDIssuer(services.NanoIDGenerator{}, meta)

	return &fixture{
		meta:    meta,
		content: content,
		clock:   clock,
		svc:     services.NewSnippetService(meta, content, issuer, clock, domain.DefaultRetention, quietLogger()),
		sweeper: services.NewSweeper(meta, content, clock, time.Hour, quietLogger()),
	}
}

// seed inserts a row and payload directly, bypassing Create.
func (f *fixture) seed(t *testing.T, id string, expiresAt time.Time) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, f.content.Put(ctx, domain.ContentKey(id), []byte("payload-"+id)))
	require.NoError(t, f.meta.Insert(ctx, &domain.Snippet{
		ID:         id,
		Language:   "text",
		CreatedAt:  expiresAt.Add(-domain.DefaultRetention),
		ExpiresAt:  expiresAt,
		FileSize:   int64(len("payload-" + id)),
		ContentKey: domain.ContentKey(id),
	}))
}
