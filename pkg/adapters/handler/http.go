package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"

	"github.com/wadjakorntonsri/go-snippet-bin/pkg/core/domain"
	"github.com/wadjakorntonsri/go-snippet-bin/pkg/ports"
)

// MaxTitleLength is the longest title accepted, in characters.
const MaxTitleLength = 200

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HTTPHandler struct {
	snippets       ports.SnippetService
	sweeper        ports.SweepService
	store          Pinger
	clock          domain.Clock
	baseURL        string
	maxContentSize int64
	logger         *slog.Logger
}

// Options carries the settings HTTPHandler needs from the config.
type Options struct {
	BaseURL        string
	MaxContentSize int64
}

func NewHTTPHandler(
	snippets ports.SnippetService,
	sweeper ports.SweepService,
	store Pinger,
	clock domain.Clock,
	opts Options,
	logger *slog.Logger,
) *HTTPHandler {
	return &HTTPHandler{
		snippets:       snippets,
		sweeper:        sweeper,
		store:          store,
		clock:          clock,
		baseURL:        strings.TrimRight(opts.BaseURL, "/"),
		maxContentSize: opts.MaxContentSize,
		logger:         logger,
	}
}

// CreateSnippetRequest payload
type CreateSnippetRequest struct {
	Content  string `json:"content"`
	Language string `json:"language"`
	Title    string `json:"title,omitempty"`
}

type createSnippetResponse struct {
	Success   bool      `json:"success"`
	ID        string    `json:"id"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

type snippetJSON struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	Language  string    `json:"language"`
	Title     string    `json:"title,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	FileSize  int64     `json:"file_size"`
	Views     int64     `json:"views"`
}

type getSnippetResponse struct {
	Success bool        `json:"success"`
	Snippet snippetJSON `json:"snippet"`
}

type statsResponse struct {
	Success bool         `json:"success"`
	Stats   domain.Stats `json:"stats"`
}

type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// Create a snippet
func (h *HTTPHandler) Create(w http.ResponseWriter, r *http.Request) {
	// JSON escaping can inflate content; the decoded size is checked below
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodyBytes())

	var req CreateSnippetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "Content too large")
			return
		}
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if status, msg := h.validate(&req); status != 0 {
		writeError(w, status, msg)
		return
	}

	res, err := h.snippets.Create(r.Context(), []byte(req.Content), req.Language, req.Title)
	if err != nil {
		h.internalError(w, r, "create snippet", err)
		return
	}

	writeJSON(w, http.StatusCreated, createSnippetResponse{
		Success:   true,
		ID:        res.ID,
		URL:       h.baseURL + "/api/snippets/" + res.ID,
		ExpiresAt: res.ExpiresAt,
	})
}

func (h *HTTPHandler) validate(req *CreateSnippetRequest) (int, string) {
	req.Language = strings.TrimSpace(req.Language)
	req.Title = strings.TrimSpace(req.Title)

	switch {
	case req.Content == "":
		return http.StatusBadRequest, "Content is required"
	case h.maxContentSize > 0 && int64(len(req.Content)) > h.maxContentSize:
		return http.StatusRequestEntityTooLarge, "Content too large"
	case req.Language == "":
		return http.StatusBadRequest, "Language is required"
	case utf8.RuneCountInString(req.Title) > MaxTitleLength:
		return http.StatusBadRequest, "Title too long"
	}
	return 0, ""
}

// Get a snippet by id; each successful call counts one view
func (h *HTTPHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "Snippet id missing")
		return
	}

	view, err := h.snippets.Read(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFoundOrExpired) {
			writeError(w, http.StatusNotFound, "Snippet not found or expired")
			return
		}
		h.internalError(w, r, "read snippet", err)
		return
	}

	writeJSON(w, http.StatusOK, getSnippetResponse{
		Success: true,
		Snippet: snippetJSON{
			ID:        view.ID,
			Content:   string(view.Content),
			Language:  view.Language,
			Title:     view.Title,
			CreatedAt: view.CreatedAt,
			FileSize:  view.FileSize,
			Views:     view.Views,
		},
	})
}

// Stats reports total, active and expired snippet counts
func (h *HTTPHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.sweeper.Stats(r.Context(), h.clock.Now())
	if err != nil {
		h.internalError(w, r, "load stats", err)
		return
	}
	writeJSON(w, http.StatusOK, statsResponse{Success: true, Stats: stats})
}

// Health pings the metadata store
func (h *HTTPHandler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Ping(r.Context()); err != nil {
		h.logger.Warn("health check failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"message": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "ok"})
}

func (h *HTTPHandler) maxBodyBytes() int64 {
	if h.maxContentSize <= 0 {
		return 1 << 30
	}
	return 2*h.maxContentSize + 64<<10
}

func (h *HTTPHandler) internalError(w http.ResponseWriter, r *http.Request, op string, err error) {
	h.logger.LogAttrs(r.Context(), slog.LevelError, op+" failed",
		slog.String("error", err.Error()),
		slog.String("path", r.URL.Path),
	)
	writeError(w, http.StatusInternalServerError, "Internal server error")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Success: false, Error: msg})
}
