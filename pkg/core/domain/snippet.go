package domain

import "time"

// DefaultRetention is how long a snippet stays readable after creation.
const DefaultRetention = 14 * 24 * time.Hour

// IDLength is the fixed length of issued snippet identifiers.
const IDLength = 12

// Snippet is the metadata row for a stored snippet. The payload bytes live in
// the content store under ContentKey.
type Snippet struct {
	ID         string    `json:"id"`
	Language   string    `json:"language"`
	Title      string    `json:"title,omitempty"` // Empty means no title (NULL in storage)
	CreatedAt  time.Time `json:"created_at"`
	ExpiresAt  time.Time `json:"expires_at"`
	FileSize   int64     `json:"file_size"`
	Views      int64     `json:"views"`
	ContentKey string    `json:"content_key"`
}

// IsExpired reports whether the snippet is no longer readable at now.
// A snippet whose expiry equals now is already expired.
func (s *Snippet) IsExpired(now time.Time) bool {
	return !s.ExpiresAt.After(now)
}

// Clone returns a copy that shares nothing with s.
func (s *Snippet) Clone() *Snippet {
	c := *s
	return &c
}

// ContentKey derives the content store key for a snippet id.
func ContentKey(id string) string {
	return "snippets/" + id + ".txt"
}

// CreateResult is what a successful create hands back to the caller.
type CreateResult struct {
	ID        string    `json:"id"`
	ExpiresAt time.Time `json:"expires_at"`
}

// SnippetView is a snippet as returned to a reader, payload included.
// Views already counts the read that produced it.
type SnippetView struct {
	ID        string    `json:"id"`
	Content   []byte    `json:"content"`
	Language  string    `json:"language"`
	Title     string    `json:"title,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	FileSize  int64     `json:"file_size"`
	Views     int64     `json:"views"`
}

// Stats is an operational snapshot of the metadata store.
type Stats struct {
	Total   int64 `json:"total"`
	Active  int64 `json:"active"`
	Expired int64 `json:"expired"`
}

// ToMillis converts t to the epoch-millisecond form used in storage.
func ToMillis(t time.Time) int64 {
	return t.UnixMilli()
}

// FromMillis converts a stored epoch-millisecond value back to a UTC time.
func FromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}
