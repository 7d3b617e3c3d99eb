package domain_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/wadjakorntonsri/go-snippet-bin/pkg/core/domain"
)

func TestSnippet_IsExpired(t *testing.T) {
	now := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		expiresAt time.Time
		want      bool
	}{
		{name: "not expired - before expiry", expiresAt: now.Add(time.Hour), want: false},
		{name: "expired - exactly at expiry", expiresAt: now, want: true},
		{name: "expired - one millisecond ago", expiresAt: now.Add(-time.Millisecond), want: true},
		{name: "not expired - one millisecond left", expiresAt: now.Add(time.Millisecond), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &domain.Snippet{ExpiresAt: tt.expiresAt}
			assert.Equal(t, tt.want, s.IsExpired(now))
		})
	}
}

func TestSnippet_Clone(t *testing.T) {
	original := &domain.Snippet{
		ID:       "abcdefghijkl",
		Language: "go",
		Views:    7,
	}

	clone := original.Clone()
	assert.Equal(t, original, clone)

	clone.Views = 100
	assert.Equal(t, int64(7), original.Views)
}

func TestContentKey_IsDerivedFromID(t *testing.T) {
	assert.Equal(t, "snippets/abcdefghijkl.txt", domain.ContentKey("abcdefghijkl"))
	assert.Equal(t, domain.ContentKey("x"), domain.ContentKey("x"))
}

func TestMillis_RoundTrip(t *testing.T) {
	ts := time.Date(2024, 1, 15, 12, 0, 0, 123_000_000, time.UTC)

	assert.Equal(t, ts, domain.FromMillis(domain.ToMillis(ts)))
	assert.Equal(t, int64(1705320000123), domain.ToMillis(ts))
}
