package domain

import "errors"

var (
	// ErrNotFound indicates the metadata store has no row for the id.
	ErrNotFound = errors.New("snippet not found")

	// ErrNotFoundOrExpired is returned to readers for both missing and expired
	// snippets; the two cases are deliberately indistinguishable.
	ErrNotFoundOrExpired = errors.New("snippet not found or expired")

	// ErrDuplicateID indicates an insert collided with an existing id.
	ErrDuplicateID = errors.New("snippet id already exists")

	// ErrIDExhausted indicates the issuer ran out of attempts to find a free id.
	ErrIDExhausted = errors.New("failed to generate unique snippet id")

	// ErrContentNotFound indicates the content store has no payload for the key.
	ErrContentNotFound = errors.New("snippet content not found")

	// ErrContentExists indicates a put targeted a key that already holds a payload.
	ErrContentExists = errors.New("snippet content already exists")

	// ErrContentMissing marks a live metadata row whose payload is gone.
	ErrContentMissing = errors.New("snippet content missing for live record")

	// ErrStorage tags failures of an underlying store.
	ErrStorage = errors.New("storage error")

	// ErrInvalidKey indicates a content key that cannot be mapped to storage.
	ErrInvalidKey = errors.New("invalid content key")
)
