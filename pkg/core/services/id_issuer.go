package services

import (
	"context"
	"fmt"

	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/wadjakorntonsri/go-snippet-bin/pkg/core/domain"
	"github.com/wadjakorntonsri/go-snippet-bin/pkg/ports"
)

// MaxIssueAttempts bounds how many candidates Issue tries before giving up.
const MaxIssueAttempts = 5

// NanoIDGenerator produces 12-character ids over the URL-safe nanoid alphabet
// (A-Z a-z 0-9 _ -), 72 bits of entropy each.
type NanoIDGenerator struct{}

func (NanoIDGenerator) Generate() (string, error) {
	return gonanoid.New(domain.IDLength)
}

// IDIssuer hands out identifiers not currently present in the metadata store.
type IDIssuer struct {
	gen   ports.IDGenerator
	store ports.MetadataStore
}

func NewIDIssuer(gen ports.IDGenerator, store ports.MetadataStore) *IDIssuer {
	return &IDIssuer{gen: gen, store: store}
}

// Issue returns a fresh id, retrying on collision up to MaxIssueAttempts times.
// Generator and store failures are returned as-is without retrying.
//
// The check and the later insert are not atomic; the store's duplicate
// rejection on insert is what finally guarantees uniqueness.
func (i *IDIssuer) Issue(ctx context.Context) (string, error) {
	for range MaxIssueAttempts {
		id, err := i.gen.Generate()
		if err != nil {
			return "", fmt.Errorf("generate id: %w", err)
		}
		exists, err := i.store.Exists(ctx, id)
		if err != nil {
			return "", err
		}
		if !exists {
			return id, nil
		}
	}
	return "", fmt.Errorf("%w after %d attempts", domain.ErrIDExhausted, MaxIssueAttempts)
}
