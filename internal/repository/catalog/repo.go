// Package catalog reads full product detail documents by code.
package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/regalo-labs/giftfinder/internal/db"
	"github.com/regalo-labs/giftfinder/internal/domain"
)

// store is the consumer interface for point lookups (ISP).
type store interface {
	JSONGet(ctx context.Context, key string, paths ...string) ([]byte, error)
}

// Repo implements the product detail reader over the JSON document store.
type Repo struct {
	store      store
	jsonPrefix string
}

// New creates a catalog repository.
func New(s store, jsonPrefix string) *Repo {
	return &Repo{store: s, jsonPrefix: jsonPrefix}
}

// Get fetches the detail record for one product code.
// A missing document is domain.ErrNotFound — a valid, non-error absence for
// callers; malformed payloads are reported as decode errors.
func (r *Repo) Get(ctx context.Context, code string) (*domain.Product, error) {
	data, err := r.store.JSONGet(ctx, r.jsonPrefix+code)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get product %s: %v: %w", code, err, domain.ErrIndexUnavailable)
	}

	p, err := domain.DecodeProduct(data)
	if err != nil {
		return nil, fmt.Errorf("decode product %s: %w", code, err)
	}
	return p, nil
}
