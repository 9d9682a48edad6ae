// Package db defines the storage contract the catalog core depends on.
package db

import (
	"context"
	"time"
)

// Store is the vector index / document store contract.
// One Store handle is created at process start and shared by all requests.
type Store interface {
	// SearchKNN runs an approximate nearest-neighbor query with an optional
	// pre-filter expression.
	SearchKNN(ctx context.Context, q *KNNQuery) (*SearchResult, error)

	// JSONGet retrieves a JSON document by key. Missing keys return
	// ErrKeyNotFound, which callers treat as a valid absence.
	JSONGet(ctx context.Context, key string, paths ...string) ([]byte, error)

	Ping(ctx context.Context) error
	WaitForReady(ctx context.Context, timeout time.Duration) error
	Close()
}
