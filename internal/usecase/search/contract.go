package search

import (
	"context"

	"github.com/regalo-labs/giftfinder/internal/domain"
	"github.com/regalo-labs/giftfinder/internal/domain/search/query"
	"github.com/regalo-labs/giftfinder/internal/domain/search/result"
)

// Repository defines the index contract for search operations.
type Repository interface {
	SearchKNN(ctx context.Context, vector []float32, q *query.Query) ([]result.Item, error)
}

// DetailReader reads full product records for the best-effort detail join.
type DetailReader interface {
	Get(ctx context.Context, code string) (*domain.Product, error)
}

// Embedder vectorizes query text. Single attempt, no retry.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}
