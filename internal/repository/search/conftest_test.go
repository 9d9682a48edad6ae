package search

import (
	"context"
	"testing"

	"github.com/regalo-labs/giftfinder/internal/db"
	"github.com/regalo-labs/giftfinder/internal/domain/search/query"
	"github.com/regalo-labs/giftfinder/internal/domain/search/sortmode"
)

// mockStore implements the consumer interface for tests.
type mockStore struct {
	searchKNNFn func(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
}

func (m *mockStore) SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
	if m.searchKNNFn != nil {
		return m.searchKNNFn(ctx, q)
	}
	return &db.SearchResult{}, nil
}

func newTestRepo(t *testing.T) (*Repo, *mockStore) {
	t.Helper()
	ms := &mockStore{}
	repo := New(ms, Config{
		IndexName:  "idx:products",
		VecPrefix:  "vec:",
		PriceField: "price",
	})
	return repo, ms
}

func testVector() []float32 {
	vec := make([]float32, 4)
	for i := range vec {
		vec[i] = 0.1
	}
	return vec
}

func makeQuery(t *testing.T, k int, minPrice, maxPrice *float64) *query.Query {
	t.Helper()
	q, err := query.New("agenda gatti", k, minPrice, maxPrice, false, false, sortmode.Relevance)
	if err != nil {
		t.Fatalf("query.New: %v", err)
	}
	return &q
}

func f64(v float64) *float64 { return &v }
