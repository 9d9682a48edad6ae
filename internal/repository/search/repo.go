// Package search plans index queries and parses raw index rows into typed
// catalog hits.
package search

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/regalo-labs/giftfinder/internal/db"
	"github.com/regalo-labs/giftfinder/internal/domain"
	"github.com/regalo-labs/giftfinder/internal/domain/search/query"
	"github.com/regalo-labs/giftfinder/internal/domain/search/result"
)

// returnFields are the hash fields requested per hit. Both price spellings are
// returned; parsing prefers the canonical one.
var returnFields = []string{"code", "title", "brand", "category", "keywords", "price", "prezzo", "score"}

// store is the consumer interface for search operations (ISP).
type store interface {
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
}

// Config holds index naming for the repository.
type Config struct {
	IndexName  string
	VecPrefix  string
	PriceField string
}

// Repo implements usecase/search.Repository.
type Repo struct {
	store store
	cfg   Config
}

// New creates a search repository.
func New(s store, cfg Config) *Repo {
	return &Repo{store: s, cfg: cfg}
}

// SearchKNN runs the oversampled hybrid filter+KNN query and parses the rows.
// Ordering is the index's own (score ascending = closer); the assembler
// decides whether to resort.
func (r *Repo) SearchKNN(ctx context.Context, vector []float32, q *query.Query) ([]result.Item, error) {
	knn := &db.KNNQuery{
		IndexName:    r.cfg.IndexName,
		Filter:       r.buildFilter(q),
		Vector:       vector,
		K:            q.KQuery(),
		ReturnFields: returnFields,
	}

	sr, err := r.store.SearchKNN(ctx, knn)
	if err != nil {
		return nil, fmt.Errorf("search knn: %v: %w", err, domain.ErrIndexUnavailable)
	}

	return r.parseItems(sr), nil
}

// buildFilter returns the FT.SEARCH pre-filter: "*" when no price bound is
// set, otherwise a numeric range over the configured price field with
// -inf/+inf standing in for a missing side.
func (r *Repo) buildFilter(q *query.Query) string {
	if !q.HasPriceFilter() {
		return "*"
	}
	lo, hi := "-inf", "+inf"
	if min := q.MinPrice(); min != nil {
		lo = strconv.FormatFloat(*min, 'g', -1, 64)
	}
	if max := q.MaxPrice(); max != nil {
		hi = strconv.FormatFloat(*max, 'g', -1, 64)
	}
	return fmt.Sprintf("@%s:[%s %s]", r.cfg.PriceField, lo, hi)
}

// parseItems converts raw field-pair rows into items. The code comes from the
// row itself or, failing that, the entry key minus the vector prefix; rows
// with no derivable code are dropped so every returned item has one.
func (r *Repo) parseItems(sr *db.SearchResult) []result.Item {
	if sr == nil || sr.Total == 0 {
		return nil
	}

	items := make([]result.Item, 0, len(sr.Entries))
	for _, entry := range sr.Entries {
		code := entry.Fields["code"]
		if code == "" {
			code = strings.TrimPrefix(entry.Key, r.cfg.VecPrefix)
		}
		if code == "" {
			continue
		}

		item := result.Item{
			Code:     code,
			Title:    entry.Fields["title"],
			Brand:    entry.Fields["brand"],
			Category: entry.Fields["category"],
			Keywords: entry.Fields["keywords"],
			Price:    parsePrice(entry.Fields),
		}
		if score, err := strconv.ParseFloat(entry.Fields["score"], 64); err == nil {
			item.Score = score
		}
		items = append(items, item)
	}
	return items
}

// parsePrice coerces the price from either field name, preferring the first
// populated.
func parsePrice(fields map[string]string) *float64 {
	for _, name := range []string{"price", "prezzo"} {
		raw, ok := fields[name]
		if !ok || raw == "" {
			continue
		}
		if v, err := strconv.ParseFloat(raw, 64); err == nil {
			return &v
		}
	}
	return nil
}
