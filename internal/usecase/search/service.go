// Package search orchestrates the retrieval-ranking pipeline: embed, filtered
// oversampled KNN, best-effort detail join, deterministic resort, hard cap.
package search

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/regalo-labs/giftfinder/internal/domain"
	"github.com/regalo-labs/giftfinder/internal/domain/search/query"
	"github.com/regalo-labs/giftfinder/internal/domain/search/result"
	"github.com/regalo-labs/giftfinder/internal/domain/search/sortmode"
	"github.com/regalo-labs/giftfinder/internal/logger"
	"github.com/regalo-labs/giftfinder/internal/metrics"
)

// Service handles catalog searches.
type Service struct {
	repo    Repository
	details DetailReader
	embed   Embedder
}

// New creates a search service.
func New(repo Repository, details DetailReader, embed Embedder) *Service {
	return &Service{repo: repo, details: details, embed: embed}
}

// Search executes one search request end to end. Zero matches is a valid
// empty envelope, never an error; the caller may retry with expanded=true.
func (s *Service) Search(ctx context.Context, q *query.Query) (result.Envelope, error) {
	emb, err := s.embed.Embed(ctx, q.EmbeddingText())
	if err != nil {
		metrics.SearchRequestsTotal.WithLabelValues(string(q.Sort()), "error").Inc()
		return result.Envelope{}, fmt.Errorf("vectorize query: %w", err)
	}

	items, err := s.repo.SearchKNN(ctx, emb.Embedding, q)
	if err != nil {
		metrics.SearchRequestsTotal.WithLabelValues(string(q.Sort()), "error").Inc()
		return result.Envelope{}, fmt.Errorf("search knn: %w", err)
	}

	if q.IncludeDetails() {
		s.joinDetails(ctx, items)
	}

	orderItems(items, q.Sort())

	if len(items) > q.KLimit() {
		items = items[:q.KLimit()]
	}
	if items == nil {
		items = []result.Item{}
	}

	metrics.SearchRequestsTotal.WithLabelValues(string(q.Sort()), "success").Inc()
	metrics.SearchResultsReturned.Observe(float64(len(items)))

	return result.Envelope{
		Count: len(items),
		K:     q.KLimit(),
		Filters: result.Filters{
			MinPrice: q.MinPrice(),
			MaxPrice: q.MaxPrice(),
			Expanded: q.Expanded(),
		},
		Sort:  q.Sort(),
		Items: items,
	}, nil
}

// joinDetails attaches full product records to candidates, one concurrent
// point lookup per candidate. Failures are swallowed: the candidate stays in
// the result without its detail payload. Results land by index position, so
// completion order is irrelevant.
func (s *Service) joinDetails(ctx context.Context, items []result.Item) {
	g, gctx := errgroup.WithContext(ctx)
	for i := range items {
		g.Go(func() error {
			p, err := s.details.Get(gctx, items[i].Code)
			if err != nil {
				if !errors.Is(err, domain.ErrNotFound) {
					metrics.DetailJoinFailuresTotal.Inc()
					logger.FromContext(ctx).Debug("detail join skipped",
						zap.String("code", items[i].Code), zap.Error(err))
				}
				return nil
			}
			items[i].Product = p
			return nil
		})
	}
	_ = g.Wait()
}

// orderItems applies the final ordering policy in place. Relevance keeps the
// index's KNN order untouched. Price modes stable-sort by price with priceless
// items always last; ties break by ascending score, which keeps identical
// requests returning identical orderings.
func orderItems(items []result.Item, mode sortmode.Mode) {
	if !mode.ByPrice() {
		return
	}

	sort.SliceStable(items, func(i, j int) bool {
		pi, pj := items[i].Price, items[j].Price
		if (pi == nil) != (pj == nil) {
			return pj == nil
		}
		if pi != nil && *pi != *pj {
			if mode == sortmode.PriceAsc {
				return *pi < *pj
			}
			return *pi > *pj
		}
		return items[i].Score < items[j].Score
	})
}
