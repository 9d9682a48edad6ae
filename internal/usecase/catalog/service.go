// Package catalog exposes the single-product lookup entry point.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/regalo-labs/giftfinder/internal/domain"
)

// Repository reads product detail documents.
type Repository interface {
	Get(ctx context.Context, code string) (*domain.Product, error)
}

// Service handles product detail lookups.
type Service struct {
	repo Repository
}

// New creates a catalog service.
func New(repo Repository) *Service {
	return &Service{repo: repo}
}

// Get fetches a product by code. A nonexistent code is found=false with a nil
// product and a nil error, not a failure.
func (s *Service) Get(ctx context.Context, code string) (*domain.Product, bool, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, false, fmt.Errorf("%w: product code is required", domain.ErrInvalidRequest)
	}

	p, err := s.repo.Get(ctx, code)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("get product: %w", err)
	}
	return p, true, nil
}
