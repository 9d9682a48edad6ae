package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/regalo-labs/giftfinder/internal/domain"
)

type mockRepo struct {
	product  *domain.Product
	err      error
	lastCode string
}

func (m *mockRepo) Get(_ context.Context, code string) (*domain.Product, error) {
	m.lastCode = code
	if m.err != nil {
		return nil, m.err
	}
	return m.product, nil
}

func TestGet_Found(t *testing.T) {
	repo := &mockRepo{product: &domain.Product{ID: "A1", Title: "Agenda"}}
	svc := New(repo)

	p, found, err := svc.Get(context.Background(), "A1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !found || p == nil || p.Title != "Agenda" {
		t.Fatalf("expected found product, got found=%v p=%+v", found, p)
	}
}

func TestGet_NotFoundIsNotAnError(t *testing.T) {
	svc := New(&mockRepo{err: domain.ErrNotFound})

	p, found, err := svc.Get(context.Background(), "missing")
	if err != nil {
		t.Fatalf("absence must not be an error: %v", err)
	}
	if found || p != nil {
		t.Fatalf("expected found=false, nil product, got found=%v p=%+v", found, p)
	}
}

func TestGet_EmptyCodeRejected(t *testing.T) {
	svc := New(&mockRepo{})

	for _, code := range []string{"", "   "} {
		_, _, err := svc.Get(context.Background(), code)
		if !errors.Is(err, domain.ErrInvalidRequest) {
			t.Errorf("Get(%q): expected ErrInvalidRequest, got %v", code, err)
		}
	}
}

func TestGet_TrimsCode(t *testing.T) {
	repo := &mockRepo{product: &domain.Product{ID: "A1"}}
	svc := New(repo)

	if _, _, err := svc.Get(context.Background(), "  A1 "); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if repo.lastCode != "A1" {
		t.Errorf("expected trimmed code, got %q", repo.lastCode)
	}
}

func TestGet_StoreErrorSurfaces(t *testing.T) {
	svc := New(&mockRepo{err: domain.ErrIndexUnavailable})

	_, _, err := svc.Get(context.Background(), "A1")
	if !errors.Is(err, domain.ErrIndexUnavailable) {
		t.Fatalf("expected store error surfaced, got %v", err)
	}
}
