package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/meninadourada/storefront/internal/catalog/domain"
)

const (
	DefaultPageSize = 6
	MaxPageSize     = 100
)

type ProductRepository interface {
	// Insert stores all products or none.
	Insert(ctx context.Context, products ...domain.Product) error
	Get(ctx context.Context, id string) (domain.Product, error)
	List(ctx context.Context, offset, limit int) ([]domain.Product, int64, error)
	Update(ctx context.Context, p domain.Product) error
	Delete(ctx context.Context, id string) error
	DeleteAll(ctx context.Context) (int64, error)
}

type Service struct {
	log   *slog.Logger
	repo  ProductRepository
	newID func() string
	now   func() time.Time
}

func NewService(log *slog.Logger, repo ProductRepository) *Service {
	return &Service{
		log:   log,
		repo:  repo,
		newID: func() string { return uuid.Must(uuid.NewV7()).String() },
		now:   time.Now,
	}
}

func (s *Service) Create(ctx context.Context, in domain.ProductInput) (domain.Product, error) {
	if err := in.Validate(); err != nil {
		return domain.Product{}, err
	}
	p := domain.NewProduct(in, s.newID, s.now())
	if err := s.repo.Insert(ctx, p); err != nil {
		return domain.Product{}, fmt.Errorf("insert product: %w", err)
	}
	s.log.InfoContext(ctx, "product created", "product_id", p.ID, "variations", len(p.Variations))
	return p, nil
}

// CreateBatch validates every input before storing any of them.
func (s *Service) CreateBatch(ctx context.Context, in []domain.ProductInput) ([]domain.Product, error) {
	if len(in) == 0 {
		return nil, &domain.ValidationError{Field: "products", Message: "at least one product is mandatory"}
	}
	now := s.now()
	products := make([]domain.Product, 0, len(in))
	for i, item := range in {
		if err := item.Validate(); err != nil {
			var vErr *domain.ValidationError
			if errors.As(err, &vErr) {
				return nil, &domain.ValidationError{Field: fmt.Sprintf("[%d].%s", i, vErr.Field), Message: vErr.Message}
			}
			return nil, err
		}
		products = append(products, domain.NewProduct(item, s.newID, now))
	}
	if err := s.repo.Insert(ctx, products...); err != nil {
		return nil, fmt.Errorf("insert %d products: %w", len(products), err)
	}
	s.log.InfoContext(ctx, "product batch created", "count", len(products))
	return products, nil
}

func (s *Service) Get(ctx context.Context, id string) (domain.Product, error) {
	return s.repo.Get(ctx, id)
}

// List returns one page of the catalog, oldest products first. A size of
// zero selects DefaultPageSize.
func (s *Service) List(ctx context.Context, page, size int) (domain.Page, error) {
	if size == 0 {
		size = DefaultPageSize
	}
	switch {
	case page < 0:
		return domain.Page{}, &domain.ValidationError{Field: "page", Message: "must not be negative"}
	case size < 0 || size > MaxPageSize:
		return domain.Page{}, &domain.ValidationError{Field: "size", Message: fmt.Sprintf("must be between 1 and %d", MaxPageSize)}
	}

	items, total, err := s.repo.List(ctx, page*size, size)
	if err != nil {
		return domain.Page{}, err
	}
	return domain.NewPage(items, page, size, total), nil
}

// Update replaces the product's content, rebuilding its variations.
func (s *Service) Update(ctx context.Context, id string, in domain.ProductInput) (domain.Product, error) {
	if err := in.Validate(); err != nil {
		return domain.Product{}, err
	}
	p, err := s.repo.Get(ctx, id)
	if err != nil {
		return domain.Product{}, err
	}
	p.Replace(in, s.newID, s.now())
	if err := s.repo.Update(ctx, p); err != nil {
		return domain.Product{}, err
	}
	s.log.InfoContext(ctx, "product updated", "product_id", p.ID, "variations", len(p.Variations))
	return p, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.log.InfoContext(ctx, "product deleted", "product_id", id)
	return nil
}

func (s *Service) DeleteAll(ctx context.Context) (int64, error) {
	n, err := s.repo.DeleteAll(ctx)
	if err != nil {
		return 0, err
	}
	s.log.WarnContext(ctx, "catalog cleared", "deleted", n)
	return n, nil
}
