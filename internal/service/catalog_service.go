package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rasuu-adhi/bloodline-streetwear-shop/internal/domain/entity"
	"github.com/rasuu-adhi/bloodline-streetwear-shop/internal/platform/logger"
	"github.com/rasuu-adhi/bloodline-streetwear-shop/internal/repository"
)

// ErrCatalogUnavailable wraps any product provider failure other than a
// missing product.
var ErrCatalogUnavailable = errors.New("catalog unavailable")

const defaultFeaturedLimit = 4

type CatalogService struct {
	repo          repository.ProductRepository
	log           logger.Logger
	featuredLimit int
	now           func() time.Time
}

func NewCatalogService(repo repository.ProductRepository, log logger.Logger, featuredLimit int) *CatalogService {
	if featuredLimit <= 0 {
		featuredLimit = defaultFeaturedLimit
	}
	return &CatalogService{
		repo:          repo,
		log:           log,
		featuredLimit: featuredLimit,
		now:           time.Now,
	}
}

// ListProducts returns the catalog, newest first unless the query asks for
// another order.
func (s *CatalogService) ListProducts(ctx context.Context, q entity.ProductQuery) ([]entity.Product, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	products, err := s.repo.List(ctx)
	if err != nil {
		s.log.Errorf("CatalogService.ListProducts: failed to list products: %v", err)
		return nil, fmt.Errorf("%w: %w", ErrCatalogUnavailable, err)
	}
	return entity.FilterAndSort(products, q), nil
}

// FeaturedProducts returns at most limit featured products. A non-positive
// limit uses the configured default.
func (s *CatalogService) FeaturedProducts(ctx context.Context, limit int) ([]entity.Product, error) {
	if limit <= 0 {
		limit = s.featuredLimit
	}

	products, err := s.repo.List(ctx)
	if err != nil {
		s.log.Errorf("CatalogService.FeaturedProducts: failed to list products: %v", err)
		return nil, fmt.Errorf("%w: %w", ErrCatalogUnavailable, err)
	}
	return entity.Featured(products, limit), nil
}

func (s *CatalogService) GetProduct(ctx context.Context, id string) (*entity.Product, error) {
	product, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
		s.log.Errorf("CatalogService.GetProduct: failed to fetch product ID=%s: %v", id, err)
		return nil, fmt.Errorf("%w: %w", ErrCatalogUnavailable, err)
	}
	return product, nil
}

// CreateProduct assigns a fresh id and creation time, then stores the
// product. Caller-supplied ID and CreatedAt are ignored.
func (s *CatalogService) CreateProduct(ctx context.Context, product entity.Product) (*entity.Product, error) {
	product.ID = uuid.NewString()
	product.CreatedAt = s.now().UTC()
	product.Normalize()

	if err := product.Validate(); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, &product); err != nil {
		s.log.Errorf("CatalogService.CreateProduct: failed to create product %q: %v", product.Name, err)
		if errors.Is(err, repository.ErrAlreadyExists) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrCatalogUnavailable, err)
	}

	s.log.Infof("Product created: ID=%s, Name=%s", product.ID, product.Name)
	return &product, nil
}

func (s *CatalogService) DeleteProduct(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return err
		}
		s.log.Errorf("CatalogService.DeleteProduct: failed to delete product ID=%s: %v", id, err)
		return fmt.Errorf("%w: %w", ErrCatalogUnavailable, err)
	}

	s.log.Infof("Product deleted: ID=%s", id)
	return nil
}
