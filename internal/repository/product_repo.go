package repository

import (
	"context"

	"github.com/rasuu-adhi/bloodline-streetwear-shop/internal/domain/entity"
)

// ProductRepository is the catalog provider. List returns products newest
// first.
type ProductRepository interface {
	List(ctx context.Context) ([]entity.Product, error)
	GetByID(ctx context.Context, id string) (*entity.Product, error)
	Create(ctx context.Context, product *entity.Product) error
	Delete(ctx context.Context, id string) error
}
