package repository

import (
	"context"

	"github.com/rasuu-adhi/bloodline-streetwear-shop/internal/domain/entity"
)

type CartEventPublisher interface {
	PublishCartUpdated(ctx context.Context, event entity.CartEvent) error
}
