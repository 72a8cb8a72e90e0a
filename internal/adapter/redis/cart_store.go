package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rasuu-adhi/bloodline-streetwear-shop/internal/repository"
	"github.com/redis/go-redis/v9"
)

type cartStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCartStore stores each cart as one string value. A zero ttl keeps keys
// until they are overwritten.
func NewCartStore(client *redis.Client, ttl time.Duration) repository.CartStore {
	return &cartStore{
		client: client,
		ttl:    ttl,
	}
}

func (s *cartStore) Get(ctx context.Context, key string) (string, error) {
	val, err := s.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", repository.ErrNotFound
		}
		return "", fmt.Errorf("failed to get cart %s from redis: %w", key, err)
	}
	return val, nil
}

func (s *cartStore) Set(ctx context.Context, key, value string) error {
	if key == "" {
		return errors.New("cannot save cart under an empty key")
	}
	if err := s.client.Set(ctx, key, value, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save cart %s to redis: %w", key, err)
	}
	return nil
}

