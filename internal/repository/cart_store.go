package repository

import "context"

// CartStore is the durable string-keyed store the cart mirrors itself into.
// Get returns ErrNotFound for an absent key.
type CartStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
}
