package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru"
	"github.com/rasuu-adhi/bloodline-streetwear-shop/internal/platform/logger"
	"github.com/rasuu-adhi/bloodline-streetwear-shop/internal/platform/metrics"
	"github.com/rasuu-adhi/bloodline-streetwear-shop/internal/repository"
)

var ErrEmptySession = errors.New("cart session id is empty")

const defaultRegistrySize = 1024

type CartRegistryConfig struct {
	KeyPrefix       string
	Size            int
	WriteTimeout    time.Duration
	StrictSelection bool
}

// CartRegistry hands out one initialized aggregator per session. Aggregators
// are kept in an LRU; an evicted session hydrates again from the store on its
// next request.
type CartRegistry struct {
	mu      sync.Mutex
	carts   *lru.Cache
	store   repository.CartStore
	events  repository.CartEventPublisher
	metrics *metrics.Metrics
	log     logger.Logger
	cfg     CartRegistryConfig
}

func NewCartRegistry(
	store repository.CartStore,
	events repository.CartEventPublisher,
	m *metrics.Metrics,
	log logger.Logger,
	cfg CartRegistryConfig,
) (*CartRegistry, error) {
	if cfg.Size <= 0 {
		cfg.Size = defaultRegistrySize
	}
	carts, err := lru.New(cfg.Size)
	if err != nil {
		return nil, fmt.Errorf("failed to create cart registry: %w", err)
	}

	return &CartRegistry{
		carts:   carts,
		store:   store,
		events:  events,
		metrics: m,
		log:     log,
		cfg:     cfg,
	}, nil
}

// StorageKey is the store key a session's cart lives under.
func (r *CartRegistry) StorageKey(sessionID string) string {
	return r.cfg.KeyPrefix + sessionID
}

// Get returns the session's aggregator, hydrating it on first use.
func (r *CartRegistry) Get(ctx context.Context, sessionID string) (*CartAggregator, error) {
	if sessionID == "" {
		return nil, ErrEmptySession
	}

	agg := r.lookup(sessionID)
	agg.Init(ctx)
	return agg, nil
}

func (r *CartRegistry) lookup(sessionID string) *CartAggregator {
	r.mu.Lock()
	defer r.mu.Unlock()

	if v, ok := r.carts.Get(sessionID); ok {
		return v.(*CartAggregator)
	}

	agg := NewCartAggregator(r.store, r.events, r.metrics, r.log, CartAggregatorConfig{
		StorageKey:      r.StorageKey(sessionID),
		WriteTimeout:    r.cfg.WriteTimeout,
		StrictSelection: r.cfg.StrictSelection,
	})
	r.carts.Add(sessionID, agg)
	return agg
}

// FlushDirty rewrites every cached cart whose last write failed. It is
// meant for shutdown and returns the joined write errors.
func (r *CartRegistry) FlushDirty(ctx context.Context) error {
	r.mu.Lock()
	keys := r.carts.Keys()
	aggs := make([]*CartAggregator, 0, len(keys))
	for _, k := range keys {
		if v, ok := r.carts.Peek(k); ok {
			aggs = append(aggs, v.(*CartAggregator))
		}
	}
	r.mu.Unlock()

	var errs []error
	flushed := 0
	for _, agg := range aggs {
		if !agg.Dirty() {
			continue
		}
		flushed++
		if err := agg.Flush(ctx); err != nil {
			errs = append(errs, fmt.Errorf("flush %s: %w", agg.StorageKey(), err))
		}
	}
	if flushed > 0 {
		r.log.Infof("Flushed %d unsaved carts, %d failed", flushed, len(errs))
	}
	return errors.Join(errs...)
}

func (r *CartRegistry) Len() int {
	return r.carts.Len()
}
