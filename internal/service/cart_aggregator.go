package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rasuu-adhi/bloodline-streetwear-shop/internal/domain/entity"
	"github.com/rasuu-adhi/bloodline-streetwear-shop/internal/platform/logger"
	"github.com/rasuu-adhi/bloodline-streetwear-shop/internal/platform/metrics"
	"github.com/rasuu-adhi/bloodline-streetwear-shop/internal/repository"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	defaultCartWriteTimeout = 2 * time.Second
	tracerName              = "github.com/rasuu-adhi/bloodline-streetwear-shop/internal/service"
)

type CartAggregatorConfig struct {
	StorageKey      string
	WriteTimeout    time.Duration
	StrictSelection bool
}

// CartAggregator owns one cart and mirrors it to a CartStore under a fixed
// key. Every mutation rewrites the whole cart. A failed write is logged and
// never undoes the in-memory change.
type CartAggregator struct {
	mu sync.Mutex

	store   repository.CartStore
	events  repository.CartEventPublisher
	metrics *metrics.Metrics
	log     logger.Logger
	tracer  trace.Tracer

	key          string
	writeTimeout time.Duration
	strict       bool

	cart        *entity.Cart
	initialized bool
	// dirty is set while the store lags behind the in-memory cart.
	dirty bool
}

// NewCartAggregator returns an empty, uninitialized aggregator. events and m
// may be nil.
func NewCartAggregator(
	store repository.CartStore,
	events repository.CartEventPublisher,
	m *metrics.Metrics,
	log logger.Logger,
	cfg CartAggregatorConfig,
) *CartAggregator {
	writeTimeout := cfg.WriteTimeout
	if writeTimeout <= 0 {
		writeTimeout = defaultCartWriteTimeout
	}

	return &CartAggregator{
		store:        store,
		events:       events,
		metrics:      m,
		log:          log.With("cart_key", cfg.StorageKey),
		tracer:       otel.Tracer(tracerName),
		key:          cfg.StorageKey,
		writeTimeout: writeTimeout,
		strict:       cfg.StrictSelection,
		cart:         entity.NewCart(),
	}
}

func (a *CartAggregator) StorageKey() string {
	return a.key
}

// Dirty reports whether the last write to the store failed.
func (a *CartAggregator) Dirty() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.dirty
}

func (a *CartAggregator) Initialized() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.initialized
}

// Init hydrates the cart from the store once. An absent key or an unparseable
// value leaves the cart empty. A failed read leaves the aggregator
// uninitialized: the next call reads again, and nothing is written to the
// store until a read succeeds. Changes made in the meantime give way to the
// stored cart once it is read. No error reaches the caller.
func (a *CartAggregator) Init(ctx context.Context) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.hydrate(ctx)
}

func (a *CartAggregator) hydrate(ctx context.Context) {
	if a.initialized {
		return
	}

	ctx, span := a.tracer.Start(ctx, "cart.hydrate", trace.WithAttributes(attribute.String("cart.key", a.key)))
	defer span.End()

	raw, err := a.store.Get(ctx, a.key)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			a.initialized = true
			a.cart = entity.NewCart()
			a.log.Debug("No persisted cart, starting empty")
			return
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "cart read failed")
		a.log.Warnf("Failed to read persisted cart, will retry on next access: %v", err)
		return
	}

	a.initialized = true
	cart, err := entity.UnmarshalCart([]byte(raw))
	if err != nil {
		span.RecordError(err)
		a.log.Warnf("Discarding unreadable persisted cart: %v", err)
		a.cart = entity.NewCart()
		a.countHydrateReset()
		return
	}

	a.cart = cart
	span.SetAttributes(attribute.Int("cart.lines", len(cart.Lines)))
	a.log.Debugf("Cart hydrated with %d lines", len(cart.Lines))
}

// AddLine merges the selection into the cart. With strict selection the size
// and color must be offered by the product; a rejected selection returns a
// *entity.ValidationError and leaves the cart untouched.
func (a *CartAggregator) AddLine(ctx context.Context, product entity.Product, size, color string, quantity int) ([]entity.CartLine, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.hydrate(ctx)

	if a.strict {
		if err := entity.ValidateSelection(&product, size, color, quantity); err != nil {
			return nil, err
		}
	}

	before := len(a.cart.Lines)
	line, err := a.cart.AddLine(product, size, color, quantity)
	if err != nil {
		return nil, err
	}
	if len(a.cart.Lines) > before && a.metrics != nil {
		a.metrics.CartLinesAdded.Inc()
	}

	a.log.Infof("Added to cart: ProductID=%s, Size=%s, Color=%s, Quantity=%d", product.ID, size, color, quantity)
	a.afterMutation(ctx, entity.CartOpAdd, line.Key, true)
	return a.cart.Snapshot(), nil
}

// RemoveLine is a no-op for an unknown key.
func (a *CartAggregator) RemoveLine(ctx context.Context, key string) []entity.CartLine {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.hydrate(ctx)

	changed := a.cart.RemoveLine(key)
	a.afterMutation(ctx, entity.CartOpRemove, key, changed)
	return a.cart.Snapshot()
}

// UpdateQuantity sets an absolute quantity; zero or less removes the line.
// A quantity above entity.MaxLineQuantity is rejected for an existing line.
func (a *CartAggregator) UpdateQuantity(ctx context.Context, key string, quantity int) ([]entity.CartLine, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.hydrate(ctx)

	op := entity.CartOpUpdate
	if quantity <= 0 {
		op = entity.CartOpRemove
	}
	changed, err := a.cart.UpdateQuantity(key, quantity)
	if err != nil {
		return nil, err
	}
	a.afterMutation(ctx, op, key, changed)
	return a.cart.Snapshot(), nil
}

func (a *CartAggregator) Clear(ctx context.Context) []entity.CartLine {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.hydrate(ctx)

	a.cart.Clear()
	a.afterMutation(ctx, entity.CartOpClear, "", true)
	return a.cart.Snapshot()
}

func (a *CartAggregator) Lines() []entity.CartLine {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.cart.Snapshot()
}

func (a *CartAggregator) Total() decimal.Decimal {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.cart.Total()
}

func (a *CartAggregator) Count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.cart.Count()
}

func (a *CartAggregator) Summary(taxRate decimal.Decimal) entity.Summary {
	a.mu.Lock()
	defer a.mu.Unlock()
	return entity.Summarize(a.cart, taxRate)
}

// ErrCartUnread is returned by Flush while the persisted cart has not been read.
var ErrCartUnread = errors.New("persisted cart has not been read")

// Flush rewrites the current cart and, unlike the implicit writes after each
// mutation, reports the store error.
func (a *CartAggregator) Flush(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.hydrate(ctx)
	if !a.initialized {
		return ErrCartUnread
	}
	return a.persist(ctx)
}

func (a *CartAggregator) afterMutation(ctx context.Context, op entity.CartOp, lineKey string, changed bool) {
	if !a.initialized {
		// Writing now would replace a stored cart we never saw.
		a.log.Warnf("Cart not read from store yet, skipping write after %s", op)
		if a.metrics != nil {
			a.metrics.CartPersistErrors.Inc()
		}
	} else if err := a.persist(ctx); err != nil {
		a.log.Errorf("Failed to persist cart after %s, keeping in-memory state: %v", op, err)
		if a.metrics != nil {
			a.metrics.CartPersistErrors.Inc()
		}
	}

	if !changed {
		return
	}
	if a.metrics != nil {
		a.metrics.CartMutations.WithLabelValues(string(op)).Inc()
	}
	a.publish(ctx, op, lineKey)
}

func (a *CartAggregator) persist(ctx context.Context) error {
	data, err := entity.MarshalCart(a.cart)
	if err != nil {
		return err
	}

	ctx, span := a.tracer.Start(ctx, "cart.persist", trace.WithAttributes(
		attribute.String("cart.key", a.key),
		attribute.Int("cart.lines", len(a.cart.Lines)),
	))
	defer span.End()

	// The write outlives a cancelled request: the mutation already happened.
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.writeTimeout)
	defer cancel()

	if err := a.store.Set(writeCtx, a.key, string(data)); err != nil {
		a.dirty = true
		span.RecordError(err)
		span.SetStatus(codes.Error, "cart write failed")
		return err
	}
	a.dirty = false
	return nil
}

func (a *CartAggregator) publish(ctx context.Context, op entity.CartOp, lineKey string) {
	if a.events == nil {
		return
	}

	event := entity.CartEvent{
		StorageKey: a.key,
		Op:         op,
		LineKey:    lineKey,
		Lines:      len(a.cart.Lines),
		Count:      a.cart.Count(),
		Total:      a.cart.Total(),
		At:         time.Now().UTC(),
	}

	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.writeTimeout)
	defer cancel()

	if err := a.events.PublishCartUpdated(pubCtx, event); err != nil {
		a.log.Warnf("Failed to publish cart %s event: %v", op, err)
	}
}

func (a *CartAggregator) countHydrateReset() {
	if a.metrics != nil {
		a.metrics.CartHydrateResets.Inc()
	}
}
