package service

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rasuu-adhi/bloodline-streetwear-shop/internal/adapter/memory"
	"github.com/rasuu-adhi/bloodline-streetwear-shop/internal/domain/entity"
	"github.com/rasuu-adhi/bloodline-streetwear-shop/internal/platform/logger"
	"github.com/rasuu-adhi/bloodline-streetwear-shop/internal/platform/metrics"
	"github.com/rasuu-adhi/bloodline-streetwear-shop/internal/repository"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockCartStore struct {
	mock.Mock
}

func (m *MockCartStore) Get(ctx context.Context, key string) (string, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Error(1)
}

func (m *MockCartStore) Set(ctx context.Context, key, value string) error {
	args := m.Called(ctx, key, value)
	return args.Error(0)
}

type MockCartEventPublisher struct {
	mock.Mock
}

func (m *MockCartEventPublisher) PublishCartUpdated(ctx context.Context, event entity.CartEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

const testCartKey = "youngblood-cart:test"

func hoodie() entity.Product {
	return entity.Product{
		ID:       "1",
		Name:     "Urban Shadow Hoodie",
		Price:    decimal.RequireFromString("89.99"),
		Category: entity.CategoryMen,
		Sizes:    []string{"XS", "S", "M", "L", "XL", "XXL"},
		Colors:   []string{"Black", "Charcoal", "Navy"},
		Stock:    45,
		Featured: true,
		Rating:   decimal.RequireFromString("4.8"),
		Reviews:  127,
	}
}

func tee() entity.Product {
	return entity.Product{
		ID:       "2",
		Name:     "Street Logo Tee",
		Price:    decimal.RequireFromString("34.99"),
		Category: entity.CategoryWomen,
		Sizes:    []string{"S", "M", "L"},
		Colors:   []string{"White", "Black"},
		Stock:    80,
		Rating:   decimal.RequireFromString("4.5"),
		Reviews:  64,
	}
}

func newTestAggregator(store repository.CartStore) *CartAggregator {
	return NewCartAggregator(store, nil, nil, logger.NewNop(), CartAggregatorConfig{
		StorageKey:      testCartKey,
		StrictSelection: true,
	})
}

func TestCartAggregator_Init_AbsentKeyStartsEmpty(t *testing.T) {
	store := new(MockCartStore)
	store.On("Get", mock.Anything, testCartKey).Return("", repository.ErrNotFound).Once()

	agg := newTestAggregator(store)
	assert.False(t, agg.Initialized())

	agg.Init(context.Background())
	agg.Init(context.Background())

	assert.True(t, agg.Initialized())
	assert.Empty(t, agg.Lines())
	assert.Equal(t, 0, agg.Count())
	store.AssertExpectations(t)
	store.AssertNotCalled(t, "Set", mock.Anything, mock.Anything, mock.Anything)
}

func TestCartAggregator_Init_DiscardsUnreadableState(t *testing.T) {
	tests := []struct {
		name   string
		stored string
	}{
		{name: "malformed json", stored: "{not json"},
		{name: "unknown version", stored: `{"version":7,"lines":[]}`},
		{name: "plain string", stored: `"cart"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := new(MockCartStore)
			store.On("Get", mock.Anything, testCartKey).Return(tt.stored, nil)

			m := metrics.New("test")
			agg := NewCartAggregator(store, nil, m, logger.NewNop(), CartAggregatorConfig{StorageKey: testCartKey})
			agg.Init(context.Background())

			assert.True(t, agg.Initialized())
			assert.Empty(t, agg.Lines())
			assert.Equal(t, float64(1), testutil.ToFloat64(m.CartHydrateResets))
		})
	}
}

func TestCartAggregator_ReadFailureDoesNotOverwriteStoredCart(t *testing.T) {
	backing := memory.NewCartStore()
	ctx := context.Background()

	seed := newTestAggregator(backing)
	_, err := seed.AddLine(ctx, hoodie(), "M", "Black", 1)
	require.NoError(t, err)
	_, err = seed.AddLine(ctx, tee(), "S", "White", 2)
	require.NoError(t, err)
	stored, err := backing.Get(ctx, testCartKey)
	require.NoError(t, err)

	store := new(MockCartStore)
	store.On("Get", mock.Anything, testCartKey).Return("", errors.New("i/o timeout")).Once()
	store.On("Get", mock.Anything, testCartKey).Return(stored, nil).Once()
	store.On("Set", mock.Anything, testCartKey, mock.Anything).Return(nil)

	m := metrics.New("test")
	agg := NewCartAggregator(store, nil, m, logger.NewNop(), CartAggregatorConfig{
		StorageKey:      testCartKey,
		StrictSelection: true,
	})

	agg.Init(ctx)
	assert.False(t, agg.Initialized())
	store.AssertNotCalled(t, "Set", mock.Anything, mock.Anything, mock.Anything)
	assert.Equal(t, float64(0), testutil.ToFloat64(m.CartHydrateResets))

	lines, err := agg.AddLine(ctx, hoodie(), "L", "Navy", 1)
	require.NoError(t, err)
	assert.True(t, agg.Initialized())
	require.Len(t, lines, 3)
	assert.Equal(t, 4, agg.Count())

	store.AssertExpectations(t)
	store.AssertNumberOfCalls(t, "Get", 2)
	store.AssertNumberOfCalls(t, "Set", 1)
}

func TestCartAggregator_MutationWhileStoreUnreadableIsNotWritten(t *testing.T) {
	store := new(MockCartStore)
	store.On("Get", mock.Anything, testCartKey).Return("", errors.New("connection refused"))

	m := metrics.New("test")
	agg := NewCartAggregator(store, nil, m, logger.NewNop(), CartAggregatorConfig{StorageKey: testCartKey})

	_, err := agg.AddLine(context.Background(), hoodie(), "M", "Black", 1)
	require.NoError(t, err)

	assert.False(t, agg.Initialized())
	assert.False(t, agg.Dirty())
	assert.Equal(t, float64(1), testutil.ToFloat64(m.CartPersistErrors))
	assert.ErrorIs(t, agg.Flush(context.Background()), ErrCartUnread)
	store.AssertNotCalled(t, "Set", mock.Anything, mock.Anything, mock.Anything)
}

func TestCartAggregator_Init_HydratesLegacyArray(t *testing.T) {
	store := memory.NewCartStore()
	legacy := `[{"id":"1-M-Black","product":{"id":"1","name":"Urban Shadow Hoodie","price":"89.99","category":"men"},"size":"M","color":"Black","quantity":2}]`
	require.NoError(t, store.Set(context.Background(), testCartKey, legacy))

	agg := newTestAggregator(store)
	agg.Init(context.Background())

	require.Len(t, agg.Lines(), 1)
	assert.Equal(t, 2, agg.Count())
	assert.Equal(t, "179.98", agg.Total().StringFixed(2))
}

func TestCartAggregator_AddLine_MergesAndPersists(t *testing.T) {
	store := memory.NewCartStore()
	agg := newTestAggregator(store)
	ctx := context.Background()

	_, err := agg.AddLine(ctx, hoodie(), "M", "Black", 2)
	require.NoError(t, err)
	lines, err := agg.AddLine(ctx, hoodie(), "M", "Black", 1)
	require.NoError(t, err)

	require.Len(t, lines, 1)
	assert.Equal(t, "1-M-Black", lines[0].Key)
	assert.Equal(t, 3, lines[0].Quantity)
	assert.Equal(t, "269.97", agg.Total().StringFixed(2))
	assert.True(t, agg.Initialized())

	raw, err := store.Get(ctx, testCartKey)
	require.NoError(t, err)
	persisted, err := entity.UnmarshalCart([]byte(raw))
	require.NoError(t, err)
	require.Len(t, persisted.Lines, 1)
	assert.Equal(t, 3, persisted.Lines[0].Quantity)
}

func TestCartAggregator_AddLine_DistinctVariants(t *testing.T) {
	agg := newTestAggregator(memory.NewCartStore())
	ctx := context.Background()

	_, err := agg.AddLine(ctx, hoodie(), "M", "Black", 1)
	require.NoError(t, err)
	_, err = agg.AddLine(ctx, hoodie(), "L", "Black", 1)
	require.NoError(t, err)
	lines, err := agg.AddLine(ctx, tee(), "S", "White", 3)
	require.NoError(t, err)

	require.Len(t, lines, 3)
	assert.Equal(t, []string{"1-M-Black", "1-L-Black", "2-S-White"}, []string{lines[0].Key, lines[1].Key, lines[2].Key})
	assert.Equal(t, 5, agg.Count())
	assert.Equal(t, "284.95", agg.Total().StringFixed(2))
}

func TestCartAggregator_AddLine_RejectsInvalidSelection(t *testing.T) {
	tests := []struct {
		name     string
		size     string
		color    string
		quantity int
		field    string
	}{
		{name: "unknown size", size: "XXXL", color: "Black", quantity: 1, field: "size"},
		{name: "unknown color", size: "M", color: "Red", quantity: 1, field: "color"},
		{name: "zero quantity", size: "M", color: "Black", quantity: 0, field: "quantity"},
		{name: "negative quantity", size: "M", color: "Black", quantity: -2, field: "quantity"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := new(MockCartStore)
			store.On("Get", mock.Anything, testCartKey).Return("", repository.ErrNotFound)

			agg := newTestAggregator(store)
			lines, err := agg.AddLine(context.Background(), hoodie(), tt.size, tt.color, tt.quantity)

			require.Error(t, err)
			assert.Nil(t, lines)
			assert.ErrorIs(t, err, entity.ErrInvalidSelection)
			var verr *entity.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
			assert.Empty(t, agg.Lines())
			store.AssertNotCalled(t, "Set", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestCartAggregator_AddLine_LenientSelection(t *testing.T) {
	agg := NewCartAggregator(memory.NewCartStore(), nil, nil, logger.NewNop(), CartAggregatorConfig{
		StorageKey:      testCartKey,
		StrictSelection: false,
	})
	ctx := context.Background()

	lines, err := agg.AddLine(ctx, hoodie(), "XXXL", "Red", 1)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, "1-XXXL-Red", lines[0].Key)

	_, err = agg.AddLine(ctx, hoodie(), "M", "Black", 0)
	assert.ErrorIs(t, err, entity.ErrInvalidSelection)
	assert.Len(t, agg.Lines(), 1)
}

func TestCartAggregator_PersistFailureKeepsMutation(t *testing.T) {
	store := new(MockCartStore)
	store.On("Get", mock.Anything, testCartKey).Return("", repository.ErrNotFound)
	store.On("Set", mock.Anything, testCartKey, mock.Anything).Return(errors.New("quota exceeded"))

	m := metrics.New("test")
	agg := NewCartAggregator(store, nil, m, logger.NewNop(), CartAggregatorConfig{
		StorageKey:      testCartKey,
		StrictSelection: true,
	})

	lines, err := agg.AddLine(context.Background(), hoodie(), "M", "Black", 1)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, 1, agg.Count())
	assert.Equal(t, float64(1), testutil.ToFloat64(m.CartPersistErrors))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.CartMutations.WithLabelValues("add")))

	err = agg.Flush(context.Background())
	assert.EqualError(t, err, "quota exceeded")
	store.AssertNumberOfCalls(t, "Set", 2)
}

func TestCartAggregator_UpdateQuantity(t *testing.T) {
	agg := newTestAggregator(memory.NewCartStore())
	ctx := context.Background()
	_, err := agg.AddLine(ctx, hoodie(), "M", "Black", 2)
	require.NoError(t, err)

	lines, err := agg.UpdateQuantity(ctx, "1-M-Black", 5)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, 5, lines[0].Quantity)

	lines, err = agg.UpdateQuantity(ctx, "missing-key", 3)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, 5, lines[0].Quantity)

	_, err = agg.UpdateQuantity(ctx, "1-M-Black", entity.MaxLineQuantity+1)
	assert.ErrorIs(t, err, entity.ErrInvalidSelection)
	assert.Equal(t, 5, agg.Count())

	lines, err = agg.UpdateQuantity(ctx, "1-M-Black", 0)
	require.NoError(t, err)
	assert.Empty(t, lines)
}

func TestCartAggregator_AddLine_RejectsOverflowingMerge(t *testing.T) {
	store := memory.NewCartStore()
	agg := NewCartAggregator(store, nil, nil, logger.NewNop(), CartAggregatorConfig{StorageKey: testCartKey})
	ctx := context.Background()

	_, err := agg.AddLine(ctx, hoodie(), "M", "Black", entity.MaxLineQuantity)
	require.NoError(t, err)
	_, err = agg.AddLine(ctx, hoodie(), "M", "Black", 1)
	assert.ErrorIs(t, err, entity.ErrInvalidSelection)

	assert.Equal(t, entity.MaxLineQuantity, agg.Count())
	assert.True(t, agg.Total().IsPositive())
}

func TestCartAggregator_RemoveLine(t *testing.T) {
	agg := newTestAggregator(memory.NewCartStore())
	ctx := context.Background()
	_, err := agg.AddLine(ctx, hoodie(), "M", "Black", 1)
	require.NoError(t, err)
	_, err = agg.AddLine(ctx, tee(), "S", "White", 1)
	require.NoError(t, err)

	lines := agg.RemoveLine(ctx, "1-M-Black")
	require.Len(t, lines, 1)
	assert.Equal(t, "2-S-White", lines[0].Key)

	lines = agg.RemoveLine(ctx, "1-M-Black")
	assert.Len(t, lines, 1)
}

func TestCartAggregator_ClearPersistsEmptyCart(t *testing.T) {
	store := memory.NewCartStore()
	agg := newTestAggregator(store)
	ctx := context.Background()
	_, err := agg.AddLine(ctx, hoodie(), "M", "Black", 1)
	require.NoError(t, err)

	lines := agg.Clear(ctx)
	assert.Empty(t, lines)
	assert.True(t, agg.Total().IsZero())

	raw, err := store.Get(ctx, testCartKey)
	require.NoError(t, err)
	assert.JSONEq(t, `{"version":1,"lines":[]}`, raw)
}

func TestCartAggregator_StateSurvivesRestart(t *testing.T) {
	store := memory.NewCartStore()
	ctx := context.Background()

	first := newTestAggregator(store)
	_, err := first.AddLine(ctx, hoodie(), "M", "Black", 3)
	require.NoError(t, err)
	_, err = first.AddLine(ctx, tee(), "L", "Black", 1)
	require.NoError(t, err)
	_, err = first.UpdateQuantity(ctx, "2-L-Black", 2)
	require.NoError(t, err)

	second := newTestAggregator(store)
	second.Init(ctx)

	assert.Equal(t, first.Lines(), second.Lines())
	assert.Equal(t, 5, second.Count())
	assert.Equal(t, "339.95", second.Total().StringFixed(2))
}

func TestCartAggregator_Summary(t *testing.T) {
	agg := newTestAggregator(memory.NewCartStore())
	_, err := agg.AddLine(context.Background(), hoodie(), "M", "Black", 1)
	require.NoError(t, err)

	s := agg.Summary(decimal.RequireFromString("0.08"))
	assert.Equal(t, "89.99", s.Subtotal.StringFixed(2))
	assert.True(t, s.Shipping.IsZero())
	assert.Equal(t, "7.20", s.Tax.StringFixed(2))
	assert.Equal(t, "97.19", s.GrandTotal.StringFixed(2))
}

func TestCartAggregator_PublishesOnChangeOnly(t *testing.T) {
	store := memory.NewCartStore()
	events := new(MockCartEventPublisher)
	events.On("PublishCartUpdated", mock.Anything, mock.MatchedBy(func(e entity.CartEvent) bool {
		return e.Op == entity.CartOpAdd && e.LineKey == "1-M-Black" && e.Count == 2 && e.Total.Equal(decimal.RequireFromString("179.98"))
	})).Return(nil).Once()
	events.On("PublishCartUpdated", mock.Anything, mock.MatchedBy(func(e entity.CartEvent) bool {
		return e.Op == entity.CartOpClear && e.Lines == 0
	})).Return(errors.New("nats: connection closed")).Once()

	agg := NewCartAggregator(store, events, nil, logger.NewNop(), CartAggregatorConfig{StorageKey: testCartKey, StrictSelection: true})
	ctx := context.Background()

	_, err := agg.AddLine(ctx, hoodie(), "M", "Black", 2)
	require.NoError(t, err)
	agg.RemoveLine(ctx, "unknown")
	_, err = agg.UpdateQuantity(ctx, "unknown", 4)
	require.NoError(t, err)
	agg.Clear(ctx)

	events.AssertExpectations(t)
	events.AssertNumberOfCalls(t, "PublishCartUpdated", 2)
}

func TestCartAggregator_WritesSurviveCancelledRequest(t *testing.T) {
	store := memory.NewCartStore()
	agg := newTestAggregator(store)
	agg.Init(context.Background())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := agg.AddLine(ctx, hoodie(), "S", "Navy", 1)
	require.NoError(t, err)

	raw, err := store.Get(context.Background(), testCartKey)
	require.NoError(t, err)
	assert.Contains(t, raw, "1-S-Navy")
}
