package mongo

import (
	"testing"
	"time"

	"github.com/rasuu-adhi/bloodline-streetwear-shop/internal/domain/entity"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProductDocumentConversion(t *testing.T) {
	original := decimal.RequireFromString("119.99")
	p := &entity.Product{
		ID:            "5c7d",
		Name:          "Urban Shadow Hoodie",
		Price:         decimal.RequireFromString("89.99"),
		OriginalPrice: &original,
		Category:      entity.CategoryMen,
		Sizes:         []string{"M", "L"},
		Stock:         45,
		Featured:      true,
		Rating:        decimal.RequireFromString("4.8"),
		Reviews:       127,
		CreatedAt:     time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC),
	}

	doc, err := toProductDocument(p)
	require.NoError(t, err)
	assert.Equal(t, "89.99", doc.Price.String())
	assert.Equal(t, []string{}, doc.Colors)

	back, err := doc.toEntity()
	require.NoError(t, err)
	assert.True(t, back.Price.Equal(p.Price))
	require.NotNil(t, back.OriginalPrice)
	assert.True(t, back.OriginalPrice.Equal(original))
	assert.True(t, back.Rating.Equal(p.Rating))
	assert.Equal(t, p.Sizes, back.Sizes)
	assert.Equal(t, entity.CategoryMen, back.Category)
	assert.Equal(t, p.CreatedAt, back.CreatedAt)
}

func TestProductDocumentConversion_NoOriginalPrice(t *testing.T) {
	p := &entity.Product{ID: "x", Name: "Tee", Price: decimal.NewFromInt(20), Category: entity.CategoryWomen}

	doc, err := toProductDocument(p)
	require.NoError(t, err)
	assert.Nil(t, doc.OriginalPrice)

	back, err := doc.toEntity()
	require.NoError(t, err)
	assert.Nil(t, back.OriginalPrice)
	assert.True(t, back.Rating.IsZero())
}
