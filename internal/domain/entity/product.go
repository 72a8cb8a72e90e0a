package entity

import (
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Category string

const (
	CategoryMen         Category = "men"
	CategoryWomen       Category = "women"
	CategoryAccessories Category = "accessories"
)

func (c Category) Valid() bool {
	switch c {
	case CategoryMen, CategoryWomen, CategoryAccessories:
		return true
	}
	return false
}

var maxRating = decimal.NewFromInt(5)

type Product struct {
	ID            string           `json:"id"`
	Name          string           `json:"name"`
	Description   string           `json:"description"`
	Price         decimal.Decimal  `json:"price"`
	OriginalPrice *decimal.Decimal `json:"originalPrice,omitempty"`
	Category      Category         `json:"category"`
	Sizes         []string         `json:"sizes"`
	Colors        []string         `json:"colors"`
	Images        []string         `json:"images"`
	Stock         int              `json:"stock"`
	Featured      bool             `json:"featured"`
	Rating        decimal.Decimal  `json:"rating"`
	Reviews       int              `json:"reviews"`
	CreatedAt     time.Time        `json:"createdAt,omitzero"`
}

// OffersSize reports whether size is one of the product's options. A product
// without sizes only accepts the empty size.
func (p *Product) OffersSize(size string) bool {
	if len(p.Sizes) == 0 {
		return size == ""
	}
	return slices.Contains(p.Sizes, size)
}

func (p *Product) OffersColor(color string) bool {
	if len(p.Colors) == 0 {
		return color == ""
	}
	return slices.Contains(p.Colors, color)
}

// Normalize replaces nil option and image lists with empty ones so a product
// always encodes them as arrays.
func (p *Product) Normalize() {
	if p.Sizes == nil {
		p.Sizes = []string{}
	}
	if p.Colors == nil {
		p.Colors = []string{}
	}
	if p.Images == nil {
		p.Images = []string{}
	}
}

func (p *Product) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return productError("name", "must not be empty")
	}
	if p.Price.IsNegative() {
		return productError("price", "must not be negative")
	}
	if p.OriginalPrice != nil && p.OriginalPrice.IsNegative() {
		return productError("originalPrice", "must not be negative")
	}
	if !p.Category.Valid() {
		return productError("category", "must be one of men, women, accessories")
	}
	if p.Stock < 0 {
		return productError("stock", "must not be negative")
	}
	if p.Rating.IsNegative() || p.Rating.GreaterThan(maxRating) {
		return productError("rating", "must be between 0 and 5")
	}
	if p.Reviews < 0 {
		return productError("reviews", "must not be negative")
	}
	return nil
}
