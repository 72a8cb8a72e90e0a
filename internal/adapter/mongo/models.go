package mongo

import (
	"fmt"
	"time"

	"github.com/rasuu-adhi/bloodline-streetwear-shop/internal/domain/entity"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// productDocument keeps money as Decimal128 so prices survive the round trip
// without float drift.
type productDocument struct {
	ID            string                `bson:"_id"`
	Name          string                `bson:"name"`
	Description   string                `bson:"description"`
	Price         primitive.Decimal128  `bson:"price"`
	OriginalPrice *primitive.Decimal128 `bson:"original_price,omitempty"`
	Category      string                `bson:"category"`
	Sizes         []string              `bson:"sizes"`
	Colors        []string              `bson:"colors"`
	Images        []string              `bson:"images"`
	Stock         int                   `bson:"stock"`
	Featured      bool                  `bson:"featured"`
	Rating        primitive.Decimal128  `bson:"rating"`
	Reviews       int                   `bson:"reviews"`
	CreatedAt     time.Time             `bson:"created_at"`
}

func toDecimal128(d decimal.Decimal) (primitive.Decimal128, error) {
	v, err := primitive.ParseDecimal128(d.String())
	if err != nil {
		return primitive.Decimal128{}, fmt.Errorf("failed to encode decimal %s: %w", d.String(), err)
	}
	return v, nil
}

func fromDecimal128(v primitive.Decimal128) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(v.String())
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to decode decimal %s: %w", v.String(), err)
	}
	return d, nil
}

func toProductDocument(p *entity.Product) (*productDocument, error) {
	price, err := toDecimal128(p.Price)
	if err != nil {
		return nil, err
	}
	rating, err := toDecimal128(p.Rating)
	if err != nil {
		return nil, err
	}

	doc := &productDocument{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Price:       price,
		Category:    string(p.Category),
		Sizes:       nonNil(p.Sizes),
		Colors:      nonNil(p.Colors),
		Images:      nonNil(p.Images),
		Stock:       p.Stock,
		Featured:    p.Featured,
		Rating:      rating,
		Reviews:     p.Reviews,
		CreatedAt:   p.CreatedAt,
	}
	if p.OriginalPrice != nil {
		op, err := toDecimal128(*p.OriginalPrice)
		if err != nil {
			return nil, err
		}
		doc.OriginalPrice = &op
	}
	return doc, nil
}

func (d *productDocument) toEntity() (*entity.Product, error) {
	price, err := fromDecimal128(d.Price)
	if err != nil {
		return nil, err
	}
	rating, err := fromDecimal128(d.Rating)
	if err != nil {
		return nil, err
	}

	p := &entity.Product{
		ID:          d.ID,
		Name:        d.Name,
		Description: d.Description,
		Price:       price,
		Category:    entity.Category(d.Category),
		Sizes:       nonNil(d.Sizes),
		Colors:      nonNil(d.Colors),
		Images:      nonNil(d.Images),
		Stock:       d.Stock,
		Featured:    d.Featured,
		Rating:      rating,
		Reviews:     d.Reviews,
		CreatedAt:   d.CreatedAt,
	}
	if d.OriginalPrice != nil {
		op, err := fromDecimal128(*d.OriginalPrice)
		if err != nil {
			return nil, err
		}
		p.OriginalPrice = &op
	}
	return p, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
