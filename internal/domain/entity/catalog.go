package entity

import (
	"slices"
)

type SortOrder string

const (
	SortDefault   SortOrder = ""
	SortPriceAsc  SortOrder = "price-asc"
	SortPriceDesc SortOrder = "price-desc"
	SortRating    SortOrder = "rating"
)

type ProductQuery struct {
	Category Category
	Sort     SortOrder
}

func (q ProductQuery) Validate() error {
	if q.Category != "" && !q.Category.Valid() {
		return &ValidationError{Kind: ErrInvalidQuery, Field: "category", Reason: "is unknown: " + string(q.Category)}
	}
	switch q.Sort {
	case SortDefault, SortPriceAsc, SortPriceDesc, SortRating:
		return nil
	}
	return &ValidationError{Kind: ErrInvalidQuery, Field: "sort", Reason: "is unknown: " + string(q.Sort)}
}

// FilterAndSort returns a new slice; products is left untouched. Sorting is
// stable so equal keys keep the catalog's default order.
func FilterAndSort(products []Product, q ProductQuery) []Product {
	out := make([]Product, 0, len(products))
	for _, p := range products {
		if q.Category != "" && p.Category != q.Category {
			continue
		}
		out = append(out, p)
	}

	switch q.Sort {
	case SortPriceAsc:
		slices.SortStableFunc(out, func(a, b Product) int { return a.Price.Cmp(b.Price) })
	case SortPriceDesc:
		slices.SortStableFunc(out, func(a, b Product) int { return b.Price.Cmp(a.Price) })
	case SortRating:
		slices.SortStableFunc(out, func(a, b Product) int { return b.Rating.Cmp(a.Rating) })
	}
	return out
}

func Featured(products []Product, limit int) []Product {
	if limit <= 0 {
		return []Product{}
	}
	out := make([]Product, 0, min(limit, len(products)))
	for _, p := range products {
		if len(out) == limit {
			break
		}
		if p.Featured {
			out = append(out, p)
		}
	}
	return out
}
