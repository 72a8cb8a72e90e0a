package http

import (
	"github.com/rasuu-adhi/bloodline-streetwear-shop/internal/domain/entity"
	"github.com/shopspring/decimal"
)

type errorResponse struct {
	Error string `json:"error"`
}

type productsResponse struct {
	Products []entity.Product `json:"products"`
}

type addLineRequest struct {
	ProductID string `json:"product_id"`
	Size      string `json:"size"`
	Color     string `json:"color"`
	Quantity  *int   `json:"quantity"`
}

type updateLineRequest struct {
	Quantity *int `json:"quantity"`
}

// Money is rendered with two decimals.
type summaryResponse struct {
	Subtotal   string `json:"subtotal"`
	Shipping   string `json:"shipping"`
	Tax        string `json:"tax"`
	GrandTotal string `json:"grand_total"`
}

type cartResponse struct {
	Lines   []entity.CartLine `json:"lines"`
	Count   int               `json:"count"`
	Total   string            `json:"total"`
	Summary summaryResponse   `json:"summary"`
}

// newCartResponse derives every figure from one snapshot so the totals always
// agree with the lines shown.
func newCartResponse(lines []entity.CartLine, taxRate decimal.Decimal) cartResponse {
	if lines == nil {
		lines = []entity.CartLine{}
	}
	cart := &entity.Cart{Lines: lines}
	s := entity.Summarize(cart, taxRate)

	return cartResponse{
		Lines: lines,
		Count: cart.Count(),
		Total: s.Subtotal.StringFixed(2),
		Summary: summaryResponse{
			Subtotal:   s.Subtotal.StringFixed(2),
			Shipping:   s.Shipping.StringFixed(2),
			Tax:        s.Tax.StringFixed(2),
			GrandTotal: s.GrandTotal.StringFixed(2),
		},
	}
}

func nonNilProducts(products []entity.Product) []entity.Product {
	if products == nil {
		return []entity.Product{}
	}
	return products
}
