package entity

import "github.com/shopspring/decimal"

// Summary is the order summary shown next to the cart. Shipping is free.
type Summary struct {
	Subtotal   decimal.Decimal
	Shipping   decimal.Decimal
	Tax        decimal.Decimal
	GrandTotal decimal.Decimal
}

func Summarize(c *Cart, taxRate decimal.Decimal) Summary {
	subtotal := c.Total()
	tax := subtotal.Mul(taxRate)
	return Summary{
		Subtotal:   subtotal,
		Shipping:   decimal.Zero,
		Tax:        tax,
		GrandTotal: subtotal.Add(tax),
	}
}
