package entity

import (
	"fmt"
	"slices"

	"github.com/shopspring/decimal"
)

// MaxLineQuantity is the largest quantity a single line may hold.
const MaxLineQuantity = 9999

type CartLine struct {
	Key      string  `json:"id"`
	Product  Product `json:"product"`
	Size     string  `json:"size"`
	Color    string  `json:"color"`
	Quantity int     `json:"quantity"`
}

// LineKey is the identity of a line: one line per (product, size, color).
func LineKey(productID, size, color string) string {
	return productID + "-" + size + "-" + color
}

// Cart keeps lines in insertion order. Keys are unique and every quantity is
// at least 1.
type Cart struct {
	Lines []CartLine
}

func NewCart() *Cart {
	return &Cart{Lines: make([]CartLine, 0)}
}

func (c *Cart) indexOf(key string) int {
	return slices.IndexFunc(c.Lines, func(l CartLine) bool { return l.Key == key })
}

// ValidateSelection checks that the quantity is positive and that size and
// color are among the options the product offers.
func ValidateSelection(product *Product, size, color string, quantity int) error {
	if quantity < 1 {
		return selectionError("quantity", "must be at least 1")
	}
	if quantity > MaxLineQuantity {
		return quantityTooLarge()
	}
	if !product.OffersSize(size) {
		return selectionError("size", "is not offered for product "+product.ID)
	}
	if !product.OffersColor(color) {
		return selectionError("color", "is not offered for product "+product.ID)
	}
	return nil
}

func quantityTooLarge() error {
	return selectionError("quantity", fmt.Sprintf("must be at most %d per line", MaxLineQuantity))
}

// AddLine merges into the line with the same key or appends a new one. An
// existing line keeps its product snapshot. A merge that would push the line
// past MaxLineQuantity is rejected and leaves the cart unchanged.
func (c *Cart) AddLine(product Product, size, color string, quantity int) (CartLine, error) {
	if quantity < 1 {
		return CartLine{}, selectionError("quantity", "must be at least 1")
	}
	if quantity > MaxLineQuantity {
		return CartLine{}, quantityTooLarge()
	}

	key := LineKey(product.ID, size, color)
	if i := c.indexOf(key); i >= 0 {
		if c.Lines[i].Quantity > MaxLineQuantity-quantity {
			return CartLine{}, quantityTooLarge()
		}
		c.Lines[i].Quantity += quantity
		return c.Lines[i], nil
	}

	product.Normalize()
	line := CartLine{
		Key:      key,
		Product:  product,
		Size:     size,
		Color:    color,
		Quantity: quantity,
	}
	c.Lines = append(c.Lines, line)
	return line, nil
}

// RemoveLine reports whether a line was removed.
func (c *Cart) RemoveLine(key string) bool {
	i := c.indexOf(key)
	if i < 0 {
		return false
	}
	c.Lines = slices.Delete(c.Lines, i, i+1)
	return true
}

// UpdateQuantity sets an absolute quantity. Zero or less removes the line.
// An absent key is a no-op even when the quantity is out of range.
func (c *Cart) UpdateQuantity(key string, quantity int) (bool, error) {
	if quantity <= 0 {
		return c.RemoveLine(key), nil
	}
	i := c.indexOf(key)
	if i < 0 {
		return false, nil
	}
	if quantity > MaxLineQuantity {
		return false, quantityTooLarge()
	}
	c.Lines[i].Quantity = quantity
	return true, nil
}

func (c *Cart) Clear() {
	c.Lines = make([]CartLine, 0)
}

func (c *Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, l := range c.Lines {
		total = total.Add(l.Product.Price.Mul(decimal.NewFromInt(int64(l.Quantity))))
	}
	return total
}

func (c *Cart) Count() int {
	count := 0
	for _, l := range c.Lines {
		count += l.Quantity
	}
	return count
}

// Snapshot copies the line slice so callers cannot mutate the cart.
func (c *Cart) Snapshot() []CartLine {
	return slices.Clone(c.Lines)
}
