package entity

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// CartFormatVersion tags the persisted layout. Version 0 is the bare JSON
// array written before the envelope existed.
const CartFormatVersion = 1

var ErrMalformedCart = errors.New("malformed persisted cart")

type persistedCart struct {
	Version int        `json:"version"`
	Lines   []CartLine `json:"lines"`
}

func MarshalCart(c *Cart) ([]byte, error) {
	lines := c.Lines
	if lines == nil {
		lines = []CartLine{}
	}
	data, err := json.Marshal(persistedCart{Version: CartFormatVersion, Lines: lines})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal cart: %w", err)
	}
	return data, nil
}

// UnmarshalCart decodes a persisted cart of any known version. The result
// always satisfies the cart invariants: non-positive quantities are dropped
// and lines that share a key are merged.
func UnmarshalCart(data []byte) (*Cart, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("%w: empty value", ErrMalformedCart)
	}

	var lines []CartLine
	switch trimmed[0] {
	case '[':
		if err := json.Unmarshal(trimmed, &lines); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedCart, err)
		}
	case '{':
		var envelope persistedCart
		if err := json.Unmarshal(trimmed, &envelope); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedCart, err)
		}
		if envelope.Version != CartFormatVersion {
			return nil, fmt.Errorf("%w: unsupported version %d", ErrMalformedCart, envelope.Version)
		}
		lines = envelope.Lines
	default:
		return nil, fmt.Errorf("%w: unexpected leading byte %q", ErrMalformedCart, trimmed[0])
	}

	cart := NewCart()
	for _, l := range lines {
		if l.Product.ID == "" || l.Quantity <= 0 {
			continue
		}
		l.Quantity = min(l.Quantity, MaxLineQuantity)
		key := LineKey(l.Product.ID, l.Size, l.Color)
		if i := cart.indexOf(key); i >= 0 {
			cart.Lines[i].Quantity = min(cart.Lines[i].Quantity+l.Quantity, MaxLineQuantity)
			continue
		}
		l.Key = key
		l.Product.Normalize()
		cart.Lines = append(cart.Lines, l)
	}
	return cart, nil
}
