package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

type CartOp string

const (
	CartOpAdd    CartOp = "add"
	CartOpRemove CartOp = "remove"
	CartOpUpdate CartOp = "update"
	CartOpClear  CartOp = "clear"
)

// CartEvent describes the cart state after a mutation.
type CartEvent struct {
	StorageKey string          `json:"storage_key"`
	Op         CartOp          `json:"op"`
	LineKey    string          `json:"line_key,omitempty"`
	Lines      int             `json:"lines"`
	Count      int             `json:"count"`
	Total      decimal.Decimal `json:"total"`
	At         time.Time       `json:"at"`
}
