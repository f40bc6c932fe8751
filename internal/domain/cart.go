package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Variant holds the attributes that distinguish otherwise identical lines.
type Variant struct {
	Size  string `json:"size,omitempty"`
	Color string `json:"color,omitempty"`
}

// Equal compares variants ignoring case and surrounding whitespace.
func (v Variant) Equal(o Variant) bool {
	return strings.EqualFold(strings.TrimSpace(v.Size), strings.TrimSpace(o.Size)) &&
		strings.EqualFold(strings.TrimSpace(v.Color), strings.TrimSpace(o.Color))
}

type CartLine struct {
	ID        string          `json:"lineId"`
	ProductID string          `json:"productId"`
	SKU       string          `json:"sku"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Quantity  int             `json:"quantity"`
	Variant   Variant         `json:"variant"`
	CreatedAt time.Time       `json:"createdAt,omitzero"`
}

// Matches reports whether the line holds the given product and variant.
func (l CartLine) Matches(productID string, variant Variant) bool {
	return l.ProductID == productID && l.Variant.Equal(variant)
}

// Total is unitPrice × quantity.
func (l CartLine) Total() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Cart is an ordered list of lines plus totals derived from them.
type Cart struct {
	ID         string          `json:"id,omitempty"`
	SessionID  string          `json:"-"`
	Lines      []CartLine      `json:"items"`
	Subtotal   decimal.Decimal `json:"subtotal"`
	TotalItems int             `json:"totalItems"`
	CreatedAt  time.Time       `json:"createdAt,omitzero"`
}

// NewCart builds a cart whose totals are computed from lines.
func NewCart(lines []CartLine) Cart {
	c := Cart{Lines: lines}
	c.Recompute()
	return c
}

// Recompute refreshes Subtotal and TotalItems from the line list.
func (c *Cart) Recompute() {
	subtotal := decimal.Zero
	items := 0
	for _, l := range c.Lines {
		subtotal = subtotal.Add(l.Total())
		items += l.Quantity
	}
	c.Subtotal = subtotal.Round(2)
	c.TotalItems = items
	if c.Lines == nil {
		c.Lines = []CartLine{}
	}
}

// Find returns the index of the line with id, or -1.
func (c Cart) Find(lineID string) int {
	for i, l := range c.Lines {
		if l.ID == lineID {
			return i
		}
	}
	return -1
}

// FindMatch returns the index of the line for productID+variant, or -1.
func (c Cart) FindMatch(productID string, variant Variant) int {
	for i, l := range c.Lines {
		if l.Matches(productID, variant) {
			return i
		}
	}
	return -1
}

// Clone returns a deep copy so callers cannot mutate the owner's lines.
func (c Cart) Clone() Cart {
	out := c
	out.Lines = make([]CartLine, len(c.Lines))
	copy(out.Lines, c.Lines)
	return out
}

// SyncMode tells whether a cart is currently backed by the remote service.
type SyncMode string

const (
	SyncRemote SyncMode = "REMOTE"
	SyncLocal  SyncMode = "LOCAL"
)

// LineStatus tracks an in-flight mutation on a single line.
type LineStatus string

const (
	LineIdle    LineStatus = "idle"
	LinePending LineStatus = "pending"
	LineError   LineStatus = "error"
)
