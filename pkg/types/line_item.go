package types

import (
	"strings"

	"github.com/shopspring/decimal"
)

// LineItem is a product reference with a quantity and captured unit price.
// ProductID identifies the line within a cart or order.
type LineItem struct {
	ProductID string          `json:"productId"`
	Name      string          `json:"name"`
	ImageRef  string          `json:"imageRef,omitempty"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
}

// Subtotal returns quantity × unit price.
func (l LineItem) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// WithQuantity returns a copy of l with the quantity replaced.
func (l LineItem) WithQuantity(qty int) LineItem {
	l.Quantity = qty
	return l
}

// Normalize trims identifiers and names.
func (l LineItem) Normalize() LineItem {
	l.ProductID = strings.TrimSpace(l.ProductID)
	l.Name = strings.TrimSpace(l.Name)
	l.ImageRef = strings.TrimSpace(l.ImageRef)
	return l
}

// CloneLineItems deep-copies items so callers never share backing arrays.
func CloneLineItems(items []LineItem) []LineItem {
	if items == nil {
		return nil
	}
	out := make([]LineItem, len(items))
	copy(out, items)
	return out
}

// SumLineItems totals quantity × unit price across items.
func SumLineItems(items []LineItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Subtotal())
	}
	return total
}

// NormalizeEmail returns the canonical owner key for an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
