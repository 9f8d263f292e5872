package cart

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

// MaxQuantity bounds one line, including quantities summed by Consolidate.
const MaxQuantity = 999

// MaxUnitPrice is the largest accepted unit price; stored prices carry two
// decimal places.
var MaxUnitPrice = decimal.NewFromInt(1_000_000)

// Cart is the per-owner collection of pending line items. A zero ID marks a
// cart that has never been persisted.
type Cart struct {
	ID         uuid.UUID        `json:"id"`
	OwnerEmail string           `json:"ownerEmail"`
	Items      []types.LineItem `json:"items"`
	UpdatedAt  time.Time        `json:"updatedAt"`
}

// EmptyCart returns an unsaved cart for owner.
func EmptyCart(owner string) Cart {
	return Cart{OwnerEmail: types.NormalizeEmail(owner), Items: []types.LineItem{}}
}

// IsEmpty reports whether the cart holds no items.
func (c Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

// Persisted reports whether the cart exists in the store.
func (c Cart) Persisted() bool {
	return c.ID != uuid.Nil
}

// Total sums quantity × unit price across the cart.
func (c Cart) Total() decimal.Decimal {
	return types.SumLineItems(c.Items)
}

// Find returns the line for productID.
func (c Cart) Find(productID string) (types.LineItem, bool) {
	for _, item := range c.Items {
		if item.ProductID == productID {
			return item, true
		}
	}
	return types.LineItem{}, false
}

// Consolidate merges incoming into items. A line with the same product id is
// replaced by the incoming line carrying the summed quantity; otherwise the
// line is appended. The input slice is never modified.
func Consolidate(items []types.LineItem, incoming types.LineItem) []types.LineItem {
	out := make([]types.LineItem, 0, len(items)+1)
	merged := false
	for _, existing := range items {
		if !merged && existing.ProductID == incoming.ProductID {
			out = append(out, incoming.WithQuantity(existing.Quantity+incoming.Quantity))
			merged = true
			continue
		}
		out = append(out, existing)
	}
	if !merged {
		out = append(out, incoming)
	}
	return out
}

// SetQuantity replaces the quantity of productID. A quantity of zero or less
// drops the line.
func SetQuantity(items []types.LineItem, productID string, qty int) []types.LineItem {
	if qty <= 0 {
		return Remove(items, productID)
	}
	out := make([]types.LineItem, 0, len(items))
	for _, existing := range items {
		if existing.ProductID == productID {
			existing = existing.WithQuantity(qty)
		}
		out = append(out, existing)
	}
	return out
}

// Remove filters productID out of items.
func Remove(items []types.LineItem, productID string) []types.LineItem {
	out := make([]types.LineItem, 0, len(items))
	for _, existing := range items {
		if existing.ProductID != productID {
			out = append(out, existing)
		}
	}
	return out
}

// ValidateItem normalizes an incoming line and checks its invariants.
func ValidateItem(item types.LineItem) (types.LineItem, error) {
	item = item.Normalize()
	switch {
	case item.ProductID == "":
		return item, pkgerrors.New(pkgerrors.CodeValidation, "productId is required")
	case item.Quantity < 1:
		return item, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1").
			WithDetails(map[string]any{"quantity": item.Quantity})
	case item.Quantity > MaxQuantity:
		return item, ErrQuantityLimit.WithDetails(map[string]any{"quantity": item.Quantity, "max": MaxQuantity})
	case item.UnitPrice.IsNegative():
		return item, pkgerrors.New(pkgerrors.CodeValidation, "unitPrice must not be negative").
			WithDetails(map[string]any{"unitPrice": item.UnitPrice.String()})
	case item.UnitPrice.GreaterThan(MaxUnitPrice):
		return item, pkgerrors.New(pkgerrors.CodeValidation, "unitPrice exceeds the maximum").
			WithDetails(map[string]any{"unitPrice": item.UnitPrice.String(), "max": MaxUnitPrice.String()})
	case !item.UnitPrice.Equal(item.UnitPrice.Truncate(2)):
		return item, pkgerrors.New(pkgerrors.CodeValidation, "unitPrice must have at most two decimal places").
			WithDetails(map[string]any{"unitPrice": item.UnitPrice.String()})
	}
	if item.Name == "" {
		item.Name = item.ProductID
	}
	return item, nil
}

// CheckLineLimit reports ErrQuantityLimit when any line exceeds MaxQuantity.
func CheckLineLimit(items []types.LineItem) error {
	for _, item := range items {
		if item.Quantity > MaxQuantity {
			return ErrQuantityLimit.WithDetails(map[string]any{
				"productId": item.ProductID,
				"quantity":  item.Quantity,
				"max":       MaxQuantity,
			})
		}
	}
	return nil
}

// FromModel maps a stored cart and its items to the domain value.
func FromModel(m *models.Cart) Cart {
	items := make([]types.LineItem, 0, len(m.Items))
	for _, it := range m.Items {
		items = append(items, types.LineItem{
			ProductID: it.ProductID,
			Name:      it.Name,
			ImageRef:  it.ImageRef,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
		})
	}
	return Cart{
		ID:         m.ID,
		OwnerEmail: m.OwnerEmail,
		Items:      items,
		UpdatedAt:  m.UpdatedAt,
	}
}

func toItemModels(cartID uuid.UUID, items []types.LineItem) []models.CartItem {
	out := make([]models.CartItem, 0, len(items))
	for i, it := range items {
		out = append(out, models.CartItem{
			ID:        uuid.New(),
			CartID:    cartID,
			ProductID: it.ProductID,
			Name:      it.Name,
			ImageRef:  it.ImageRef,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
			Position:  i,
		})
	}
	return out
}

func normalizeProductID(productID string) string {
	return strings.TrimSpace(productID)
}
