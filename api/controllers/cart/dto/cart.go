package cartdto

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AddItemRequest adds a product to the caller's cart, merging with any
// existing line for the same product.
type AddItemRequest struct {
	ProductID string          `json:"productId" validate:"required,max=64"`
	Name      string          `json:"name" validate:"required,max=200"`
	ImageRef  string          `json:"imageRef" validate:"omitempty,max=500"`
	Quantity  int             `json:"quantity" validate:"required,min=1,max=999"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
}

type SetQuantityRequest struct {
	Quantity *int `json:"quantity" validate:"required,max=999"`
}

type CartItem struct {
	ProductID string          `json:"productId"`
	Name      string          `json:"name"`
	ImageRef  string          `json:"imageRef,omitempty"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

type Cart struct {
	ID         *uuid.UUID      `json:"id,omitempty"`
	OwnerEmail string          `json:"ownerEmail"`
	Items      []CartItem      `json:"items"`
	ItemCount  int             `json:"itemCount"`
	Total      decimal.Decimal `json:"total"`
	UpdatedAt  *time.Time      `json:"updatedAt,omitempty"`
}
