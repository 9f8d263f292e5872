package orders

import (
	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// ListFilters narrows the admin order listing. Zero values are ignored.
type ListFilters struct {
	OwnerEmail    string
	OrderStatus   *enums.OrderStatus
	PaymentStatus *enums.PaymentStatus
}

// ListResult is one page of orders, newest first.
type ListResult struct {
	Orders     []Order `json:"orders"`
	NextCursor string  `json:"nextCursor,omitempty"`
}

// ListQuery is the raw admin listing input; values are parsed by the service.
type ListQuery struct {
	Email         string
	OrderStatus   string
	PaymentStatus string
	Limit         int
	Cursor        string
}
