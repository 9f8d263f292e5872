package orders

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

// PlaceOrderInput carries the checkout details supplied by the owner.
type PlaceOrderInput struct {
	ShippingAddress    types.Address
	PaymentMethod      string
	ExternalPaymentRef string
}

// NewOrderFromCart snapshots the cart into a new PROCESSING/PENDING order. The
// total is computed once here and never recomputed.
func NewOrderFromCart(c cart.Cart, input PlaceOrderInput, now time.Time) (Order, error) {
	if c.IsEmpty() {
		return Order{}, ErrCartEmpty
	}
	method, err := enums.ParsePaymentMethod(input.PaymentMethod)
	if err != nil {
		return Order{}, ErrInvalidPaymentMethod.
			WithDetails(map[string]any{"paymentMethod": input.PaymentMethod}).
			WithCause(err)
	}
	ref := strings.TrimSpace(input.ExternalPaymentRef)
	if ref == "" {
		return Order{}, ErrPaymentRefRequired
	}
	addr := input.ShippingAddress.Normalize()
	if err := addr.Validate(); err != nil {
		return Order{}, err
	}

	items := types.CloneLineItems(c.Items)
	now = now.UTC()
	return Order{
		ID:                 uuid.New(),
		OwnerEmail:         types.NormalizeEmail(c.OwnerEmail),
		Items:              items,
		TotalPrice:         types.SumLineItems(items),
		ShippingAddress:    addr,
		PaymentStatus:      enums.PaymentStatusPending,
		OrderStatus:        enums.OrderStatusProcessing,
		PaymentMethod:      method,
		ExternalPaymentRef: ref,
		ReturnRequested:    false,
		Version:            1,
		CreatedAt:          now,
		UpdatedAt:          now,
	}, nil
}
