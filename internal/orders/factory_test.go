package orders

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

func checkoutInput(method string) PlaceOrderInput {
	return PlaceOrderInput{
		ShippingAddress:    types.Address{Street: "1 Main St", City: "Berlin", PostalCode: "10115", Country: "DE"},
		PaymentMethod:      method,
		ExternalPaymentRef: " pi_42 ",
	}
}

func filledCart() cart.Cart {
	return cart.Cart{
		ID:         uuid.New(),
		OwnerEmail: "Ann@Example.com",
		Items: []types.LineItem{
			{ProductID: "p1", Name: "Mug", Quantity: 2, UnitPrice: decimal.RequireFromString("4.50")},
			{ProductID: "p2", Name: "Tee", Quantity: 1, UnitPrice: decimal.RequireFromString("20.00")},
		},
	}
}

func TestNewOrderFromCart(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.FixedZone("CEST", 7200))
	c := filledCart()

	order, err := NewOrderFromCart(c, checkoutInput("card"), now)
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, order.ID)
	assert.Equal(t, "ann@example.com", order.OwnerEmail)
	assert.True(t, order.TotalPrice.Equal(decimal.RequireFromString("29.00")))
	assert.Equal(t, enums.OrderStatusProcessing, order.OrderStatus)
	assert.Equal(t, enums.PaymentStatusPending, order.PaymentStatus)
	assert.Equal(t, enums.PaymentMethodCreditCard, order.PaymentMethod)
	assert.Equal(t, "pi_42", order.ExternalPaymentRef)
	assert.False(t, order.ReturnRequested)
	assert.Equal(t, int64(1), order.Version)
	assert.Equal(t, time.UTC, order.CreatedAt.Location())

	c.Items[0].Quantity = 50
	assert.Equal(t, 2, order.Items[0].Quantity, "order items are a snapshot")
	assert.True(t, order.TotalPrice.Equal(decimal.RequireFromString("29.00")))
}

func TestNewOrderFromCartEmpty(t *testing.T) {
	_, err := NewOrderFromCart(cart.EmptyCart("ann@example.com"), checkoutInput("SEPA"), time.Now())
	assert.ErrorIs(t, err, ErrCartEmpty)
}

func TestNewOrderFromCartPaymentMethods(t *testing.T) {
	for raw, want := range map[string]enums.PaymentMethod{
		"CREDIT_CARD": enums.PaymentMethodCreditCard,
		" klarna ":    enums.PaymentMethodKlarna,
		"Sofort":      enums.PaymentMethodSofort,
		"sepa":        enums.PaymentMethodSEPA,
	} {
		order, err := NewOrderFromCart(filledCart(), checkoutInput(raw), time.Now())
		require.NoError(t, err, raw)
		assert.Equal(t, want, order.PaymentMethod, raw)
	}

	_, err := NewOrderFromCart(filledCart(), checkoutInput("bitcoin"), time.Now())
	require.ErrorIs(t, err, ErrInvalidPaymentMethod)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestNewOrderFromCartValidatesAddress(t *testing.T) {
	input := checkoutInput("card")
	input.ShippingAddress.City = " "
	_, err := NewOrderFromCart(filledCart(), input, time.Now())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestNewOrderFromCartRequiresPaymentRef(t *testing.T) {
	input := checkoutInput("card")
	input.ExternalPaymentRef = "   "
	_, err := NewOrderFromCart(filledCart(), input, time.Now())
	require.ErrorIs(t, err, ErrPaymentRefRequired)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}
