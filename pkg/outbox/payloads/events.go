package payloads

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

// OrderCreatedEvent is emitted when a cart is checked out into an order.
type OrderCreatedEvent struct {
	OrderID       uuid.UUID           `json:"orderId"`
	OwnerEmail    string              `json:"ownerEmail"`
	TotalPrice    decimal.Decimal     `json:"totalPrice"`
	PaymentMethod enums.PaymentMethod `json:"paymentMethod"`
	ItemCount     int                 `json:"itemCount"`
}

// OrderStatusChangedEvent reports an order status move and what caused it.
type OrderStatusChangedEvent struct {
	OrderID   uuid.UUID         `json:"orderId"`
	From      enums.OrderStatus `json:"from"`
	To        enums.OrderStatus `json:"to"`
	Operation string            `json:"operation"`
	Version   int64             `json:"version"`
}

// OrderPaymentStatusChangedEvent reports an admin payment status override.
type OrderPaymentStatusChangedEvent struct {
	OrderID uuid.UUID           `json:"orderId"`
	From    enums.PaymentStatus `json:"from"`
	To      enums.PaymentStatus `json:"to"`
	Version int64               `json:"version"`
}

// OrderShippingAddressChangedEvent carries the replacement delivery address.
type OrderShippingAddressChangedEvent struct {
	OrderID         uuid.UUID     `json:"orderId"`
	ShippingAddress types.Address `json:"shippingAddress"`
	Version         int64         `json:"version"`
}

// OrderRefundedEvent is emitted once an approved return has been refunded.
type OrderRefundedEvent struct {
	OrderID          uuid.UUID `json:"orderId"`
	RefundID         string    `json:"refundId"`
	AmountMinorUnits int64     `json:"amountMinorUnits"`
	Version          int64     `json:"version"`
}

// OrderDeletedEvent is emitted when an admin removes an order.
type OrderDeletedEvent struct {
	OrderID    uuid.UUID `json:"orderId"`
	OwnerEmail string    `json:"ownerEmail"`
}

func (e OrderCreatedEvent) OrderRef() uuid.UUID                { return e.OrderID }
func (e OrderStatusChangedEvent) OrderRef() uuid.UUID          { return e.OrderID }
func (e OrderPaymentStatusChangedEvent) OrderRef() uuid.UUID   { return e.OrderID }
func (e OrderShippingAddressChangedEvent) OrderRef() uuid.UUID { return e.OrderID }
func (e OrderRefundedEvent) OrderRef() uuid.UUID               { return e.OrderID }
func (e OrderDeletedEvent) OrderRef() uuid.UUID                { return e.OrderID }
