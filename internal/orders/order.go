package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

// Order is an immutable snapshot of a placed order. State transitions return a
// new value and never modify the receiver or share its item slice.
type Order struct {
	ID                 uuid.UUID           `json:"id"`
	OwnerEmail         string              `json:"ownerEmail"`
	Items              []types.LineItem    `json:"items"`
	TotalPrice         decimal.Decimal     `json:"totalPrice"`
	ShippingAddress    types.Address       `json:"shippingAddress"`
	PaymentStatus      enums.PaymentStatus `json:"paymentStatus"`
	OrderStatus        enums.OrderStatus   `json:"orderStatus"`
	PaymentMethod      enums.PaymentMethod `json:"paymentMethod"`
	ExternalPaymentRef string              `json:"externalPaymentRef,omitempty"`
	ReturnRequested    bool                `json:"returnRequested"`
	Version            int64               `json:"version"`
	CreatedAt          time.Time           `json:"createdAt"`
	UpdatedAt          time.Time           `json:"updatedAt"`
}

// Actor is the authenticated principal invoking an order operation.
type Actor struct {
	Email string
	Role  enums.UserRole
}

// IsAdmin reports whether the actor carries the admin role.
func (a Actor) IsAdmin() bool {
	return a.Role == enums.UserRoleAdmin
}

// Owns compares the actor email with the order owner, ignoring case and
// surrounding whitespace.
func (a Actor) Owns(o Order) bool {
	email := types.NormalizeEmail(a.Email)
	return email != "" && email == types.NormalizeEmail(o.OwnerEmail)
}

func (o Order) clone() Order {
	o.Items = types.CloneLineItems(o.Items)
	return o
}

func (o Order) withStatus(status enums.OrderStatus) Order {
	next := o.clone()
	next.OrderStatus = status
	return next
}

func (o Order) withPaymentStatus(status enums.PaymentStatus) Order {
	next := o.clone()
	next.PaymentStatus = status
	return next
}

func (o Order) withShippingAddress(addr types.Address) Order {
	next := o.clone()
	next.ShippingAddress = addr
	return next
}

func (o Order) withReturnRequested(requested bool) Order {
	next := o.clone()
	next.ReturnRequested = requested
	return next
}

// FromModel maps a stored order and its line items to the domain value.
func FromModel(m *models.Order) Order {
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
	return Order{
		ID:                 m.ID,
		OwnerEmail:         m.OwnerEmail,
		Items:              items,
		TotalPrice:         m.TotalPrice,
		ShippingAddress:    m.ShippingAddress,
		PaymentStatus:      m.PaymentStatus,
		OrderStatus:        m.OrderStatus,
		PaymentMethod:      m.PaymentMethod,
		ExternalPaymentRef: m.ExternalPaymentRef,
		ReturnRequested:    m.ReturnRequested,
		Version:            m.Version,
		CreatedAt:          m.CreatedAt,
		UpdatedAt:          m.UpdatedAt,
	}
}

func toModel(o Order) *models.Order {
	items := make([]models.OrderLineItem, 0, len(o.Items))
	for i, it := range o.Items {
		items = append(items, models.OrderLineItem{
			ID:        uuid.New(),
			OrderID:   o.ID,
			ProductID: it.ProductID,
			Name:      it.Name,
			ImageRef:  it.ImageRef,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
			Position:  i,
		})
	}
	return &models.Order{
		ID:                 o.ID,
		OwnerEmail:         o.OwnerEmail,
		TotalPrice:         o.TotalPrice,
		ShippingAddress:    o.ShippingAddress,
		PaymentStatus:      o.PaymentStatus,
		OrderStatus:        o.OrderStatus,
		PaymentMethod:      o.PaymentMethod,
		ExternalPaymentRef: o.ExternalPaymentRef,
		ReturnRequested:    o.ReturnRequested,
		Version:            o.Version,
		Items:              items,
		CreatedAt:          o.CreatedAt,
		UpdatedAt:          o.UpdatedAt,
	}
}
