package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

// Order persists a placed order. Version is bumped on every write and guards
// concurrent updates.
type Order struct {
	ID                 uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OwnerEmail         string              `gorm:"column:owner_email;not null"`
	TotalPrice         decimal.Decimal     `gorm:"column:total_price;type:numeric(12,2);not null"`
	ShippingAddress    types.Address       `gorm:"column:shipping_address;type:jsonb;not null"`
	PaymentStatus      enums.PaymentStatus `gorm:"column:payment_status;not null"`
	OrderStatus        enums.OrderStatus   `gorm:"column:order_status;not null"`
	PaymentMethod      enums.PaymentMethod `gorm:"column:payment_method;not null"`
	ExternalPaymentRef string              `gorm:"column:external_payment_ref"`
	ReturnRequested    bool                `gorm:"column:return_requested;not null;default:false"`
	Version            int64               `gorm:"column:version;not null;default:1"`
	Items              []OrderLineItem     `gorm:"foreignKey:OrderID;references:ID;constraint:OnDelete:CASCADE"`
	CreatedAt          time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
