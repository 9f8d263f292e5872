package models

import (
	"time"

	"github.com/google/uuid"
)

// Cart is the single active cart of an owner.
type Cart struct {
	ID         uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OwnerEmail string     `gorm:"column:owner_email;not null;uniqueIndex:ux_carts_owner_email"`
	Items      []CartItem `gorm:"foreignKey:CartID;references:ID;constraint:OnDelete:CASCADE"`
	CreatedAt  time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
