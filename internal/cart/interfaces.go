package cart

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
)

// Repository defines the persistence surface required by the cart service.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByOwner(ctx context.Context, owner string) (*models.Cart, error)
	Create(ctx context.Context, cart *models.Cart) (*models.Cart, error)
	ReplaceItems(ctx context.Context, cartID uuid.UUID, items []models.CartItem) error
	DeleteByOwner(ctx context.Context, owner string) (bool, error)
	PurgeStale(ctx context.Context, cutoff time.Time, limit int) ([]string, error)
}

// Cache stores materialized carts keyed by owner. Every Delete advances the
// owner's generation; Set is dropped when the generation it was given is no
// longer current, so a read that raced a mutation cannot refill stale data.
type Cache interface {
	Get(ctx context.Context, owner string) (*Cart, error)
	Generation(ctx context.Context, owner string) (int64, error)
	Set(ctx context.Context, owner string, cart Cart, generation int64) error
	Delete(ctx context.Context, owner string) error
}
