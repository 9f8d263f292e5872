package orders

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

// Repository defines persistence operations for orders and their line items.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.Order) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	FindByPaymentRef(ctx context.Context, ref string) (*models.Order, error)
	ListByOwner(ctx context.Context, owner string) ([]models.Order, error)
	List(ctx context.Context, params pagination.Params, filters ListFilters) (*ListResult, error)
	// CompareAndSwap writes the mutable fields of order when the stored
	// version still equals expectedVersion, bumping it by one.
	CompareAndSwap(ctx context.Context, order *models.Order, expectedVersion int64) (bool, error)
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
}
