package orders

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds an order repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// Create inserts the order row followed by its line items.
func (r *repository) Create(ctx context.Context, order *models.Order) error {
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	db := r.db.WithContext(ctx)
	if err := db.Omit("Items").Create(order).Error; err != nil {
		return err
	}
	if len(order.Items) == 0 {
		return nil
	}
	for i := range order.Items {
		order.Items[i].OrderID = order.ID
		if order.Items[i].ID == uuid.Nil {
			order.Items[i].ID = uuid.New()
		}
	}
	return db.Create(&order.Items).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.withItems(ctx).Where("id = ?", id).First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// FindByPaymentRef resolves the order charged under the provider reference.
func (r *repository) FindByPaymentRef(ctx context.Context, ref string) (*models.Order, error) {
	var order models.Order
	err := r.withItems(ctx).Where("external_payment_ref = ?", ref).First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// ListByOwner returns every order of owner, newest first.
func (r *repository) ListByOwner(ctx context.Context, owner string) ([]models.Order, error) {
	var rows []models.Order
	err := r.withItems(ctx).
		Where("owner_email = ?", owner).
		Order("created_at DESC, id DESC").
		Find(&rows).Error
	return rows, err
}

// List pages through all orders, newest first, applying the admin filters.
func (r *repository) List(ctx context.Context, params pagination.Params, filters ListFilters) (*ListResult, error) {
	size := params.Size()
	after, err := params.After()
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	query := r.withItems(ctx).Model(&models.Order{})
	if filters.OwnerEmail != "" {
		query = query.Where("owner_email = ?", filters.OwnerEmail)
	}
	if filters.OrderStatus != nil {
		query = query.Where("order_status = ?", *filters.OrderStatus)
	}
	if filters.PaymentStatus != nil {
		query = query.Where("payment_status = ?", *filters.PaymentStatus)
	}
	if after != nil {
		query = query.Where("(created_at < ? OR (created_at = ? AND id < ?))", after.CreatedAt, after.CreatedAt, after.ID)
	}

	var rows []models.Order
	if err := query.Order("created_at DESC, id DESC").Limit(size + 1).Find(&rows).Error; err != nil {
		return nil, err
	}

	rows, more := pagination.Trim(rows, size)
	result := &ListResult{Orders: make([]Order, 0, len(rows))}
	if more {
		last := rows[len(rows)-1]
		result.NextCursor = pagination.Keyset{CreatedAt: last.CreatedAt, ID: last.ID}.Token()
	}
	for i := range rows {
		result.Orders = append(result.Orders, FromModel(&rows[i]))
	}
	return result, nil
}

func (r *repository) CompareAndSwap(ctx context.Context, order *models.Order, expectedVersion int64) (bool, error) {
	now := time.Now().UTC()
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND version = ?", order.ID, expectedVersion).
		Updates(map[string]any{
			"order_status":     order.OrderStatus,
			"payment_status":   order.PaymentStatus,
			"shipping_address": order.ShippingAddress,
			"return_requested": order.ReturnRequested,
			"version":          gorm.Expr("version + 1"),
			"updated_at":       now,
		})
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		return false, nil
	}
	order.Version = expectedVersion + 1
	order.UpdatedAt = now
	return true, nil
}

// Delete removes the order and its line items. It reports whether a row existed.
func (r *repository) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	db := r.db.WithContext(ctx)
	if err := db.Where("order_id = ?", id).Delete(&models.OrderLineItem{}).Error; err != nil {
		return false, err
	}
	res := db.Where("id = ?", id).Delete(&models.Order{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) withItems(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Preload("Items", func(db *gorm.DB) *gorm.DB {
		return db.Order("position ASC")
	})
}

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
