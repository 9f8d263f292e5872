package cart

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds a cart repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// FindByOwner loads the owner's cart with its items in insertion order.
func (r *repository) FindByOwner(ctx context.Context, owner string) (*models.Cart, error) {
	var record models.Cart
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Where("owner_email = ?", owner).
		First(&record).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *repository) Create(ctx context.Context, cart *models.Cart) (*models.Cart, error) {
	if cart.ID == uuid.Nil {
		cart.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Omit("Items").Create(cart).Error; err != nil {
		return nil, err
	}
	return cart, nil
}

// ReplaceItems swaps the full item list of a cart and bumps its updated_at.
func (r *repository) ReplaceItems(ctx context.Context, cartID uuid.UUID, items []models.CartItem) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("cart_id = ?", cartID).Delete(&models.CartItem{}).Error; err != nil {
		return err
	}
	if len(items) > 0 {
		if err := db.Create(&items).Error; err != nil {
			return err
		}
	}
	return db.Model(&models.Cart{}).
		Where("id = ?", cartID).
		Update("updated_at", time.Now().UTC()).Error
}

// DeleteByOwner removes the owner's cart and its items. It reports whether a
// cart existed.
func (r *repository) DeleteByOwner(ctx context.Context, owner string) (bool, error) {
	db := r.db.WithContext(ctx)
	var record models.Cart
	if err := db.Select("id").Where("owner_email = ?", owner).First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}
	if err := db.Where("cart_id = ?", record.ID).Delete(&models.CartItem{}).Error; err != nil {
		return false, err
	}
	if err := db.Where("id = ?", record.ID).Delete(&models.Cart{}).Error; err != nil {
		return false, err
	}
	return true, nil
}

// PurgeStale deletes up to limit carts untouched since cutoff and returns
// their owners.
func (r *repository) PurgeStale(ctx context.Context, cutoff time.Time, limit int) ([]string, error) {
	db := r.db.WithContext(ctx)
	var stale []models.Cart
	if err := db.Select("id", "owner_email").
		Where("updated_at < ?", cutoff).
		Order("updated_at ASC").
		Limit(limit).
		Find(&stale).Error; err != nil {
		return nil, err
	}
	if len(stale) == 0 {
		return nil, nil
	}
	ids := make([]uuid.UUID, 0, len(stale))
	owners := make([]string, 0, len(stale))
	for _, c := range stale {
		ids = append(ids, c.ID)
		owners = append(owners, c.OwnerEmail)
	}
	err := db.Transaction(func(tx *gorm.DB) error {
		still := tx.Model(&models.Cart{}).Select("id").Where("id IN ? AND updated_at < ?", ids, cutoff)
		if err := tx.Where("cart_id IN (?)", still).Delete(&models.CartItem{}).Error; err != nil {
			return err
		}
		return tx.Where("id IN ? AND updated_at < ?", ids, cutoff).Delete(&models.Cart{}).Error
	})
	if err != nil {
		return nil, err
	}
	return owners, nil
}
