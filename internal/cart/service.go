package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

const cartOwnerConstraint = "ux_carts_owner_email"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service exposes the cart operations available to an authenticated owner.
type Service interface {
	GetCart(ctx context.Context, owner string) (Cart, error)
	AddItem(ctx context.Context, owner string, item types.LineItem) (Cart, error)
	SetQuantity(ctx context.Context, owner, productID string, qty int) (Cart, error)
	RemoveItem(ctx context.Context, owner, productID string) (Cart, error)
	ClearCart(ctx context.Context, owner string) error
	Invalidate(ctx context.Context, owner string)
}

// ServiceParams wires the cart service dependencies.
type ServiceParams struct {
	Repo    Repository
	Tx      txRunner
	Cache   Cache
	Logger  *logger.Logger
	Metrics *metrics.StoreMetrics
}

type service struct {
	repo    Repository
	tx      txRunner
	cache   Cache
	logg    *logger.Logger
	metrics *metrics.StoreMetrics
	reads   singleflight.Group
}

// NewService builds a cart service backed by the provided stack.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	cache := params.Cache
	if cache == nil {
		cache = NoopCache()
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{
		repo:    params.Repo,
		tx:      params.Tx,
		cache:   cache,
		logg:    logg,
		metrics: params.Metrics,
	}, nil
}

// GetCart returns the owner's cart, or an unsaved empty cart when none exists.
func (s *service) GetCart(ctx context.Context, owner string) (Cart, error) {
	owner, err := requireOwner(owner)
	if err != nil {
		return Cart{}, err
	}
	s.metrics.IncCartOperation("get")

	v, err, _ := s.reads.Do(owner, func() (any, error) {
		cached, err := s.cache.Get(ctx, owner)
		if err == nil {
			s.metrics.IncCartCache(true)
			return *cached, nil
		}
		s.metrics.IncCartCache(false)
		if !errors.Is(err, ErrCacheMiss) {
			s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "cart cache read failed")
		}

		// The generation is read before the row so an eviction committed
		// after this load makes the fill below a no-op.
		gen, genErr := s.cache.Generation(ctx, owner)
		if genErr != nil {
			s.logg.Warn(s.logg.WithField(ctx, "error", genErr.Error()), "cart cache generation read failed")
		}

		record, err := s.repo.FindByOwner(ctx, owner)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return EmptyCart(owner), nil
		}
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
		}

		current := FromModel(record)
		if genErr == nil {
			if err := s.cache.Set(ctx, owner, current, gen); err != nil {
				s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "cart cache write failed")
			}
		}
		return current, nil
	})
	if err != nil {
		return Cart{}, err
	}
	return v.(Cart), nil
}

// AddItem consolidates item into the owner's cart, creating the cart on first use.
func (s *service) AddItem(ctx context.Context, owner string, item types.LineItem) (Cart, error) {
	owner, err := requireOwner(owner)
	if err != nil {
		return Cart{}, err
	}
	item, err = ValidateItem(item)
	if err != nil {
		return Cart{}, err
	}

	var result Cart
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		record, err := repo.FindByOwner(ctx, owner)
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			record, err = repo.Create(ctx, &models.Cart{ID: uuid.New(), OwnerEmail: owner})
			if err != nil {
				if db.IsUniqueViolation(err, cartOwnerConstraint) {
					return pkgerrors.New(pkgerrors.CodeConflict, "cart was created concurrently; retry")
				}
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create cart")
			}
		case err != nil:
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
		}

		current := FromModel(record)
		merged := Consolidate(current.Items, item)
		if err := CheckLineLimit(merged); err != nil {
			return err
		}
		result, err = s.replaceItems(ctx, repo, current, merged)
		return err
	})
	if err != nil {
		return Cart{}, err
	}

	s.metrics.IncCartOperation("add_item")
	s.Invalidate(ctx, owner)
	return result, nil
}

// SetQuantity replaces the quantity of a line. A quantity of zero or less
// removes it; an unknown product leaves the cart unchanged.
func (s *service) SetQuantity(ctx context.Context, owner, productID string, qty int) (Cart, error) {
	if qty > MaxQuantity {
		return Cart{}, ErrQuantityLimit.WithDetails(map[string]any{"quantity": qty, "max": MaxQuantity})
	}
	return s.mutate(ctx, owner, "set_quantity", func(items []types.LineItem) []types.LineItem {
		return SetQuantity(items, normalizeProductID(productID), qty)
	})
}

// RemoveItem drops the line for productID. Removing an absent product is a no-op.
func (s *service) RemoveItem(ctx context.Context, owner, productID string) (Cart, error) {
	return s.mutate(ctx, owner, "remove_item", func(items []types.LineItem) []types.LineItem {
		return Remove(items, normalizeProductID(productID))
	})
}

// ClearCart deletes the owner's cart when present.
func (s *service) ClearCart(ctx context.Context, owner string) error {
	owner, err := requireOwner(owner)
	if err != nil {
		return err
	}
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if _, err := s.repo.WithTx(tx).DeleteByOwner(ctx, owner); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete cart")
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.metrics.IncCartOperation("clear")
	s.Invalidate(ctx, owner)
	return nil
}

// Invalidate evicts the cached cart of owner. Failures are logged only.
func (s *service) Invalidate(ctx context.Context, owner string) {
	owner = types.NormalizeEmail(owner)
	if owner == "" {
		return
	}
	evictCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
	defer cancel()
	if err := s.cache.Delete(evictCtx, owner); err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "cart cache invalidate failed")
	}
}

func (s *service) mutate(ctx context.Context, owner, operation string, apply func([]types.LineItem) []types.LineItem) (Cart, error) {
	owner, err := requireOwner(owner)
	if err != nil {
		return Cart{}, err
	}

	var result Cart
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		record, err := repo.FindByOwner(ctx, owner)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrCartNotFound
		}
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
		}
		current := FromModel(record)
		result, err = s.replaceItems(ctx, repo, current, apply(current.Items))
		return err
	})
	if err != nil {
		return Cart{}, err
	}

	s.metrics.IncCartOperation(operation)
	s.Invalidate(ctx, owner)
	return result, nil
}

func (s *service) replaceItems(ctx context.Context, repo Repository, current Cart, items []types.LineItem) (Cart, error) {
	if err := repo.ReplaceItems(ctx, current.ID, toItemModels(current.ID, items)); err != nil {
		return Cart{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save cart items")
	}
	current.Items = items
	current.UpdatedAt = time.Now().UTC()
	return current, nil
}

func requireOwner(owner string) (string, error) {
	owner = types.NormalizeEmail(owner)
	if owner == "" {
		return "", pkgerrors.New(pkgerrors.CodeUnauthorized, "owner email is required")
	}
	return owner, nil
}
