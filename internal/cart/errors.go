package cart

import pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"

var (
	// ErrCartNotFound is returned when a mutation targets an owner without a cart.
	ErrCartNotFound = pkgerrors.Define(pkgerrors.CodeNotFound, "CART_NOT_FOUND", "cart not found")
	// ErrCacheMiss signals that no cached cart exists for the owner.
	ErrCacheMiss = pkgerrors.Define(pkgerrors.CodeNotFound, "CART_CACHE_MISS", "cart cache miss")
	// ErrQuantityLimit is returned when a line would exceed MaxQuantity.
	ErrQuantityLimit = pkgerrors.Define(pkgerrors.CodeValidation, "QUANTITY_LIMIT", "quantity exceeds the per-line limit")
)
