package orders

import pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"

var (
	ErrOrderNotFound        = pkgerrors.Define(pkgerrors.CodeNotFound, "ORDER_NOT_FOUND", "order not found")
	ErrCartEmpty            = pkgerrors.Define(pkgerrors.CodeStateConflict, "CART_EMPTY", "cart is empty")
	ErrInvalidPaymentMethod = pkgerrors.Define(pkgerrors.CodeValidation, "INVALID_PAYMENT_METHOD", "invalid payment method")
	ErrInvalidStatus        = pkgerrors.Define(pkgerrors.CodeValidation, "INVALID_STATUS", "invalid status")
	ErrNotOwner             = pkgerrors.Define(pkgerrors.CodeForbidden, "NOT_OWNER", "order belongs to another user")
	ErrUnauthorized         = pkgerrors.Define(pkgerrors.CodeForbidden, "NOT_AUTHORIZED", "not allowed to modify this order")
	ErrAlreadyCancelled     = pkgerrors.Define(pkgerrors.CodeConflict, "ALREADY_CANCELLED", "order is already cancelled")
	ErrInvalidState         = pkgerrors.Define(pkgerrors.CodeStateConflict, "INVALID_STATE", "operation not allowed in current order state")
	ErrRefundFailed         = pkgerrors.Define(pkgerrors.CodeDependency, "REFUND_FAILED", "refund could not be processed")
	ErrVersionConflict      = pkgerrors.Define(pkgerrors.CodeConflict, "VERSION_CONFLICT", "order was modified concurrently")
	ErrPaymentRefRequired   = pkgerrors.Define(pkgerrors.CodeValidation, "PAYMENT_REF_REQUIRED", "payment intent id is required")
	ErrNotRefundable        = pkgerrors.Define(pkgerrors.CodeStateConflict, "NOT_REFUNDABLE", "order has no payment to refund")
)
