package orders

import (
	"fmt"

	"github.com/angelmondragon/storefront-backend/internal/payments"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

// lifecycleTransitions lists the status moves reachable through customer and
// return flows. Admin status overrides bypass this table.
var lifecycleTransitions = map[enums.OrderStatus][]enums.OrderStatus{
	enums.OrderStatusProcessing:      {enums.OrderStatusShipped, enums.OrderStatusCancelled},
	enums.OrderStatusShipped:         {enums.OrderStatusReturnRequested},
	enums.OrderStatusReturnRequested: {enums.OrderStatusReturned, enums.OrderStatusCancelled},
}

// CanTransition reports whether the lifecycle allows moving from one status to another.
func CanTransition(from, to enums.OrderStatus) bool {
	for _, candidate := range lifecycleTransitions[from] {
		if candidate == to {
			return true
		}
	}
	return false
}

func invalidState(o Order, operation string) error {
	return ErrInvalidState.WithDetails(map[string]any{
		"operation":   operation,
		"orderStatus": o.OrderStatus,
	})
}

// Cancel moves a processing or return-requested order to CANCELLED. Only the
// owner or an admin may cancel.
func Cancel(o Order, actor Actor) (Order, error) {
	if !actor.IsAdmin() && !actor.Owns(o) {
		return o, ErrUnauthorized
	}
	if o.OrderStatus == enums.OrderStatusCancelled {
		return o, ErrAlreadyCancelled
	}
	if !CanTransition(o.OrderStatus, enums.OrderStatusCancelled) {
		return o, invalidState(o, "cancel")
	}
	next := o.withStatus(enums.OrderStatusCancelled)
	next.ReturnRequested = false
	return next, nil
}

// RequestReturn flags a shipped order for return on behalf of its owner.
func RequestReturn(o Order, actor Actor) (Order, error) {
	if !actor.Owns(o) {
		return o, ErrNotOwner
	}
	if o.OrderStatus != enums.OrderStatusShipped {
		return o, invalidState(o, "request_return")
	}
	return o.withStatus(enums.OrderStatusReturnRequested).withReturnRequested(true), nil
}

// ApproveReturn checks that the order awaits return approval and builds the
// refund that must succeed before CompleteReturn is applied. A zero amount
// means nothing was charged and no refund call is needed.
func ApproveReturn(o Order) (payments.RefundRequest, error) {
	if o.OrderStatus != enums.OrderStatusReturnRequested {
		return payments.RefundRequest{}, invalidState(o, "approve_return")
	}
	req := payments.RefundRequest{
		TransactionRef:   o.ExternalPaymentRef,
		AmountMinorUnits: payments.ToMinorUnits(o.TotalPrice),
		IdempotencyKey:   RefundIdempotencyKey(o),
	}
	if req.AmountMinorUnits > 0 && req.TransactionRef == "" {
		return payments.RefundRequest{}, ErrNotRefundable.WithDetails(map[string]any{
			"operation":        "approve_return",
			"amountMinorUnits": req.AmountMinorUnits,
		})
	}
	return req, nil
}

// CompleteReturn records a confirmed refund: payment REFUNDED, order RETURNED.
func CompleteReturn(o Order) (Order, error) {
	if !CanTransition(o.OrderStatus, enums.OrderStatusReturned) {
		return o, invalidState(o, "complete_return")
	}
	return o.withStatus(enums.OrderStatusReturned).
		withPaymentStatus(enums.PaymentStatusRefunded).
		withReturnRequested(false), nil
}

// RefundIdempotencyKey is stable for a given order version so a retried
// approval of the same version reuses the provider-side refund.
func RefundIdempotencyKey(o Order) string {
	return fmt.Sprintf("order-refund-%s-v%d", o.ID, o.Version)
}

// SetStatus applies an admin override of the order status. Like every admin
// override it settles a pending return request.
func SetStatus(o Order, raw string) (Order, error) {
	status, err := enums.ParseOrderStatus(raw)
	if err != nil {
		return o, ErrInvalidStatus.WithDetails(map[string]any{"status": raw}).WithCause(err)
	}
	return o.withStatus(status).withReturnRequested(false), nil
}

// SetPaymentStatus applies an admin override of the payment status.
func SetPaymentStatus(o Order, raw string) (Order, error) {
	status, err := enums.ParsePaymentStatus(raw)
	if err != nil {
		return o, ErrInvalidStatus.WithDetails(map[string]any{"paymentStatus": raw}).WithCause(err)
	}
	return o.withPaymentStatus(status).withReturnRequested(false), nil
}

// SetShippingAddress replaces the delivery address after validating it.
func SetShippingAddress(o Order, addr types.Address) (Order, error) {
	addr = addr.Normalize()
	if err := addr.Validate(); err != nil {
		return o, err
	}
	return o.withShippingAddress(addr).withReturnRequested(false), nil
}
