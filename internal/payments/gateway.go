package payments

import (
	"context"

	"github.com/shopspring/decimal"

	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

// RefundRequest describes a full refund of a captured payment.
type RefundRequest struct {
	TransactionRef   string
	AmountMinorUnits int64
	IdempotencyKey   string
}

// RefundConfirmation is the provider acknowledgement of a refund.
type RefundConfirmation struct {
	RefundID         string
	Status           string
	AmountMinorUnits int64
}

// RefundGateway issues refunds against the payment provider. Implementations
// make a single attempt per call.
type RefundGateway interface {
	Refund(ctx context.Context, req RefundRequest) (RefundConfirmation, error)
}

var (
	ErrGatewayUnavailable = pkgerrors.Define(pkgerrors.CodeDependency, "REFUND_GATEWAY_UNAVAILABLE", "refund gateway unavailable")
	ErrRefundRejected     = pkgerrors.Define(pkgerrors.CodeDependency, "REFUND_REJECTED", "refund rejected by provider")
	ErrInvalidRefund      = pkgerrors.Define(pkgerrors.CodeValidation, "INVALID_REFUND_REQUEST", "refund request is incomplete")
)

var hundred = decimal.NewFromInt(100)

// ToMinorUnits converts a major-unit amount to cents, rounding half away from zero.
func ToMinorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(hundred).Round(0).IntPart()
}

func (r RefundRequest) validate() error {
	missing := []string{}
	if r.TransactionRef == "" {
		missing = append(missing, "transactionRef")
	}
	if r.AmountMinorUnits <= 0 {
		missing = append(missing, "amount")
	}
	if len(missing) > 0 {
		return ErrInvalidRefund.WithDetails(map[string]any{"fields": missing})
	}
	return nil
}
