package payments

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/api/middleware"
	"github.com/angelmondragon/storefront-backend/api/responses"
	"github.com/angelmondragon/storefront-backend/api/validators"
	internalpayments "github.com/angelmondragon/storefront-backend/internal/payments"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

type createIntentRequest struct {
	Amount            decimal.Decimal `json:"amount"`
	Currency          string          `json:"currency" validate:"omitempty,len=3"`
	PaymentMethodType string          `json:"paymentMethodType" validate:"required"`
}

// CreateIntent opens a Stripe payment intent and returns its client secret.
func CreateIntent(svc internalpayments.Service, logg *logger.Logger) http.HandlerFunc {
	return responses.Handle(logg, func(w http.ResponseWriter, r *http.Request) error {
		if svc == nil {
			return responses.Unavailable("payments")
		}
		email := middleware.EmailFromContext(r.Context())
		if email == "" {
			return pkgerrors.New(pkgerrors.CodeUnauthorized, "authenticated user required")
		}
		var body createIntentRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			return err
		}

		intent, err := svc.CreatePaymentIntent(r.Context(), internalpayments.IntentInput{
			OwnerEmail:        email,
			Amount:            body.Amount,
			Currency:          body.Currency,
			PaymentMethodType: body.PaymentMethodType,
		})
		if err != nil {
			return err
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, intent)
		return nil
	})
}
