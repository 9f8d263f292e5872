package payments

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v78"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	stripeclient "github.com/angelmondragon/storefront-backend/pkg/stripe"
)

// IntentInput is the checkout request for a client-side payment.
type IntentInput struct {
	OwnerEmail        string
	Amount            decimal.Decimal
	Currency          string
	PaymentMethodType string
}

// Intent carries what the client needs to confirm a payment.
type Intent struct {
	ID           string `json:"id"`
	ClientSecret string `json:"clientSecret"`
	Amount       int64  `json:"amount"`
	Currency     string `json:"currency"`
}

// Service creates payment intents for checkout.
type Service interface {
	CreatePaymentIntent(ctx context.Context, input IntentInput) (Intent, error)
}

type service struct {
	intents         stripeclient.PaymentIntentAPI
	defaultCurrency string
	logg            *logger.Logger
}

// NewService builds the payment intent service.
func NewService(intents stripeclient.PaymentIntentAPI, defaultCurrency string, logg *logger.Logger) (Service, error) {
	if intents == nil {
		return nil, fmt.Errorf("payment intents api required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{
		intents:         intents,
		defaultCurrency: strings.ToLower(strings.TrimSpace(defaultCurrency)),
		logg:            logg,
	}, nil
}

func (s *service) CreatePaymentIntent(ctx context.Context, input IntentInput) (Intent, error) {
	amount := ToMinorUnits(input.Amount)
	if amount <= 0 {
		return Intent{}, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}

	currency := strings.ToLower(strings.TrimSpace(input.Currency))
	if currency == "" {
		currency = s.defaultCurrency
	}
	if len(currency) != 3 {
		return Intent{}, pkgerrors.New(pkgerrors.CodeValidation, "currency must be a 3-letter ISO code")
	}

	method, err := enums.ParsePaymentMethod(input.PaymentMethodType)
	if err != nil {
		return Intent{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unsupported payment method type")
	}

	params := &stripe.PaymentIntentParams{
		Amount:             stripe.Int64(amount),
		Currency:           stripe.String(currency),
		PaymentMethodTypes: []*string{stripe.String(method.StripeType())},
	}
	params.Context = ctx
	if input.OwnerEmail != "" {
		params.AddMetadata("owner_email", input.OwnerEmail)
	}

	pi, err := s.intents.New(params)
	if err != nil {
		if stripeclient.IsClientError(err) {
			return Intent{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "payment intent rejected")
		}
		s.logg.Error(ctx, "stripe payment intent failed", err)
		return Intent{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create payment intent")
	}

	return Intent{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		Amount:       pi.Amount,
		Currency:     string(pi.Currency),
	}, nil
}
