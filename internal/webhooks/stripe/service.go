package stripewebhook

import (
	"context"
	"encoding/json"

	"github.com/stripe/stripe-go/v78"

	"github.com/angelmondragon/storefront-backend/internal/orders"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

const (
	eventPaymentIntentSucceeded stripe.EventType = "payment_intent.succeeded"
	eventPaymentIntentFailed    stripe.EventType = "payment_intent.payment_failed"
)

type paymentConfirmer interface {
	ConfirmPayment(ctx context.Context, paymentRef string) (orders.Order, error)
}

type ServiceParams struct {
	Orders paymentConfirmer
	Logger *logger.Logger
}

type Service struct {
	orders paymentConfirmer
	logg   *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Orders == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "order service required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &Service{orders: params.Orders, logg: logg}, nil
}

// HandleEvent applies a verified Stripe event. Unknown event types are
// acknowledged without side effects.
func (s *Service) HandleEvent(ctx context.Context, event *stripe.Event) error {
	if event == nil || event.Data == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "stripe event data required")
	}

	switch event.Type {
	case eventPaymentIntentSucceeded:
		intent, err := decodeIntent(event)
		if err != nil {
			return err
		}
		order, err := s.orders.ConfirmPayment(ctx, intent.ID)
		if err != nil {
			if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
				// intents created outside checkout carry no order
				s.logg.Warn(s.logg.WithField(ctx, "payment_intent", intent.ID), "stripe.intent.unmatched")
				return nil
			}
			return err
		}
		ctx = s.logg.WithOrderID(ctx, order.ID.String())
		s.logg.Info(s.logg.WithField(ctx, "payment_status", string(order.PaymentStatus)), "stripe.intent.confirmed")
		return nil
	case eventPaymentIntentFailed:
		intent, err := decodeIntent(event)
		if err != nil {
			return err
		}
		fields := map[string]any{"payment_intent": intent.ID}
		if intent.LastPaymentError != nil {
			fields["decline_code"] = string(intent.LastPaymentError.DeclineCode)
		}
		s.logg.Warn(s.logg.WithFields(ctx, fields), "stripe.intent.failed")
		return nil
	default:
		return nil
	}
}

func decodeIntent(event *stripe.Event) (*stripe.PaymentIntent, error) {
	var intent stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode payment intent event")
	}
	if intent.ID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment intent id missing")
	}
	return &intent, nil
}
