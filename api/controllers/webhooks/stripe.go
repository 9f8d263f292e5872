package webhooks

import (
	"context"
	"io"
	"net/http"

	"github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/webhook"

	"github.com/angelmondragon/storefront-backend/api/responses"
	stripewebhook "github.com/angelmondragon/storefront-backend/internal/webhooks/stripe"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

type StripeWebhookService interface {
	HandleEvent(ctx context.Context, event *stripe.Event) error
}

type eventLedger interface {
	Claim(ctx context.Context, eventID string) (stripewebhook.Claim, error)
	Complete(ctx context.Context, eventID string) error
	Release(ctx context.Context, eventID string) error
}

const maxWebhookBody = 64 << 10

type stripeClient interface {
	SigningSecret() string
}

var errEventInFlight = pkgerrors.Define(pkgerrors.CodeConflict, "event_in_flight", "stripe event is already being processed")

// StripeWebhook verifies and applies Stripe payment events. Each event id is
// applied at most once; a delivery racing an in-flight one gets 409 so Stripe
// retries it later.
func StripeWebhook(svc StripeWebhookService, client stripeClient, ledger eventLedger, logg *logger.Logger) http.HandlerFunc {
	h := stripeHandler{svc: svc, client: client, ledger: ledger, logg: logg}
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if err := h.ready(); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		event, err := h.verify(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if logg != nil {
			ctx = logg.WithFields(ctx, map[string]any{"stripe_event_id": event.ID, "stripe_event_type": string(event.Type)})
		}
		if err := h.apply(ctx, event); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, nil)
	}
}

type stripeHandler struct {
	svc    StripeWebhookService
	client stripeClient
	ledger eventLedger
	logg   *logger.Logger
}

func (h stripeHandler) ready() error {
	switch {
	case h.svc == nil:
		return responses.Unavailable("webhook")
	case h.client == nil:
		return pkgerrors.New(pkgerrors.CodeInternal, "stripe client unavailable")
	case h.ledger == nil:
		return pkgerrors.New(pkgerrors.CodeInternal, "event ledger unavailable")
	}
	return nil
}

func (h stripeHandler) verify(r *http.Request) (*stripe.Event, error) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read request body")
	}
	sig := r.Header.Get("Stripe-Signature")
	if sig == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "stripe signature missing")
	}
	event, err := webhook.ConstructEvent(payload, sig, h.client.SigningSecret())
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "verify signature")
	}
	return &event, nil
}

// apply runs the event under a ledger claim. Already processed events are a
// no-op.
func (h stripeHandler) apply(ctx context.Context, event *stripe.Event) error {
	claim, err := h.ledger.Claim(ctx, event.ID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "claim stripe event")
	}
	switch claim {
	case stripewebhook.ClaimProcessed:
		return nil
	case stripewebhook.ClaimBusy:
		return errEventInFlight
	}

	detached := context.WithoutCancel(ctx)
	if err := h.svc.HandleEvent(ctx, event); err != nil {
		if releaseErr := h.ledger.Release(detached, event.ID); releaseErr != nil {
			h.logError(ctx, "release stripe event claim", releaseErr)
		}
		return err
	}
	// A failed completion lets the claim lapse; a later redelivery reapplies the event.
	if err := h.ledger.Complete(detached, event.ID); err != nil {
		h.logError(ctx, "complete stripe event claim", err)
	}
	if h.logg != nil {
		h.logg.Info(ctx, "stripe.event.processed")
	}
	return nil
}

func (h stripeHandler) logError(ctx context.Context, msg string, err error) {
	if h.logg != nil {
		h.logg.Error(ctx, msg, err)
	}
}
