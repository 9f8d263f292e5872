package stripewebhook

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stripe/stripe-go/v78"

	"github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

func TestService_PaymentSucceededConfirmsOrder(t *testing.T) {
	confirmer := &stubConfirmer{}
	service := newTestService(t, confirmer)

	if err := service.HandleEvent(context.Background(), intentEvent(t, eventPaymentIntentSucceeded, "pi_ok")); err != nil {
		t.Fatalf("handle event: %v", err)
	}
	if len(confirmer.refs) != 1 || confirmer.refs[0] != "pi_ok" {
		t.Fatalf("expected pi_ok confirmed, got %v", confirmer.refs)
	}
}

func TestService_PaymentSucceededUnknownOrderIsAcknowledged(t *testing.T) {
	confirmer := &stubConfirmer{err: orders.ErrOrderNotFound}
	service := newTestService(t, confirmer)

	if err := service.HandleEvent(context.Background(), intentEvent(t, eventPaymentIntentSucceeded, "pi_orphan")); err != nil {
		t.Fatalf("expected orphan intent acknowledged, got %v", err)
	}
}

func TestService_PaymentSucceededPropagatesConflicts(t *testing.T) {
	confirmer := &stubConfirmer{err: orders.ErrVersionConflict}
	service := newTestService(t, confirmer)

	err := service.HandleEvent(context.Background(), intentEvent(t, eventPaymentIntentSucceeded, "pi_race"))
	if !errors.Is(err, orders.ErrVersionConflict) {
		t.Fatalf("expected version conflict, got %v", err)
	}
}

func TestService_IgnoresOtherEvents(t *testing.T) {
	confirmer := &stubConfirmer{}
	service := newTestService(t, confirmer)

	if err := service.HandleEvent(context.Background(), intentEvent(t, eventPaymentIntentFailed, "pi_declined")); err != nil {
		t.Fatalf("handle failed event: %v", err)
	}
	if err := service.HandleEvent(context.Background(), intentEvent(t, "customer.created", "cus_1")); err != nil {
		t.Fatalf("handle unrelated event: %v", err)
	}
	if len(confirmer.refs) != 0 {
		t.Fatalf("expected no confirmations, got %v", confirmer.refs)
	}
}

func TestService_RejectsMalformedEvents(t *testing.T) {
	service := newTestService(t, &stubConfirmer{})

	if err := service.HandleEvent(context.Background(), &stripe.Event{}); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for empty event, got %v", err)
	}
	event := &stripe.Event{Type: eventPaymentIntentSucceeded, Data: &stripe.EventData{Raw: json.RawMessage(`{"object":"payment_intent"}`)}}
	if err := service.HandleEvent(context.Background(), event); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for missing id, got %v", err)
	}
}

func newTestService(t *testing.T, confirmer *stubConfirmer) *Service {
	t.Helper()
	service, err := NewService(ServiceParams{Orders: confirmer})
	if err != nil {
		t.Fatalf("setup service: %v", err)
	}
	return service
}

func intentEvent(t *testing.T, eventType stripe.EventType, id string) *stripe.Event {
	t.Helper()
	raw, err := json.Marshal(map[string]any{"id": id, "object": "payment_intent", "status": "succeeded"})
	if err != nil {
		t.Fatalf("marshal intent: %v", err)
	}
	return &stripe.Event{ID: "evt_" + id, Type: eventType, Data: &stripe.EventData{Raw: raw}}
}

type stubConfirmer struct {
	refs []string
	err  error
}

func (s *stubConfirmer) ConfirmPayment(_ context.Context, ref string) (orders.Order, error) {
	if s.err != nil {
		return orders.Order{}, s.err
	}
	s.refs = append(s.refs, ref)
	return orders.Order{PaymentStatus: enums.PaymentStatusPaid, ExternalPaymentRef: ref}, nil
}
