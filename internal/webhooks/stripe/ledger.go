package stripewebhook

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/redis"
)

const (
	markerProcessing = "processing"
	markerDone       = "done"

	// A crashed worker's claim lapses after this so Stripe's next retry can run.
	processingTTL = 2 * time.Minute
)

// Claim is the outcome of claiming a Stripe event id.
type Claim int

const (
	// ClaimAcquired means the caller owns the event and must Complete or Release it.
	ClaimAcquired Claim = iota
	// ClaimProcessed means an earlier delivery already applied the event.
	ClaimProcessed
	// ClaimBusy means another delivery of the event is being applied right now.
	ClaimBusy
)

type ledgerStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
	IdempotencyKey(scope, id string) string
}

// EventLedger records Stripe event ids in two phases: a short-lived
// processing claim, then a done marker that lives for the replay window.
type EventLedger struct {
	store  ledgerStore
	scope  string
	replay time.Duration
}

func NewEventLedger(store ledgerStore, scope string, replay time.Duration) (*EventLedger, error) {
	switch {
	case store == nil:
		return nil, errors.New("ledger store is required")
	case scope == "":
		return nil, errors.New("scope is required")
	case replay <= 0:
		return nil, errors.New("replay window must be positive")
	}
	return &EventLedger{store: store, scope: scope, replay: replay}, nil
}

func (l *EventLedger) Claim(ctx context.Context, eventID string) (Claim, error) {
	key, err := l.key(eventID)
	if err != nil {
		return ClaimBusy, err
	}
	acquired, err := l.store.SetNX(ctx, key, markerProcessing, processingTTL)
	if err != nil {
		return ClaimBusy, fmt.Errorf("claim stripe event: %w", err)
	}
	if acquired {
		return ClaimAcquired, nil
	}

	marker, err := l.store.Get(ctx, key)
	switch {
	case redis.IsMiss(err):
		// Claim lapsed between the two calls; let the sender retry.
		return ClaimBusy, nil
	case err != nil:
		return ClaimBusy, fmt.Errorf("read stripe event claim: %w", err)
	case marker == markerDone:
		return ClaimProcessed, nil
	}
	return ClaimBusy, nil
}

// Complete turns an acquired claim into the long-lived done marker.
func (l *EventLedger) Complete(ctx context.Context, eventID string) error {
	key, err := l.key(eventID)
	if err != nil {
		return err
	}
	return l.store.Set(ctx, key, markerDone, l.replay)
}

// Release drops an acquired claim so a redelivery is applied again.
func (l *EventLedger) Release(ctx context.Context, eventID string) error {
	key, err := l.key(eventID)
	if err != nil {
		return err
	}
	return l.store.Del(ctx, key)
}

func (l *EventLedger) key(eventID string) (string, error) {
	if eventID == "" {
		return "", errors.New("event id is required")
	}
	return l.store.IdempotencyKey(l.scope, eventID), nil
}
