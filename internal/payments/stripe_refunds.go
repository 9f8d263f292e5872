package payments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker/v2"
	"github.com/stripe/stripe-go/v78"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	stripeclient "github.com/angelmondragon/storefront-backend/pkg/stripe"
)

const breakerName = "stripe-refunds"

// StripeRefundGateway refunds payment intents through Stripe behind a circuit breaker.
type StripeRefundGateway struct {
	api     stripeclient.RefundAPI
	breaker *gobreaker.CircuitBreaker[*stripe.Refund]
	timeout time.Duration
	logg    *logger.Logger
	metrics *metrics.StoreMetrics
}

// NewStripeRefundGateway wires the refunds API with breaker settings from cfg.
func NewStripeRefundGateway(api stripeclient.RefundAPI, cfg config.RefundsConfig, logg *logger.Logger, m *metrics.StoreMetrics) (*StripeRefundGateway, error) {
	if api == nil {
		return nil, fmt.Errorf("stripe refunds api required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	maxFailures := cfg.BreakerMaxFailures
	if maxFailures == 0 {
		maxFailures = 5
	}

	settings := gobreaker.Settings{
		Name:     breakerName,
		Interval: cfg.BreakerInterval,
		Timeout:  cfg.BreakerOpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		// A request Stripe refuses is not an outage.
		IsSuccessful: func(err error) bool {
			return err == nil || stripeclient.IsClientError(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			ctx := logg.WithFields(context.Background(), map[string]any{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			})
			logg.Warn(ctx, "refund breaker state changed")
		},
	}

	return &StripeRefundGateway{
		api:     api,
		breaker: gobreaker.NewCircuitBreaker[*stripe.Refund](settings),
		timeout: cfg.RequestTimeout,
		logg:    logg,
		metrics: m,
	}, nil
}

// Refund issues one refund attempt for the full amount of the payment intent.
func (g *StripeRefundGateway) Refund(ctx context.Context, req RefundRequest) (RefundConfirmation, error) {
	if err := req.validate(); err != nil {
		return RefundConfirmation{}, err
	}
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	start := time.Now()
	refund, err := g.breaker.Execute(func() (*stripe.Refund, error) {
		params := &stripe.RefundParams{
			PaymentIntent: stripe.String(req.TransactionRef),
			Amount:        stripe.Int64(req.AmountMinorUnits),
		}
		params.Context = ctx
		if req.IdempotencyKey != "" {
			params.SetIdempotencyKey(req.IdempotencyKey)
		}
		return g.api.New(params)
	})
	if err != nil {
		g.metrics.ObserveRefund(metrics.OutcomeFailure, time.Since(start))
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return RefundConfirmation{}, ErrGatewayUnavailable.WithCause(err)
		}
		g.logg.Error(g.logg.WithField(ctx, "payment_intent", req.TransactionRef), "stripe refund failed", err)
		return RefundConfirmation{}, ErrRefundRejected.WithCause(err)
	}

	if refund == nil || refund.Status == stripe.RefundStatusFailed || refund.Status == stripe.RefundStatusCanceled {
		g.metrics.ObserveRefund(metrics.OutcomeRejected, time.Since(start))
		status := ""
		if refund != nil {
			status = string(refund.Status)
		}
		return RefundConfirmation{}, ErrRefundRejected.WithDetails(map[string]any{"status": status})
	}

	g.metrics.ObserveRefund(metrics.OutcomeSuccess, time.Since(start))
	return RefundConfirmation{
		RefundID:         refund.ID,
		Status:           string(refund.Status),
		AmountMinorUnits: refund.Amount,
	}, nil
}

// State exposes the breaker state for readiness reporting.
func (g *StripeRefundGateway) State() gobreaker.State {
	return g.breaker.State()
}
