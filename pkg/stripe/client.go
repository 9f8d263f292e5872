// Package stripe wraps the stripe-go client with mode checks on the secret key.
package stripe

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/client"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

// Secret and restricted key prefixes accepted in each mode.
var keyPrefixes = map[string][]string{
	"test": {"sk_test_", "rk_test_"},
	"live": {"sk_live_", "rk_live_"},
}

var errAPIKeyRequired = errors.New("stripe api key is required")

// RefundAPI is the subset of the Stripe refunds resource used here.
type RefundAPI interface {
	New(params *stripe.RefundParams) (*stripe.Refund, error)
}

// PaymentIntentAPI is the subset of the Stripe payment intents resource used here.
type PaymentIntentAPI interface {
	New(params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
}

type Client struct {
	api     *client.API
	mode    string
	signing string
}

// NewClient checks that the key belongs to the configured mode and builds
// the API client.
func NewClient(ctx context.Context, cfg config.StripeConfig, logg *logger.Logger) (*Client, error) {
	mode := cfg.Environment()
	prefixes, ok := keyPrefixes[mode]
	if !ok {
		return nil, fmt.Errorf("stripe mode %q is not one of test, live", mode)
	}
	key := strings.TrimSpace(cfg.APIKey)
	if key == "" {
		return nil, errAPIKeyRequired
	}
	if !hasAnyPrefix(key, prefixes) {
		return nil, fmt.Errorf("stripe %s mode needs a %s key", mode, strings.Join(prefixes, " or "))
	}

	if logg != nil {
		logg.Info(logg.WithField(ctx, "stripe_mode", mode), "stripe client initialized")
	}
	return &Client{
		api:     client.New(key, nil),
		mode:    mode,
		signing: strings.TrimSpace(cfg.WebhookSecret),
	}, nil
}

func (c *Client) Refunds() RefundAPI               { return c.api.Refunds }
func (c *Client) PaymentIntents() PaymentIntentAPI { return c.api.PaymentIntents }

// SigningSecret returns the webhook endpoint secret used to verify payloads.
func (c *Client) SigningSecret() string {
	if c == nil {
		return ""
	}
	return c.signing
}

func (c *Client) Mode() string { return c.mode }

// IsClientError reports whether Stripe rejected the request itself. Rate
// limiting and 5xx count as outages.
func IsClientError(err error) bool {
	var se *stripe.Error
	if !errors.As(err, &se) {
		return false
	}
	code := se.HTTPStatusCode
	return code >= http.StatusBadRequest && code < http.StatusInternalServerError && code != http.StatusTooManyRequests
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}
