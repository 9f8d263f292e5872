package redis

import "strings"

const namespace = "sf"

// Key joins non-blank parts under the storefront namespace with ':'.
func Key(parts ...string) string {
	var b strings.Builder
	b.WriteString(namespace)
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			b.WriteByte(':')
			b.WriteString(p)
		}
	}
	return b.String()
}

// CartKey is the cache key for an owner's cart. Owners compare case-insensitively.
func (c *Client) CartKey(owner string) string {
	return Key("cart", strings.ToLower(owner))
}

// CartGenerationKey counts invalidations of an owner's cached cart.
func (c *Client) CartGenerationKey(owner string) string {
	return Key("cartgen", strings.ToLower(owner))
}

func (c *Client) IdempotencyKey(scope, id string) string {
	return Key("idempotency", scope, id)
}

func (c *Client) RateLimitKey(policy, scope, id string) string {
	return Key("rl", policy, scope, id)
}
