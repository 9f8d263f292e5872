package config

const EnvPrefix = "STOREFRONT"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv = "STOREFRONT_APP_ENV"
	EnvPort   = "STOREFRONT_APP_PORT"

	EnvDBDSN  = "STOREFRONT_DB_DSN"
	EnvDBHost = "STOREFRONT_DB_HOST"
	EnvDBUser = "STOREFRONT_DB_USER"
	EnvDBName = "STOREFRONT_DB_NAME"

	EnvRedisURL = "STOREFRONT_REDIS_URL"

	EnvJWTSecret  = "STOREFRONT_JWT_SECRET"
	EnvJWTIssuer  = "STOREFRONT_JWT_ISSUER"
	EnvJWTExpMins = "STOREFRONT_JWT_EXPIRATION_MINUTES"

	EnvCartCacheTTL             = "STOREFRONT_CART_CACHE_TTL"
	EnvRefundBreakerMaxFailures = "STOREFRONT_REFUND_BREAKER_MAX_FAILURES"
	EnvRateLimitActor           = "STOREFRONT_RATE_LIMIT_ACTOR"
	EnvJanitorInterval          = "STOREFRONT_JANITOR_INTERVAL"
	EnvStripeEnv                = "STOREFRONT_STRIPE_ENV"
)

// legacyDBEnvVars must all be set when no DSN is provided.
var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
